package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/projecthub-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCounterRepository is a GORM implementation of CounterRepository.
// The counter row is the only source of task numbers. Allocation takes a
// row lock on it, so concurrent inserts for one project serialise on that
// row and inserts for other projects do not wait.
type GormCounterRepository struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewCounterRepository creates a new CounterRepository
func NewCounterRepository(db *gorm.DB, lockTimeout time.Duration) CounterRepository {
	return &GormCounterRepository{db: db, lockTimeout: lockTimeout}
}

func (r *GormCounterRepository) Init(ctx context.Context, projectID uint64) error {
	return r.db.WithContext(ctx).Create(&models.ProjectTaskCounter{ProjectID: projectID}).Error
}

// Allocate returns the next task number for projectID. The row lock is held
// until the surrounding transaction ends; a rollback returns the counter to
// its previous value.
func (r *GormCounterRepository) Allocate(ctx context.Context, projectID uint64) (next int64, err error) {
	db := r.db.WithContext(ctx)

	restore, err := r.setLockTimeout(db)
	if err != nil {
		return 0, r.classify(err)
	}
	defer func() {
		if rerr := restore(); rerr != nil && err == nil {
			next, err = 0, fmt.Errorf("failed to restore lock wait timeout: %w", rerr)
		}
	}()

	// Projects created before counters existed get a row on first use.
	if err := db.Exec(r.insertIfAbsentSQL(), projectID).Error; err != nil {
		return 0, r.classify(err)
	}

	var counter models.ProjectTaskCounter
	err = db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("project_id = ?", projectID).
		Take(&counter).Error
	if err != nil {
		if IsNotFound(err) {
			return 0, ErrCounterMissing
		}
		return 0, r.classify(err)
	}

	next = counter.LastNumber + 1
	if err := db.Exec("UPDATE project_task_counters SET last_number = ? WHERE project_id = ?", next, projectID).Error; err != nil {
		return 0, r.classify(err)
	}

	return next, nil
}

func (r *GormCounterRepository) Peek(ctx context.Context, projectID uint64) (int64, error) {
	var counter models.ProjectTaskCounter
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Take(&counter).Error
	if IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.LastNumber, nil
}

func noRestore() error { return nil }

// setLockTimeout bounds the wait for the counter row lock. The returned func
// undoes any change that would outlive the transaction.
func (r *GormCounterRepository) setLockTimeout(db *gorm.DB) (func() error, error) {
	if r.lockTimeout <= 0 {
		return noRestore, nil
	}
	switch db.Dialector.Name() {
	case "postgres":
		// SET LOCAL scopes the timeout to the current transaction.
		err := db.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())).Error
		return noRestore, err
	case "mysql":
		// MySQL has no transaction-scoped form, and the session belongs to a
		// pooled connection, so the previous value is put back afterwards.
		var previous int64
		if err := db.Raw("SELECT @@SESSION.innodb_lock_wait_timeout").Scan(&previous).Error; err != nil {
			return noRestore, err
		}
		seconds := int64(r.lockTimeout / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		if err := db.Exec(fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", seconds)).Error; err != nil {
			return noRestore, err
		}
		return func() error {
			return db.Exec(fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", previous)).Error
		}, nil
	default:
		return noRestore, nil
	}
}

func (r *GormCounterRepository) insertIfAbsentSQL() string {
	if r.db.Dialector.Name() == "mysql" {
		return "INSERT IGNORE INTO project_task_counters (project_id, last_number) VALUES (?, 0)"
	}
	return "INSERT INTO project_task_counters (project_id, last_number) VALUES (?, 0) ON CONFLICT (project_id) DO NOTHING"
}

func (r *GormCounterRepository) classify(err error) error {
	if isLockTimeout(err) {
		return fmt.Errorf("%w: %v", ErrCounterLockTimeout, err)
	}
	return err
}
