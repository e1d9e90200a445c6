package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Store bundles the repositories over one database handle. A Store built
// inside Transaction shares the transaction across every repository.
type Store struct {
	db          *gorm.DB
	lockTimeout time.Duration

	Users         UserRepository
	Organizations OrganizationRepository
	Invitations   InvitationRepository
	Projects      ProjectRepository
	Counters      CounterRepository
	Statuses      StatusRepository
	Tasks         TaskRepository
	Comments      CommentRepository
	Activity      ActivityRepository
	Notifications NotificationRepository
	Sprints       SprintRepository
	Labels        LabelRepository
}

// NewStore creates a Store. lockTimeout bounds how long task-number
// allocation waits for the project counter row.
func NewStore(db *gorm.DB, lockTimeout time.Duration) *Store {
	return &Store{
		db:            db,
		lockTimeout:   lockTimeout,
		Users:         NewUserRepository(db),
		Organizations: NewOrganizationRepository(db),
		Invitations:   NewInvitationRepository(db),
		Projects:      NewProjectRepository(db),
		Counters:      NewCounterRepository(db, lockTimeout),
		Statuses:      NewStatusRepository(db),
		Tasks:         NewTaskRepository(db),
		Comments:      NewCommentRepository(db),
		Activity:      NewActivityRepository(db),
		Notifications: NewNotificationRepository(db),
		Sprints:       NewSprintRepository(db),
		Labels:        NewLabelRepository(db),
	}
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn with a Store bound to a single transaction. fn's error
// rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx, s.lockTimeout))
	})
}
