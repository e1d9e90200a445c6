package database

import (
	"fmt"

	"github.com/yukikurage/projecthub-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Organization{},
		&models.OrganizationMember{},
		&models.Invitation{},
		&models.Project{},
		&models.ProjectTaskCounter{},
		&models.TaskStatus{},
		&models.Sprint{},
		&models.Label{},
		&models.Task{},
		&models.TaskLabel{},
		&models.Comment{},
		&models.ActivityLog{},
		&models.Notification{},
	}
}

// Migrate creates or updates tables and then the secondary indexes that the
// model tags do not declare.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("Running database migrations...")
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := AddIndexes(db, log); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}
	log.Info("Database migrations completed")
	return nil
}

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Board queries: tasks of a status ordered by position
		{"tasks", "idx_tasks_project_status_position", "project_id, status_id, position"},
		{"tasks", "idx_tasks_org_created_at", "organization_id, created_at"},

		{"organization_members", "idx_org_members_user_id", "user_id"},

		{"comments", "idx_comments_task_created_at", "task_id, created_at"},
		{"activity_log", "idx_activity_log_task_created_at", "task_id, created_at"},

		{"notifications", "idx_notifications_user_unread", "user_id, is_read"},

		{"sprints", "idx_sprints_project_status", "project_id, status"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			log.Debug("Index already exists, skipping", zap.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("Created index", zap.String("index", idx.name), zap.String("table", idx.table), zap.String("columns", idx.columns))
	}

	return nil
}
