package repository

import (
	"context"

	"github.com/yukikurage/projecthub-api/internal/models"
	"gorm.io/gorm"
)

type GormActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &GormActivityRepository{db: db}
}

func (r *GormActivityRepository) Create(ctx context.Context, entries ...*models.ActivityLog) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(entries).Error
}

// ListByTask returns entries newest first.
func (r *GormActivityRepository) ListByTask(ctx context.Context, organizationID, taskID uint64, limit int) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	query := r.db.WithContext(ctx).
		Where("organization_id = ? AND task_id = ?", organizationID, taskID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	return entries, err
}
