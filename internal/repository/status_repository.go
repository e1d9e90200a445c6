package repository

import (
	"context"

	"github.com/yukikurage/projecthub-api/internal/models"
	"gorm.io/gorm"
)

type GormStatusRepository struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &GormStatusRepository{db: db}
}

func (r *GormStatusRepository) CreateBatch(ctx context.Context, statuses []models.TaskStatus) error {
	if len(statuses) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&statuses).Error
}

func (r *GormStatusRepository) Create(ctx context.Context, status *models.TaskStatus) error {
	return r.db.WithContext(ctx).Create(status).Error
}

func (r *GormStatusRepository) FindByID(ctx context.Context, id uint64) (*models.TaskStatus, error) {
	var status models.TaskStatus
	if err := r.db.WithContext(ctx).First(&status, id).Error; err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *GormStatusRepository) ListByProject(ctx context.Context, projectID uint64) ([]models.TaskStatus, error) {
	var statuses []models.TaskStatus
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("position ASC").
		Find(&statuses).Error
	return statuses, err
}

func (r *GormStatusRepository) MaxPosition(ctx context.Context, projectID uint64) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).Model(&models.TaskStatus{}).
		Where("project_id = ?", projectID).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil || max == nil {
		return 0, err
	}
	return *max, nil
}
