package repository

import (
	"context"

	"github.com/yukikurage/projecthub-api/internal/models"
	"gorm.io/gorm"
)

type GormSprintRepository struct {
	db *gorm.DB
}

func NewSprintRepository(db *gorm.DB) SprintRepository {
	return &GormSprintRepository{db: db}
}

func (r *GormSprintRepository) Create(ctx context.Context, sprint *models.Sprint) error {
	return r.db.WithContext(ctx).Create(sprint).Error
}

func (r *GormSprintRepository) FindByID(ctx context.Context, projectID, id uint64) (*models.Sprint, error) {
	var sprint models.Sprint
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND id = ?", projectID, id).
		First(&sprint).Error; err != nil {
		return nil, err
	}
	return &sprint, nil
}

func (r *GormSprintRepository) FindActive(ctx context.Context, projectID uint64) (*models.Sprint, error) {
	var sprint models.Sprint
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ?", projectID, models.SprintActive).
		First(&sprint).Error; err != nil {
		return nil, err
	}
	return &sprint, nil
}

func (r *GormSprintRepository) ListByProject(ctx context.Context, projectID uint64) ([]models.Sprint, error) {
	var sprints []models.Sprint
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&sprints).Error
	return sprints, err
}

func (r *GormSprintRepository) Update(ctx context.Context, sprint *models.Sprint) error {
	return r.db.WithContext(ctx).Save(sprint).Error
}

func (r *GormSprintRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).Where("sprint_id = ?", id).Update("sprint_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Sprint{}, id).Error
	})
}
