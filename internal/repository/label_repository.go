package repository

import (
	"context"

	"github.com/yukikurage/projecthub-api/internal/models"
	"gorm.io/gorm"
)

type GormLabelRepository struct {
	db *gorm.DB
}

func NewLabelRepository(db *gorm.DB) LabelRepository {
	return &GormLabelRepository{db: db}
}

func (r *GormLabelRepository) Create(ctx context.Context, label *models.Label) error {
	return r.db.WithContext(ctx).Create(label).Error
}

func (r *GormLabelRepository) ListByProject(ctx context.Context, projectID uint64) ([]models.Label, error) {
	var labels []models.Label
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("name ASC").
		Find(&labels).Error
	return labels, err
}

func (r *GormLabelRepository) FindInProject(ctx context.Context, projectID uint64, ids []uint64) ([]models.Label, error) {
	var labels []models.Label
	if len(ids) == 0 {
		return labels, nil
	}
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND id IN ?", projectID, ids).
		Find(&labels).Error
	return labels, err
}

func (r *GormLabelRepository) ReplaceForTask(ctx context.Context, taskID uint64, labelIDs []uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskLabel{}).Error; err != nil {
			return err
		}
		if len(labelIDs) == 0 {
			return nil
		}
		rows := make([]models.TaskLabel, len(labelIDs))
		for i, id := range labelIDs {
			rows[i] = models.TaskLabel{TaskID: taskID, LabelID: id}
		}
		return tx.Create(&rows).Error
	})
}
