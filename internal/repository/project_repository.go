package repository

import (
	"context"

	"github.com/yukikurage/projecthub-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error
}

// FindByID scopes the lookup to the organization so ids from another tenant never resolve.
func (r *GormProjectRepository) FindByID(ctx context.Context, organizationID, id uint64) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).
		Preload("Statuses", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *GormProjectRepository) ListByOrganization(ctx context.Context, organizationID uint64, includeArchived bool) ([]models.Project, error) {
	var projects []models.Project
	query := r.db.WithContext(ctx).Where("organization_id = ?", organizationID)
	if !includeArchived {
		query = query.Where("is_archived = ?", false)
	}
	err := query.Order("created_at ASC").Find(&projects).Error
	return projects, err
}

func (r *GormProjectRepository) Update(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(project).Error
}
