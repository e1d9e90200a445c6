package repository

import (
	"context"
	"strings"

	"github.com/yukikurage/projecthub-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx)

	// Apply preloading if specified
	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

func (r *GormTaskRepository) FindByNumber(ctx context.Context, projectID uint64, number int64) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND number = ?", projectID, number).
		First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("tasks.organization_id = ? AND tasks.project_id = ?", filter.OrganizationID, filter.ProjectID)

	// Apply filters
	if filter.StatusID != nil {
		query = query.Where("tasks.status_id = ?", *filter.StatusID)
	}
	if filter.AssigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.Backlog {
		query = query.Where("tasks.sprint_id IS NULL")
	} else if filter.SprintID != nil {
		query = query.Where("tasks.sprint_id = ?", *filter.SprintID)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(tasks.title) LIKE LOWER(?)", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.status_id ASC").Order("tasks.position ASC").Order("tasks.number ASC")
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		listQuery = listQuery.Offset(offset).Limit(filter.PageSize)
	}

	if err := listQuery.Preload("Assignee").Preload("Labels").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error
}

func (r *GormTaskRepository) UpdateColumns(ctx context.Context, id uint64, columns map[string]interface{}) error {
	if len(columns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Task{ID: id}).Updates(columns).Error
}

// Delete deletes a task and its comments
func (r *GormTaskRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskLabel{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Task{}).Where("parent_task_id = ?", id).Update("parent_task_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, id).Error
	})
}

func (r *GormTaskRepository) MaxPosition(ctx context.Context, projectID, statusID uint64) (int64, error) {
	var max *int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("project_id = ? AND status_id = ?", projectID, statusID).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil || max == nil {
		return 0, err
	}
	return *max, nil
}

// UpdatePositions ignores ids that do not belong to projectID.
func (r *GormTaskRepository) UpdatePositions(ctx context.Context, projectID uint64, positions map[uint64]int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, pos := range positions {
			if err := tx.Model(&models.Task{}).
				Where("id = ? AND project_id = ?", id, projectID).
				Update("position", pos).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormTaskRepository) MoveUnfinishedToBacklog(ctx context.Context, sprintID uint64) (int64, error) {
	done := r.db.Model(&models.TaskStatus{}).
		Select("id").
		Where("category = ?", models.StatusCategoryDone)
	result := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("sprint_id = ? AND status_id NOT IN (?)", sprintID, done).
		Update("sprint_id", nil)
	return result.RowsAffected, result.Error
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (r *GormTaskRepository) Search(ctx context.Context, organizationID uint64, query string, limit int) ([]TaskSearchRow, error) {
	var rows []TaskSearchRow
	lowered := strings.ToLower(query)
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Select("tasks.id, tasks.title, tasks.number, tasks.project_id, tasks.status_id, tasks.updated_at, "+
			"projects.key AS project_key, task_statuses.name AS status_name").
		Joins("JOIN projects ON projects.id = tasks.project_id").
		Joins("JOIN task_statuses ON task_statuses.id = tasks.status_id").
		Where("tasks.organization_id = ? AND projects.is_archived = ?", organizationID, false).
		Where("LOWER(tasks.title) LIKE ? ESCAPE '!'", "%"+likeEscaper.Replace(lowered)+"%").
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "CASE WHEN LOWER(tasks.title) = ? THEN 0 ELSE 1 END, tasks.updated_at DESC, tasks.id DESC",
			Vars: []interface{}{lowered},
		}}).
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
