package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"gorm.io/datatypes"
)

const (
	entityTask = "task"

	defaultActivityLimit = 100
)

// ActivityEntry is one audit row before it is stored.
type ActivityEntry struct {
	OrganizationID uint64
	TaskID         *uint64
	ActorID        uint64
	Action         string
	EntityType     string
	EntityID       uint64
	OldValue       interface{}
	NewValue       interface{}
}

// ActivityRecorder appends audit rows. It has no way to change or remove them.
type ActivityRecorder struct {
	repo repository.ActivityRepository
}

func NewActivityRecorder(repo repository.ActivityRepository) *ActivityRecorder {
	return &ActivityRecorder{repo: repo}
}

func (r *ActivityRecorder) Record(ctx context.Context, entries ...ActivityEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.ActivityLog, 0, len(entries))
	for _, e := range entries {
		oldValue, err := encodeValue(e.OldValue)
		if err != nil {
			return err
		}
		newValue, err := encodeValue(e.NewValue)
		if err != nil {
			return err
		}
		rows = append(rows, &models.ActivityLog{
			OrganizationID: e.OrganizationID,
			TaskID:         e.TaskID,
			ActorID:        e.ActorID,
			Action:         e.Action,
			EntityType:     e.EntityType,
			EntityID:       e.EntityID,
			OldValue:       oldValue,
			NewValue:       newValue,
		})
	}
	if err := r.repo.Create(ctx, rows...); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

func (r *ActivityRecorder) RecordTaskCreated(ctx context.Context, task *models.Task, actorID uint64) error {
	taskID := task.ID
	return r.Record(ctx, ActivityEntry{
		OrganizationID: task.OrganizationID,
		TaskID:         &taskID,
		ActorID:        actorID,
		Action:         models.ActionTaskCreated,
		EntityType:     entityTask,
		EntityID:       task.ID,
		NewValue:       map[string]interface{}{"title": task.Title, "number": task.Number},
	})
}

// RecordDiff writes one FIELD_UPDATED row per changed field.
func (r *ActivityRecorder) RecordDiff(ctx context.Context, task *models.Task, actorID uint64, diff Diff) error {
	taskID := task.ID
	entries := make([]ActivityEntry, 0, len(diff))
	for _, change := range diff {
		entries = append(entries, ActivityEntry{
			OrganizationID: task.OrganizationID,
			TaskID:         &taskID,
			ActorID:        actorID,
			Action:         models.ActionFieldUpdated,
			EntityType:     entityTask,
			EntityID:       task.ID,
			OldValue:       map[string]interface{}{change.Field: change.Old},
			NewValue:       map[string]interface{}{change.Field: change.New},
		})
	}
	return r.Record(ctx, entries...)
}

// ListForTask returns the newest entries first.
func (r *ActivityRecorder) ListForTask(ctx context.Context, organizationID, taskID uint64) ([]models.ActivityLog, error) {
	entries, err := r.repo.ListByTask(ctx, organizationID, taskID, defaultActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return entries, nil
}

func encodeValue(v interface{}) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode activity value: %w", err)
	}
	return datatypes.JSON(b), nil
}
