package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/projecthub-api/internal/constants"
	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/metrics"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/notify"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"github.com/yukikurage/projecthub-api/internal/tenancy"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

var (
	ErrTaskNotFound        = apierrors.New(apierrors.KindNotFound, "TASK_NOT_FOUND", "Task not found")
	ErrTaskDeleteForbidden = apierrors.New(apierrors.KindForbidden, "TASK_DELETE_FORBIDDEN", "Only the reporter or an owner/admin can delete this task")
	ErrProjectArchived     = apierrors.New(apierrors.KindConflict, "PROJECT_ARCHIVED", "Project is archived")
	ErrTaskNumberBusy      = apierrors.New(apierrors.KindTransient, apierrors.ErrCodeRetryableConflict, "Task number allocation timed out, retry the request")
	ErrTaskNumberTaken     = apierrors.New(apierrors.KindConflict, "TASK_NUMBER_CONFLICT", "Task number already in use")
	ErrProjectHasNoStatus  = apierrors.New(apierrors.KindValidation, "PROJECT_HAS_NO_STATUS", "Project has no statuses")
)

// TaskService handles task business logic
type TaskService struct {
	store      *repository.Store
	dispatcher *notify.Dispatcher
	log        *zap.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(store *repository.Store, dispatcher *notify.Dispatcher, log *zap.Logger) *TaskService {
	return &TaskService{
		store:      store,
		dispatcher: dispatcher,
		log:        log.Named("tasks"),
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title        string
	Description  json.RawMessage
	StatusID     *uint64
	AssigneeID   *uint64
	Priority     models.TaskPriority
	Type         models.TaskType
	SprintID     *uint64
	ParentTaskID *uint64
	DueDate      *time.Time
	LabelIDs     []uint64
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	StatusID   *uint64
	AssigneeID *uint64
	SprintID   *uint64
	Backlog    bool
	Priority   *models.TaskPriority
	Search     string
	Page       int
	PageSize   int
}

// MoveTaskInput moves a task to a status column. A nil Position appends it.
type MoveTaskInput struct {
	StatusID uint64
	Position *int64
}

// CreateTask allocates the next project number and inserts the task in one
// transaction. The counter row is locked before the task row is written.
func (s *TaskService) CreateTask(ctx context.Context, member *models.OrganizationMember, projectID uint64, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if input.Priority == "" {
		input.Priority = models.PriorityNone
	}
	if !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if input.Type == "" {
		input.Type = models.TaskTypeTask
	}
	if !input.Type.Valid() {
		return nil, ErrInvalidType
	}
	if len(input.Description) > 0 && !isJSONObject(input.Description) {
		return nil, ErrInvalidDocument
	}

	var (
		task    *models.Task
		project *models.Project
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		project, err = loadProject(ctx, tx, member.OrganizationID, projectID)
		if err != nil {
			return err
		}
		if project.IsArchived {
			return ErrProjectArchived
		}

		v := storeValidator{store: tx}
		status, err := s.initialStatus(ctx, tx, project.ID, input.StatusID)
		if err != nil {
			return err
		}
		if input.AssigneeID != nil {
			ok, err := v.IsMember(ctx, member.OrganizationID, *input.AssigneeID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrInvalidAssignee
			}
		}
		if input.SprintID != nil {
			ok, err := v.SprintInProject(ctx, project.ID, *input.SprintID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrInvalidSprint
			}
		}
		if input.ParentTaskID != nil {
			ok, err := v.TaskInProject(ctx, project.ID, *input.ParentTaskID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrInvalidParent
			}
		}
		labelIDs := normalizeIDs(input.LabelIDs)
		if len(labelIDs) > 0 {
			ok, err := v.LabelsInProject(ctx, project.ID, labelIDs)
			if err != nil {
				return err
			}
			if !ok {
				return ErrLabelNotFound
			}
		}

		number, err := tx.Counters.Allocate(ctx, project.ID)
		if err != nil {
			if errors.Is(err, repository.ErrCounterLockTimeout) {
				metrics.RecordCounterLockTimeout()
				return ErrTaskNumberBusy.Wrap(err)
			}
			return fmt.Errorf("failed to allocate task number: %w", err)
		}

		maxPosition, err := tx.Tasks.MaxPosition(ctx, project.ID, status.ID)
		if err != nil {
			return fmt.Errorf("failed to read column position: %w", err)
		}

		task = &models.Task{
			OrganizationID: member.OrganizationID,
			ProjectID:      project.ID,
			Number:         number,
			Title:          title,
			StatusID:       status.ID,
			AssigneeID:     input.AssigneeID,
			ReporterID:     member.UserID,
			Priority:       input.Priority,
			Type:           input.Type,
			ParentTaskID:   input.ParentTaskID,
			SprintID:       input.SprintID,
			Position:       InitialPosition(maxPosition),
			DueDate:        input.DueDate,
		}
		if len(input.Description) > 0 {
			task.Description = datatypes.JSON(input.Description)
		}
		if err := tx.Tasks.Create(ctx, task); err != nil {
			if repository.IsUniqueViolation(err) {
				s.log.Error("task number collision",
					zap.Uint64("project_id", project.ID),
					zap.Int64("number", number),
				)
				return ErrTaskNumberTaken.Wrap(err)
			}
			return fmt.Errorf("failed to create task: %w", err)
		}
		if len(labelIDs) > 0 {
			if err := tx.Labels.ReplaceForTask(ctx, task.ID, labelIDs); err != nil {
				return fmt.Errorf("failed to attach labels: %w", err)
			}
		}

		return NewActivityRecorder(tx.Activity).RecordTaskCreated(ctx, task, member.UserID)
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordTaskNumberAllocated()

	if msg, ok := notify.AssignmentNotice(member.UserID, taskRef(project, task), nil, task.AssigneeID); ok {
		s.dispatcher.Enqueue(ctx, msg)
	}

	return s.store.Tasks.FindByID(ctx, task.ID, "Status", "Assignee", "Reporter", "Labels")
}

func (s *TaskService) initialStatus(ctx context.Context, tx *repository.Store, projectID uint64, statusID *uint64) (*models.TaskStatus, error) {
	if statusID != nil {
		return storeValidator{store: tx}.StatusInProject(ctx, projectID, *statusID)
	}
	statuses, err := tx.Statuses.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	if len(statuses) == 0 {
		return nil, ErrProjectHasNoStatus
	}
	return &statuses[0], nil
}

// ListTasks returns one page of a project's tasks.
func (s *TaskService) ListTasks(ctx context.Context, member *models.OrganizationMember, projectID uint64, input ListTasksInput) ([]models.Task, int64, error) {
	project, err := loadProject(ctx, s.store, member.OrganizationID, projectID)
	if err != nil {
		return nil, 0, err
	}

	tasks, total, err := s.store.Tasks.List(ctx, repository.TaskFilter{
		OrganizationID: member.OrganizationID,
		ProjectID:      project.ID,
		StatusID:       input.StatusID,
		AssigneeID:     input.AssigneeID,
		SprintID:       input.SprintID,
		Backlog:        input.Backlog,
		Priority:       input.Priority,
		Search:         strings.TrimSpace(input.Search),
		Page:           input.Page,
		PageSize:       input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// GetTask returns a task with related data
func (s *TaskService) GetTask(ctx context.Context, member *models.OrganizationMember, taskID uint64) (*models.Task, error) {
	return loadTask(ctx, s.store, member.OrganizationID, taskID, "Status", "Assignee", "Reporter", "Labels")
}

// GetTaskByNumber looks a task up by its project-scoped number.
func (s *TaskService) GetTaskByNumber(ctx context.Context, member *models.OrganizationMember, projectID uint64, number int64) (*models.Task, error) {
	project, err := loadProject(ctx, s.store, member.OrganizationID, projectID)
	if err != nil {
		return nil, err
	}
	task, err := s.store.Tasks.FindByNumber(ctx, project.ID, number)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return s.GetTask(ctx, member, task.ID)
}

// UpdateTask applies patch and records one activity row per changed field.
func (s *TaskService) UpdateTask(ctx context.Context, member *models.OrganizationMember, taskID uint64, patch TaskPatch) (*models.Task, error) {
	return s.update(ctx, member, taskID, func(context.Context, *repository.Store, *models.Task) (TaskPatch, error) {
		return patch, nil
	})
}

// MoveTask changes a task's status column and position.
func (s *TaskService) MoveTask(ctx context.Context, member *models.OrganizationMember, taskID uint64, input MoveTaskInput) (*models.Task, error) {
	return s.update(ctx, member, taskID, func(ctx context.Context, tx *repository.Store, task *models.Task) (TaskPatch, error) {
		patch := TaskPatch{StatusID: Some(input.StatusID)}
		if input.Position != nil {
			patch.Position = Some(*input.Position)
			return patch, nil
		}
		if input.StatusID == task.StatusID {
			return patch, nil
		}
		maxPosition, err := tx.Tasks.MaxPosition(ctx, task.ProjectID, input.StatusID)
		if err != nil {
			return TaskPatch{}, fmt.Errorf("failed to read column position: %w", err)
		}
		patch.Position = Some(InitialPosition(maxPosition))
		return patch, nil
	})
}

type patchBuilder func(ctx context.Context, tx *repository.Store, task *models.Task) (TaskPatch, error)

func (s *TaskService) update(ctx context.Context, member *models.OrganizationMember, taskID uint64, build patchBuilder) (*models.Task, error) {
	var (
		task       *models.Task
		project    *models.Project
		transition *Transition
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		task, err = loadTask(ctx, tx, member.OrganizationID, taskID, "Labels")
		if err != nil {
			return err
		}
		patch, err := build(ctx, tx, task)
		if err != nil {
			return err
		}
		transition, err = ApplyPatch(ctx, task, patch, storeValidator{store: tx})
		if err != nil {
			return err
		}
		if len(transition.Diff) == 0 {
			return nil
		}
		if err := tx.Tasks.UpdateColumns(ctx, task.ID, changedColumns(task, transition.Diff)); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		if transition.Diff.Has("label_ids") {
			if err := tx.Labels.ReplaceForTask(ctx, task.ID, transition.LabelIDs); err != nil {
				return fmt.Errorf("failed to replace labels: %w", err)
			}
		}
		if err := NewActivityRecorder(tx.Activity).RecordDiff(ctx, task, member.UserID, transition.Diff); err != nil {
			return err
		}
		project, err = loadProject(ctx, tx, task.OrganizationID, task.ProjectID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if project != nil {
		s.dispatcher.Enqueue(ctx, transitionNotices(member.UserID, taskRef(project, task), transition, task.AssigneeID)...)
	}

	return s.GetTask(ctx, member, task.ID)
}

func transitionNotices(actorID uint64, ref notify.TaskRef, t *Transition, assigneeID *uint64) []notify.Message {
	var msgs []notify.Message
	if t.Diff.Has("assignee_id") {
		if msg, ok := notify.AssignmentNotice(actorID, ref, t.OldAssigneeID, assigneeID); ok {
			msgs = append(msgs, msg)
		}
	}
	if msg, ok := notify.CompletionNotice(actorID, ref, t.OldStatusID, t.NewStatus); ok {
		msgs = append(msgs, msg)
	}
	return msgs
}

// ReorderTasks rewrites positions so the given tasks appear in order.
// Ids outside the project are ignored.
func (s *TaskService) ReorderTasks(ctx context.Context, member *models.OrganizationMember, projectID uint64, taskIDs []uint64) error {
	project, err := loadProject(ctx, s.store, member.OrganizationID, projectID)
	if err != nil {
		return err
	}
	positions := make(map[uint64]int64, len(taskIDs))
	for i, id := range uniqueUint64(taskIDs) {
		positions[id] = int64(i+1) * constants.PositionGap
	}
	if err := s.store.Tasks.UpdatePositions(ctx, project.ID, positions); err != nil {
		return fmt.Errorf("failed to reorder tasks: %w", err)
	}
	return nil
}

// DeleteTask deletes a task if the actor reported it or manages the organization
func (s *TaskService) DeleteTask(ctx context.Context, member *models.OrganizationMember, taskID uint64) error {
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		task, err := loadTask(ctx, tx, member.OrganizationID, taskID)
		if err != nil {
			return err
		}
		if task.ReporterID != member.UserID && !tenancy.Managers.Contains(member.Role) {
			return ErrTaskDeleteForbidden
		}
		if err := tx.Tasks.Delete(ctx, task.ID); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return NewActivityRecorder(tx.Activity).Record(ctx, ActivityEntry{
			OrganizationID: task.OrganizationID,
			ActorID:        member.UserID,
			Action:         models.ActionTaskDeleted,
			EntityType:     entityTask,
			EntityID:       task.ID,
			OldValue:       map[string]interface{}{"title": task.Title, "number": task.Number},
		})
	})
}

// ListActivity returns the task's audit trail, newest first.
func (s *TaskService) ListActivity(ctx context.Context, member *models.OrganizationMember, taskID uint64) ([]models.ActivityLog, error) {
	task, err := loadTask(ctx, s.store, member.OrganizationID, taskID)
	if err != nil {
		return nil, err
	}
	return NewActivityRecorder(s.store.Activity).ListForTask(ctx, task.OrganizationID, task.ID)
}

// loadTask returns ErrTaskNotFound for tasks of other organizations.
func loadTask(ctx context.Context, store *repository.Store, organizationID, taskID uint64, preload ...string) (*models.Task, error) {
	task, err := store.Tasks.FindByID(ctx, taskID, preload...)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task.OrganizationID != organizationID {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func taskRef(project *models.Project, task *models.Task) notify.TaskRef {
	return notify.TaskRef{
		OrganizationID: task.OrganizationID,
		TaskID:         task.ID,
		ProjectKey:     project.Key,
		Number:         task.Number,
		Title:          task.Title,
		ReporterID:     task.ReporterID,
	}
}

// changedColumns maps diff fields to the task's new column values so that
// concurrent updates to different fields do not overwrite each other.
func changedColumns(task *models.Task, diff Diff) map[string]interface{} {
	columns := make(map[string]interface{}, len(diff))
	for _, c := range diff {
		switch c.Field {
		case "title":
			columns["title"] = task.Title
		case "description_json":
			columns["description"] = task.Description
		case "status_id":
			columns["status_id"] = task.StatusID
		case "assignee_id":
			columns["assignee_id"] = task.AssigneeID
		case "priority":
			columns["priority"] = task.Priority
		case "type":
			columns["type"] = task.Type
		case "sprint_id":
			columns["sprint_id"] = task.SprintID
		case "parent_task_id":
			columns["parent_task_id"] = task.ParentTaskID
		case "due_date":
			columns["due_date"] = task.DueDate
		case "position":
			columns["position"] = task.Position
		case "label_ids":
			columns["updated_at"] = time.Now()
		}
	}
	return columns
}

// storeValidator checks patch references against the database.
type storeValidator struct {
	store *repository.Store
}

func (v storeValidator) StatusInProject(ctx context.Context, projectID, statusID uint64) (*models.TaskStatus, error) {
	status, err := v.store.Statuses.FindByID(ctx, statusID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidStatus
		}
		return nil, fmt.Errorf("failed to find status: %w", err)
	}
	if status.ProjectID != projectID {
		return nil, ErrInvalidStatus
	}
	return status, nil
}

func (v storeValidator) IsMember(ctx context.Context, organizationID, userID uint64) (bool, error) {
	if _, err := v.store.Organizations.FindMember(ctx, organizationID, userID); err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to verify organization membership: %w", err)
	}
	return true, nil
}

func (v storeValidator) SprintInProject(ctx context.Context, projectID, sprintID uint64) (bool, error) {
	if _, err := v.store.Sprints.FindByID(ctx, projectID, sprintID); err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to find sprint: %w", err)
	}
	return true, nil
}

func (v storeValidator) TaskInProject(ctx context.Context, projectID, taskID uint64) (bool, error) {
	task, err := v.store.Tasks.FindByID(ctx, taskID)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to find task: %w", err)
	}
	return task.ProjectID == projectID, nil
}

func (v storeValidator) LabelsInProject(ctx context.Context, projectID uint64, labelIDs []uint64) (bool, error) {
	labels, err := v.store.Labels.FindInProject(ctx, projectID, labelIDs)
	if err != nil {
		return false, fmt.Errorf("failed to find labels: %w", err)
	}
	return len(labels) == len(labelIDs), nil
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
