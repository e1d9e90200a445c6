package dto

import (
	"encoding/json"
	"time"

	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID          uint64 `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// TaskStatusDTO represents a workflow status column
type TaskStatusDTO struct {
	ID       uint64                `json:"id"`
	Name     string                `json:"name"`
	Category models.StatusCategory `json:"category"`
	Position int                   `json:"position"`
	Color    string                `json:"color"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID             uint64              `json:"id"`
	OrganizationID uint64              `json:"organization_id"`
	ProjectID      uint64              `json:"project_id"`
	Number         int64               `json:"number"`
	Title          string              `json:"title"`
	Description    json.RawMessage     `json:"description_json"`
	StatusID       uint64              `json:"status_id"`
	AssigneeID     *uint64             `json:"assignee_id"`
	ReporterID     uint64              `json:"reporter_id"`
	Priority       models.TaskPriority `json:"priority"`
	Type           models.TaskType     `json:"type"`
	ParentTaskID   *uint64             `json:"parent_task_id"`
	SprintID       *uint64             `json:"sprint_id"`
	Position       int64               `json:"position"`
	DueDate        *time.Time          `json:"due_date"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Status         *TaskStatusDTO      `json:"status,omitempty"`
	Assignee       *UserDTO            `json:"assignee,omitempty"`
	Reporter       *UserDTO            `json:"reporter,omitempty"`
	Labels         []LabelDTO          `json:"labels"`
}

// LabelDTO is a project label
type LabelDTO struct {
	ID        uint64    `json:"id"`
	ProjectID uint64    `json:"project_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ActivityDTO is one audit row
type ActivityDTO struct {
	ID         uint64          `json:"id"`
	TaskID     *uint64         `json:"task_id"`
	ActorID    uint64          `json:"actor_id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   uint64          `json:"entity_id"`
	OldValue   json.RawMessage `json:"old_value,omitempty"`
	NewValue   json.RawMessage `json:"new_value,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

func ToTaskStatusDTO(status models.TaskStatus) TaskStatusDTO {
	return TaskStatusDTO{
		ID:       status.ID,
		Name:     status.Name,
		Category: status.Category,
		Position: status.Position,
		Color:    status.Color,
	}
}

// ToTaskDTO converts a Task model to TaskDTO. Relations are included when loaded.
func ToTaskDTO(task models.Task) TaskDTO {
	out := TaskDTO{
		ID:             task.ID,
		OrganizationID: task.OrganizationID,
		ProjectID:      task.ProjectID,
		Number:         task.Number,
		Title:          task.Title,
		Description:    rawJSON(task.Description),
		StatusID:       task.StatusID,
		AssigneeID:     task.AssigneeID,
		ReporterID:     task.ReporterID,
		Priority:       task.Priority,
		Type:           task.Type,
		ParentTaskID:   task.ParentTaskID,
		SprintID:       task.SprintID,
		Position:       task.Position,
		DueDate:        task.DueDate,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
		Labels:         ToLabelDTOs(task.Labels),
	}
	if task.Status.ID != 0 {
		status := ToTaskStatusDTO(task.Status)
		out.Status = &status
	}
	if task.Assignee != nil && task.Assignee.ID != 0 {
		assignee := ToUserDTO(*task.Assignee)
		out.Assignee = &assignee
	}
	if task.Reporter.ID != 0 {
		reporter := ToUserDTO(task.Reporter)
		out.Reporter = &reporter
	}
	return out
}

func ToLabelDTO(label models.Label) LabelDTO {
	return LabelDTO{
		ID:        label.ID,
		ProjectID: label.ProjectID,
		Name:      label.Name,
		Color:     label.Color,
		CreatedAt: label.CreatedAt,
	}
}

func ToLabelDTOs(labels []models.Label) []LabelDTO {
	out := make([]LabelDTO, len(labels))
	for i, l := range labels {
		out[i] = ToLabelDTO(l)
	}
	return out
}

func ToTaskListResponse(tasks []models.Task, pagination utils.PaginationResponse) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}
	return TaskListResponse{Tasks: items, Pagination: pagination}
}

func ToActivityDTOs(rows []models.ActivityLog) []ActivityDTO {
	out := make([]ActivityDTO, len(rows))
	for i, row := range rows {
		out[i] = ActivityDTO{
			ID:         row.ID,
			TaskID:     row.TaskID,
			ActorID:    row.ActorID,
			Action:     row.Action,
			EntityType: row.EntityType,
			EntityID:   row.EntityID,
			OldValue:   rawJSON(row.OldValue),
			NewValue:   rawJSON(row.NewValue),
			CreatedAt:  row.CreatedAt,
		}
	}
	return out
}

// rawJSON passes stored JSON through unchanged; empty columns become null.
func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
