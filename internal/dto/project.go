package dto

import (
	"encoding/json"
	"time"

	"github.com/yukikurage/projecthub-api/internal/models"
)

type ProjectDTO struct {
	ID          uint64          `json:"id"`
	Key         string          `json:"key"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	IsArchived  bool            `json:"is_archived"`
	ArchivedAt  *time.Time      `json:"archived_at"`
	CreatedBy   uint64          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	Statuses    []TaskStatusDTO `json:"statuses,omitempty"`
}

type SprintDTO struct {
	ID          uint64              `json:"id"`
	ProjectID   uint64              `json:"project_id"`
	Name        string              `json:"name"`
	Goal        string              `json:"goal"`
	Status      models.SprintStatus `json:"status"`
	StartDate   *time.Time          `json:"start_date"`
	EndDate     *time.Time          `json:"end_date"`
	CompletedAt *time.Time          `json:"completed_at"`
	CreatedAt   time.Time           `json:"created_at"`
}

type CommentDTO struct {
	ID        uint64          `json:"id"`
	TaskID    uint64          `json:"task_id"`
	Body      json.RawMessage `json:"body_json"`
	IsEdited  bool            `json:"is_edited"`
	Author    *UserDTO        `json:"author,omitempty"`
	AuthorID  uint64          `json:"author_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type NotificationDTO struct {
	ID         uint64                  `json:"id"`
	Type       models.NotificationType `json:"type"`
	Title      string                  `json:"title"`
	Body       string                  `json:"body"`
	EntityType string                  `json:"entity_type"`
	EntityID   uint64                  `json:"entity_id"`
	IsRead     bool                    `json:"is_read"`
	CreatedAt  time.Time               `json:"created_at"`
}

type NotificationListResponse struct {
	Notifications []NotificationDTO `json:"notifications"`
	Total         int64             `json:"total"`
	UnreadCount   int64             `json:"unread_count"`
}

func ToProjectDTO(project models.Project) ProjectDTO {
	out := ProjectDTO{
		ID:          project.ID,
		Key:         project.Key,
		Name:        project.Name,
		Description: project.Description,
		IsArchived:  project.IsArchived,
		ArchivedAt:  project.ArchivedAt,
		CreatedBy:   project.CreatedBy,
		CreatedAt:   project.CreatedAt,
	}
	if len(project.Statuses) > 0 {
		out.Statuses = ToTaskStatusDTOs(project.Statuses)
	}
	return out
}

func ToProjectDTOs(projects []models.Project) []ProjectDTO {
	out := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		out[i] = ToProjectDTO(p)
	}
	return out
}

func ToTaskStatusDTOs(statuses []models.TaskStatus) []TaskStatusDTO {
	out := make([]TaskStatusDTO, len(statuses))
	for i, s := range statuses {
		out[i] = ToTaskStatusDTO(s)
	}
	return out
}

func ToSprintDTO(sprint models.Sprint) SprintDTO {
	return SprintDTO{
		ID:          sprint.ID,
		ProjectID:   sprint.ProjectID,
		Name:        sprint.Name,
		Goal:        sprint.Goal,
		Status:      sprint.Status,
		StartDate:   sprint.StartDate,
		EndDate:     sprint.EndDate,
		CompletedAt: sprint.CompletedAt,
		CreatedAt:   sprint.CreatedAt,
	}
}

func ToSprintDTOs(sprints []models.Sprint) []SprintDTO {
	out := make([]SprintDTO, len(sprints))
	for i, s := range sprints {
		out[i] = ToSprintDTO(s)
	}
	return out
}

func ToCommentDTO(comment models.Comment) CommentDTO {
	out := CommentDTO{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		Body:      rawJSON(comment.Body),
		IsEdited:  comment.IsEdited,
		AuthorID:  comment.AuthorID,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
	if comment.Author.ID != 0 {
		author := ToUserDTO(comment.Author)
		out.Author = &author
	}
	return out
}

func ToCommentDTOs(comments []models.Comment) []CommentDTO {
	out := make([]CommentDTO, len(comments))
	for i, c := range comments {
		out[i] = ToCommentDTO(c)
	}
	return out
}

func ToNotificationDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:         n.ID,
		Type:       n.Type,
		Title:      n.Title,
		Body:       n.Body,
		EntityType: n.EntityType,
		EntityID:   n.EntityID,
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt,
	}
}

func ToNotificationListResponse(ns []models.Notification, total, unread int64) NotificationListResponse {
	items := make([]NotificationDTO, len(ns))
	for i, n := range ns {
		items[i] = ToNotificationDTO(n)
	}
	return NotificationListResponse{Notifications: items, Total: total, UnreadCount: unread}
}
