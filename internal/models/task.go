package models

import (
	"time"

	"gorm.io/datatypes"
)

type TaskPriority string

const (
	PriorityUrgent TaskPriority = "urgent"
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
	PriorityNone   TaskPriority = "none"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow, PriorityNone:
		return true
	}
	return false
}

type TaskType string

const (
	TaskTypeStory   TaskType = "story"
	TaskTypeBug     TaskType = "bug"
	TaskTypeTask    TaskType = "task"
	TaskTypeSubtask TaskType = "subtask"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeStory, TaskTypeBug, TaskTypeTask, TaskTypeSubtask:
		return true
	}
	return false
}

type Task struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	OrganizationID uint64         `gorm:"not null;index" json:"organization_id"`
	ProjectID      uint64         `gorm:"not null;uniqueIndex:idx_tasks_project_number,priority:1" json:"project_id"`
	Number         int64          `gorm:"not null;uniqueIndex:idx_tasks_project_number,priority:2" json:"number"`
	Title          string         `gorm:"type:varchar(500);not null" json:"title"`
	Description    datatypes.JSON `json:"description_json"`
	StatusID       uint64         `gorm:"not null;index" json:"status_id"`
	AssigneeID     *uint64        `gorm:"index" json:"assignee_id"`
	ReporterID     uint64         `gorm:"not null" json:"reporter_id"`
	Priority       TaskPriority   `gorm:"type:varchar(20);not null;default:'none'" json:"priority"`
	Type           TaskType       `gorm:"type:varchar(20);not null;default:'task'" json:"type"`
	ParentTaskID   *uint64        `json:"parent_task_id"`
	SprintID       *uint64        `gorm:"index" json:"sprint_id"`
	Position       int64          `gorm:"not null;default:0" json:"position"`
	DueDate        *time.Time     `json:"due_date"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	// Relations
	Status   TaskStatus `gorm:"foreignKey:StatusID" json:"status,omitempty"`
	Reporter User       `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
	Assignee *User      `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Labels   []Label    `gorm:"many2many:task_labels" json:"labels,omitempty"`
}
