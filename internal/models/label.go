package models

import "time"

const DefaultLabelColor = "#6366f1"

// Label is a project-scoped tag that can be attached to tasks.
type Label struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	OrganizationID uint64    `gorm:"not null;index" json:"organization_id"`
	ProjectID      uint64    `gorm:"not null;index" json:"project_id"`
	Name           string    `gorm:"type:varchar(50);not null" json:"name"`
	Color          string    `gorm:"type:varchar(7);not null;default:'#6366f1'" json:"color"`
	CreatedAt      time.Time `json:"created_at"`
}

// TaskLabel is the join row between a task and a label.
type TaskLabel struct {
	TaskID  uint64 `gorm:"primaryKey;autoIncrement:false" json:"task_id"`
	LabelID uint64 `gorm:"primaryKey;autoIncrement:false;index" json:"label_id"`
}
