package models

import "time"

type SprintStatus string

const (
	SprintPlanned   SprintStatus = "planned"
	SprintActive    SprintStatus = "active"
	SprintCompleted SprintStatus = "completed"
)

type Sprint struct {
	ID             uint64       `gorm:"primarykey" json:"id"`
	OrganizationID uint64       `gorm:"not null;index" json:"organization_id"`
	ProjectID      uint64       `gorm:"not null;index" json:"project_id"`
	Name           string       `gorm:"type:varchar(255);not null" json:"name"`
	Goal           string       `gorm:"type:text" json:"goal"`
	Status         SprintStatus `gorm:"type:varchar(20);not null;default:'planned'" json:"status"`
	StartDate      *time.Time   `json:"start_date"`
	EndDate        *time.Time   `json:"end_date"`
	CompletedAt    *time.Time   `json:"completed_at"`
	CreatedBy      uint64       `gorm:"not null" json:"created_by"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
