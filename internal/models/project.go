package models

import (
	"time"
)

type Project struct {
	ID             uint64     `gorm:"primarykey" json:"id"`
	OrganizationID uint64     `gorm:"not null;uniqueIndex:idx_projects_org_key,priority:1" json:"organization_id"`
	Key            string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_projects_org_key,priority:2" json:"key"`
	Name           string     `gorm:"type:varchar(255);not null" json:"name"`
	Description    string     `gorm:"type:text" json:"description"`
	IsArchived     bool       `gorm:"not null;default:false" json:"is_archived"`
	ArchivedAt     *time.Time `json:"archived_at"`
	CreatedBy      uint64     `gorm:"not null" json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relations
	Statuses []TaskStatus `gorm:"foreignKey:ProjectID" json:"statuses,omitempty"`
}

// ProjectTaskCounter holds the last task number handed out for a project.
// It is the only source of truth for numbering; tasks are never scanned.
type ProjectTaskCounter struct {
	ProjectID  uint64 `gorm:"primarykey;autoIncrement:false" json:"project_id"`
	LastNumber int64  `gorm:"not null;default:0" json:"last_number"`
}
