package models

import (
	"time"

	"gorm.io/datatypes"
)

type Comment struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	OrganizationID uint64         `gorm:"not null;index" json:"organization_id"`
	TaskID         uint64         `gorm:"not null;index" json:"task_id"`
	AuthorID       uint64         `gorm:"not null;index" json:"author_id"`
	Body           datatypes.JSON `gorm:"not null" json:"body_json"`
	IsEdited       bool           `gorm:"not null;default:false" json:"is_edited"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Author User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}
