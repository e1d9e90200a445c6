package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ActionTaskCreated  = "TASK_CREATED"
	ActionFieldUpdated = "FIELD_UPDATED"
	ActionTaskDeleted  = "TASK_DELETED"
	ActionCommentAdded = "COMMENT_ADDED"
)

// ActivityLog is an append-only audit row. Nothing updates or deletes it.
type ActivityLog struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	OrganizationID uint64         `gorm:"not null;index" json:"organization_id"`
	TaskID         *uint64        `gorm:"index" json:"task_id"`
	ActorID        uint64         `gorm:"not null;index" json:"actor_id"`
	Action         string         `gorm:"type:varchar(100);not null" json:"action"`
	EntityType     string         `gorm:"type:varchar(50);not null" json:"entity_type"`
	EntityID       uint64         `gorm:"not null" json:"entity_id"`
	OldValue       datatypes.JSON `json:"old_value"`
	NewValue       datatypes.JSON `json:"new_value"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_log"
}
