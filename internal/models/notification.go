package models

import "time"

type NotificationType string

const (
	NotificationTaskAssigned NotificationType = "TASK_ASSIGNED"
	NotificationTaskDone     NotificationType = "TASK_DONE"
	NotificationMention      NotificationType = "MENTION"
)

// Notification rows are written only by the notification worker.
// DispatchKey makes repeated deliveries of the same queue message idempotent.
type Notification struct {
	ID             uint64           `gorm:"primarykey" json:"id"`
	OrganizationID uint64           `gorm:"not null;index:idx_notifications_org_user,priority:1" json:"organization_id"`
	UserID         uint64           `gorm:"not null;index:idx_notifications_org_user,priority:2" json:"user_id"`
	Type           NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Title          string           `gorm:"type:varchar(255);not null" json:"title"`
	Body           string           `gorm:"type:text" json:"body"`
	EntityType     string           `gorm:"type:varchar(50);not null" json:"entity_type"`
	EntityID       uint64           `gorm:"not null" json:"entity_id"`
	IsRead         bool             `gorm:"not null;default:false" json:"is_read"`
	DispatchKey    string           `gorm:"type:varchar(36);uniqueIndex;not null" json:"-"`
	CreatedAt      time.Time        `json:"created_at"`
}
