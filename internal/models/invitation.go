package models

import "time"

type Invitation struct {
	ID             uint64           `gorm:"primarykey" json:"id"`
	OrganizationID uint64           `gorm:"not null;index" json:"organization_id"`
	Email          string           `gorm:"type:varchar(255);not null;index" json:"email"`
	Role           OrganizationRole `gorm:"type:varchar(20);not null" json:"role"`
	Token          string           `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	ExpiresAt      time.Time        `gorm:"not null" json:"expires_at"`
	AcceptedAt     *time.Time       `json:"accepted_at"`
	CreatedBy      uint64           `gorm:"not null" json:"created_by"`
	CreatedAt      time.Time        `json:"created_at"`
}

// IsPending reports whether the invitation can still be accepted at now.
func (i *Invitation) IsPending(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}
