package models

import "time"

type StatusCategory string

const (
	StatusCategoryTodo       StatusCategory = "todo"
	StatusCategoryInProgress StatusCategory = "in_progress"
	StatusCategoryDone       StatusCategory = "done"
)

func (c StatusCategory) Valid() bool {
	switch c {
	case StatusCategoryTodo, StatusCategoryInProgress, StatusCategoryDone:
		return true
	}
	return false
}

type TaskStatus struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	OrganizationID uint64         `gorm:"not null;index" json:"organization_id"`
	ProjectID      uint64         `gorm:"not null;index" json:"project_id"`
	Name           string         `gorm:"type:varchar(100);not null" json:"name"`
	Category       StatusCategory `gorm:"type:varchar(20);not null" json:"category"`
	Position       int            `gorm:"not null;default:0" json:"position"`
	Color          string         `gorm:"type:varchar(7)" json:"color"`
	CreatedAt      time.Time      `json:"created_at"`
}

// DefaultStatuses are seeded into every new project.
func DefaultStatuses(orgID, projectID uint64) []TaskStatus {
	return []TaskStatus{
		{OrganizationID: orgID, ProjectID: projectID, Name: "To Do", Category: StatusCategoryTodo, Position: 0, Color: "#6366f1"},
		{OrganizationID: orgID, ProjectID: projectID, Name: "In Progress", Category: StatusCategoryInProgress, Position: 1, Color: "#f59e0b"},
		{OrganizationID: orgID, ProjectID: projectID, Name: "Done", Category: StatusCategoryDone, Position: 2, Color: "#10b981"},
	}
}
