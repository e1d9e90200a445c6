package repository

import (
	"context"
	"time"

	"github.com/yukikurage/projecthub-api/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	// Create creates a new organization
	Create(ctx context.Context, org *models.Organization) error

	// FindByID finds an organization by ID
	FindByID(ctx context.Context, id uint64) (*models.Organization, error)

	// FindBySlug finds an organization by its URL slug
	FindBySlug(ctx context.Context, slug string) (*models.Organization, error)

	// Update updates an organization
	Update(ctx context.Context, org *models.Organization) error

	// ListByUserID lists all organizations a user is a member of
	ListByUserID(ctx context.Context, userID uint64) ([]models.Organization, error)

	// AddMember adds a member to an organization
	AddMember(ctx context.Context, member *models.OrganizationMember) error

	// UpdateMemberRole changes the role of an existing member
	UpdateMemberRole(ctx context.Context, organizationID, userID uint64, role models.OrganizationRole) error

	// RemoveMember removes a member from an organization
	RemoveMember(ctx context.Context, organizationID, userID uint64) error

	// FindMember finds a specific organization member
	FindMember(ctx context.Context, organizationID, userID uint64) (*models.OrganizationMember, error)

	// ListMembers lists all members of an organization
	ListMembers(ctx context.Context, organizationID uint64) ([]models.OrganizationMember, error)
}

// InvitationRepository defines the interface for invitation data access
type InvitationRepository interface {
	Create(ctx context.Context, inv *models.Invitation) error
	FindByID(ctx context.Context, organizationID, id uint64) (*models.Invitation, error)
	FindByToken(ctx context.Context, token string) (*models.Invitation, error)
	ListPending(ctx context.Context, organizationID uint64, now time.Time) ([]models.Invitation, error)
	MarkAccepted(ctx context.Context, id uint64, at time.Time) error
	Delete(ctx context.Context, id uint64) error
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, organizationID, id uint64) (*models.Project, error)
	ListByOrganization(ctx context.Context, organizationID uint64, includeArchived bool) ([]models.Project, error)
	Update(ctx context.Context, project *models.Project) error
}

// CounterRepository hands out per-project task numbers.
// Allocate must run on a repository bound to the transaction that inserts the task.
type CounterRepository interface {
	// Init creates the counter row for a new project with last_number 0
	Init(ctx context.Context, projectID uint64) error

	// Allocate locks the counter row, increments it and returns the new number
	Allocate(ctx context.Context, projectID uint64) (int64, error)

	// Peek returns the last number handed out, or 0 when none was
	Peek(ctx context.Context, projectID uint64) (int64, error)
}

// StatusRepository defines the interface for workflow status data access
type StatusRepository interface {
	CreateBatch(ctx context.Context, statuses []models.TaskStatus) error
	Create(ctx context.Context, status *models.TaskStatus) error
	FindByID(ctx context.Context, id uint64) (*models.TaskStatus, error)
	ListByProject(ctx context.Context, projectID uint64) ([]models.TaskStatus, error)
	MaxPosition(ctx context.Context, projectID uint64) (int, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// FindByNumber finds a task by its project-scoped number
	FindByNumber(ctx context.Context, projectID uint64, number int64) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(ctx context.Context, task *models.Task) error

	// UpdateColumns writes only the given columns of one task
	UpdateColumns(ctx context.Context, id uint64, columns map[string]interface{}) error

	// Delete deletes a task along with its comments
	Delete(ctx context.Context, id uint64) error

	// MaxPosition returns the largest position in a status column, or 0 if empty
	MaxPosition(ctx context.Context, projectID, statusID uint64) (int64, error)

	// UpdatePositions rewrites positions for tasks in one project
	UpdatePositions(ctx context.Context, projectID uint64, positions map[uint64]int64) error

	// MoveUnfinishedToBacklog clears sprint_id of the sprint's tasks whose status is not done
	MoveUnfinishedToBacklog(ctx context.Context, sprintID uint64) (int64, error)

	// Search matches titles case-insensitively across the organization's
	// unarchived projects. Exact title matches come first, then newest updates.
	Search(ctx context.Context, organizationID uint64, query string, limit int) ([]TaskSearchRow, error)
}

// TaskSearchRow is a task joined with its project key and status name
type TaskSearchRow struct {
	ID         uint64
	Title      string
	Number     int64
	ProjectID  uint64
	ProjectKey string
	StatusID   uint64
	StatusName string
	UpdatedAt  time.Time
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	OrganizationID uint64
	ProjectID      uint64
	StatusID       *uint64
	AssigneeID     *uint64
	SprintID       *uint64
	Backlog        bool
	Priority       *models.TaskPriority
	Search         string
	Page           int
	PageSize       int
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id uint64) (*models.Comment, error)
	ListByTask(ctx context.Context, taskID uint64) ([]models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id uint64) error
}

// ActivityRepository is append-only: there is no update or delete.
type ActivityRepository interface {
	Create(ctx context.Context, entries ...*models.ActivityLog) error
	ListByTask(ctx context.Context, organizationID, taskID uint64, limit int) ([]models.ActivityLog, error)
}

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	// CreateOnce inserts n unless a row with the same dispatch key exists.
	// It returns the stored row and whether this call created it.
	CreateOnce(ctx context.Context, n *models.Notification) (*models.Notification, bool, error)

	List(ctx context.Context, filter NotificationFilter) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, organizationID, userID uint64) (int64, error)
	FindByID(ctx context.Context, id uint64) (*models.Notification, error)
	MarkRead(ctx context.Context, id uint64) error
	MarkAllRead(ctx context.Context, organizationID, userID uint64) (int64, error)
}

// NotificationFilter holds filtering options for listing notifications
type NotificationFilter struct {
	OrganizationID uint64
	UserID         uint64
	UnreadOnly     bool
	Page           int
	PageSize       int
}

// SprintRepository defines the interface for sprint data access
type SprintRepository interface {
	Create(ctx context.Context, sprint *models.Sprint) error
	FindByID(ctx context.Context, projectID, id uint64) (*models.Sprint, error)
	FindActive(ctx context.Context, projectID uint64) (*models.Sprint, error)
	ListByProject(ctx context.Context, projectID uint64) ([]models.Sprint, error)
	Update(ctx context.Context, sprint *models.Sprint) error

	// Delete removes the sprint and returns its tasks to the backlog
	Delete(ctx context.Context, id uint64) error
}

// LabelRepository defines the interface for label data access
type LabelRepository interface {
	Create(ctx context.Context, label *models.Label) error
	ListByProject(ctx context.Context, projectID uint64) ([]models.Label, error)

	// FindInProject returns the labels among ids that belong to projectID
	FindInProject(ctx context.Context, projectID uint64, ids []uint64) ([]models.Label, error)

	// ReplaceForTask makes labelIDs the task's complete label set
	ReplaceForTask(ctx context.Context, taskID uint64, labelIDs []uint64) error
}
