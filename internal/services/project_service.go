package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/repository"
)

var (
	ErrProjectNotFound     = apierrors.New(apierrors.KindNotFound, "PROJECT_NOT_FOUND", "Project not found")
	ErrInvalidProjectKey   = apierrors.New(apierrors.KindValidation, "INVALID_PROJECT_KEY", "Project key must be 2-10 uppercase letters or digits, starting with a letter")
	ErrProjectNameRequired = apierrors.New(apierrors.KindValidation, "PROJECT_NAME_REQUIRED", "Project name is required")
	ErrProjectKeyTaken     = apierrors.New(apierrors.KindConflict, "KEY_TAKEN", "Project key already exists in this organization")
	ErrStatusNameRequired  = apierrors.New(apierrors.KindValidation, "STATUS_NAME_REQUIRED", "Status name is required")
	ErrInvalidCategory     = apierrors.New(apierrors.KindValidation, "INVALID_CATEGORY", "Invalid status category")
)

var projectKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}$`)

// ProjectService provides business logic for projects and their workflow statuses.
type ProjectService struct {
	store *repository.Store
}

func NewProjectService(store *repository.Store) *ProjectService {
	return &ProjectService{store: store}
}

type CreateProjectInput struct {
	Key         string
	Name        string
	Description string
}

type UpdateProjectInput struct {
	Name        *string
	Description *string
}

type CreateStatusInput struct {
	Name     string
	Category models.StatusCategory
	Color    string
}

// CreateProject creates a project with the default statuses and a task
// counter starting at zero.
func (s *ProjectService) CreateProject(ctx context.Context, member *models.OrganizationMember, input CreateProjectInput) (*models.Project, error) {
	key := strings.ToUpper(strings.TrimSpace(input.Key))
	if !projectKeyPattern.MatchString(key) {
		return nil, ErrInvalidProjectKey
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrProjectNameRequired
	}

	project := &models.Project{
		OrganizationID: member.OrganizationID,
		Key:            key,
		Name:           name,
		Description:    input.Description,
		CreatedBy:      member.UserID,
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Projects.Create(ctx, project); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrProjectKeyTaken
			}
			return fmt.Errorf("failed to create project: %w", err)
		}
		if err := tx.Counters.Init(ctx, project.ID); err != nil {
			return fmt.Errorf("failed to create task counter: %w", err)
		}
		if err := tx.Statuses.CreateBatch(ctx, models.DefaultStatuses(project.OrganizationID, project.ID)); err != nil {
			return fmt.Errorf("failed to create statuses: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return loadProject(ctx, s.store, member.OrganizationID, project.ID)
}

func (s *ProjectService) ListProjects(ctx context.Context, member *models.OrganizationMember, includeArchived bool) ([]models.Project, error) {
	projects, err := s.store.Projects.ListByOrganization(ctx, member.OrganizationID, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func (s *ProjectService) GetProject(ctx context.Context, member *models.OrganizationMember, projectID uint64) (*models.Project, error) {
	return loadProject(ctx, s.store, member.OrganizationID, projectID)
}

func (s *ProjectService) UpdateProject(ctx context.Context, member *models.OrganizationMember, projectID uint64, input UpdateProjectInput) (*models.Project, error) {
	project, err := loadProject(ctx, s.store, member.OrganizationID, projectID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrProjectNameRequired
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if err := s.store.Projects.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return project, nil
}

// ArchiveProject soft-archives a project. Archiving twice is a no-op.
func (s *ProjectService) ArchiveProject(ctx context.Context, member *models.OrganizationMember, projectID uint64) (*models.Project, error) {
	project, err := loadProject(ctx, s.store, member.OrganizationID, projectID)
	if err != nil {
		return nil, err
	}
	if project.IsArchived {
		return project, nil
	}
	now := time.Now()
	project.IsArchived = true
	project.ArchivedAt = &now
	if err := s.store.Projects.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to archive project: %w", err)
	}
	return project, nil
}

func (s *ProjectService) ListStatuses(ctx context.Context, member *models.OrganizationMember, projectID uint64) ([]models.TaskStatus, error) {
	project, err := loadProject(ctx, s.store, member.OrganizationID, projectID)
	if err != nil {
		return nil, err
	}
	return project.Statuses, nil
}

// CreateStatus appends a status after the project's existing ones.
func (s *ProjectService) CreateStatus(ctx context.Context, member *models.OrganizationMember, projectID uint64, input CreateStatusInput) (*models.TaskStatus, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrStatusNameRequired
	}
	if !input.Category.Valid() {
		return nil, ErrInvalidCategory
	}

	var status *models.TaskStatus
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		project, err := loadProject(ctx, tx, member.OrganizationID, projectID)
		if err != nil {
			return err
		}
		maxPosition, err := tx.Statuses.MaxPosition(ctx, project.ID)
		if err != nil {
			return fmt.Errorf("failed to read status position: %w", err)
		}
		status = &models.TaskStatus{
			OrganizationID: project.OrganizationID,
			ProjectID:      project.ID,
			Name:           name,
			Category:       input.Category,
			Position:       maxPosition + 1,
			Color:          input.Color,
		}
		if err := tx.Statuses.Create(ctx, status); err != nil {
			return fmt.Errorf("failed to create status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// loadProject returns ErrProjectNotFound for projects of other organizations.
func loadProject(ctx context.Context, store *repository.Store, organizationID, projectID uint64) (*models.Project, error) {
	project, err := store.Projects.FindByID(ctx, organizationID, projectID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}
