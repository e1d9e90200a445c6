package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"github.com/yukikurage/projecthub-api/internal/tenancy"
	"go.uber.org/zap"
)

var (
	ErrSprintNotFound     = apierrors.New(apierrors.KindNotFound, "SPRINT_NOT_FOUND", "Sprint not found")
	ErrSprintNameRequired = apierrors.New(apierrors.KindValidation, "SPRINT_NAME_REQUIRED", "Sprint name is required")
	ErrInvalidSprintDates = apierrors.New(apierrors.KindValidation, "INVALID_SPRINT_DATES", "Sprint end date must be after its start date")
	ErrSprintNotPlanned   = apierrors.New(apierrors.KindConflict, "SPRINT_NOT_PLANNED", "Only a planned sprint can be started")
	ErrSprintNotActive    = apierrors.New(apierrors.KindConflict, "SPRINT_NOT_ACTIVE", "Only an active sprint can be completed")
	ErrActiveSprintExists = apierrors.New(apierrors.KindConflict, "ACTIVE_SPRINT_EXISTS", "Project already has an active sprint")
	ErrSprintNotDeletable = apierrors.New(apierrors.KindConflict, "SPRINT_NOT_DELETABLE", "Only a planned sprint can be deleted")
)

// SprintService manages the planned -> active -> completed sprint lifecycle.
type SprintService struct {
	store *repository.Store
	log   *zap.Logger
}

func NewSprintService(store *repository.Store, log *zap.Logger) *SprintService {
	return &SprintService{store: store, log: log.Named("sprints")}
}

type CreateSprintInput struct {
	Name      string
	Goal      string
	StartDate *time.Time
	EndDate   *time.Time
}

// UpdateSprintInput changes only the non-nil fields.
type UpdateSprintInput struct {
	Name      *string
	Goal      *string
	StartDate *time.Time
	EndDate   *time.Time
}

func (s *SprintService) CreateSprint(ctx context.Context, member *models.OrganizationMember, projectID uint64, input CreateSprintInput) (*models.Sprint, error) {
	if !tenancy.Managers.Contains(member.Role) {
		return nil, tenancy.ErrForbidden
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrSprintNameRequired
	}
	if input.StartDate != nil && input.EndDate != nil && !input.EndDate.After(*input.StartDate) {
		return nil, ErrInvalidSprintDates
	}
	project, err := loadProject(ctx, s.store, member.OrganizationID, projectID)
	if err != nil {
		return nil, err
	}
	if project.IsArchived {
		return nil, ErrProjectArchived
	}

	sprint := &models.Sprint{
		OrganizationID: project.OrganizationID,
		ProjectID:      project.ID,
		Name:           name,
		Goal:           input.Goal,
		Status:         models.SprintPlanned,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		CreatedBy:      member.UserID,
	}
	if err := s.store.Sprints.Create(ctx, sprint); err != nil {
		return nil, fmt.Errorf("failed to create sprint: %w", err)
	}
	return sprint, nil
}

func (s *SprintService) ListSprints(ctx context.Context, member *models.OrganizationMember, projectID uint64) ([]models.Sprint, error) {
	project, err := loadProject(ctx, s.store, member.OrganizationID, projectID)
	if err != nil {
		return nil, err
	}
	sprints, err := s.store.Sprints.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sprints: %w", err)
	}
	return sprints, nil
}

// StartSprint activates a planned sprint. A project has at most one active sprint.
func (s *SprintService) StartSprint(ctx context.Context, member *models.OrganizationMember, projectID, sprintID uint64) (*models.Sprint, error) {
	if !tenancy.Managers.Contains(member.Role) {
		return nil, tenancy.ErrForbidden
	}
	var sprint *models.Sprint
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		sprint, err = loadSprint(ctx, tx, member.OrganizationID, projectID, sprintID)
		if err != nil {
			return err
		}
		if sprint.Status != models.SprintPlanned {
			return ErrSprintNotPlanned
		}
		if _, err := tx.Sprints.FindActive(ctx, sprint.ProjectID); err == nil {
			return ErrActiveSprintExists
		} else if !repository.IsNotFound(err) {
			return fmt.Errorf("failed to check active sprint: %w", err)
		}

		sprint.Status = models.SprintActive
		if sprint.StartDate == nil {
			now := time.Now()
			sprint.StartDate = &now
		}
		if err := tx.Sprints.Update(ctx, sprint); err != nil {
			return fmt.Errorf("failed to start sprint: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sprint, nil
}

// CompleteSprint closes an active sprint and returns its unfinished tasks to the backlog.
func (s *SprintService) CompleteSprint(ctx context.Context, member *models.OrganizationMember, projectID, sprintID uint64) (*models.Sprint, error) {
	if !tenancy.Managers.Contains(member.Role) {
		return nil, tenancy.ErrForbidden
	}
	var (
		sprint *models.Sprint
		moved  int64
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		sprint, err = loadSprint(ctx, tx, member.OrganizationID, projectID, sprintID)
		if err != nil {
			return err
		}
		if sprint.Status != models.SprintActive {
			return ErrSprintNotActive
		}

		moved, err = tx.Tasks.MoveUnfinishedToBacklog(ctx, sprint.ID)
		if err != nil {
			return fmt.Errorf("failed to move unfinished tasks: %w", err)
		}

		now := time.Now()
		sprint.Status = models.SprintCompleted
		sprint.CompletedAt = &now
		if err := tx.Sprints.Update(ctx, sprint); err != nil {
			return fmt.Errorf("failed to complete sprint: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("sprint completed",
		zap.Uint64("sprint_id", sprint.ID),
		zap.Int64("moved_to_backlog", moved),
	)
	return sprint, nil
}

func (s *SprintService) UpdateSprint(ctx context.Context, member *models.OrganizationMember, projectID, sprintID uint64, input UpdateSprintInput) (*models.Sprint, error) {
	if !tenancy.Managers.Contains(member.Role) {
		return nil, tenancy.ErrForbidden
	}
	var sprint *models.Sprint
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		sprint, err = loadSprint(ctx, tx, member.OrganizationID, projectID, sprintID)
		if err != nil {
			return err
		}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return ErrSprintNameRequired
			}
			sprint.Name = name
		}
		if input.Goal != nil {
			sprint.Goal = *input.Goal
		}
		if input.StartDate != nil {
			sprint.StartDate = input.StartDate
		}
		if input.EndDate != nil {
			sprint.EndDate = input.EndDate
		}
		if sprint.StartDate != nil && sprint.EndDate != nil && !sprint.EndDate.After(*sprint.StartDate) {
			return ErrInvalidSprintDates
		}
		if err := tx.Sprints.Update(ctx, sprint); err != nil {
			return fmt.Errorf("failed to update sprint: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sprint, nil
}

// DeleteSprint removes a planned sprint. Its tasks go back to the backlog.
func (s *SprintService) DeleteSprint(ctx context.Context, member *models.OrganizationMember, projectID, sprintID uint64) error {
	if !tenancy.Managers.Contains(member.Role) {
		return tenancy.ErrForbidden
	}
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		sprint, err := loadSprint(ctx, tx, member.OrganizationID, projectID, sprintID)
		if err != nil {
			return err
		}
		if sprint.Status != models.SprintPlanned {
			return ErrSprintNotDeletable
		}
		if err := tx.Sprints.Delete(ctx, sprint.ID); err != nil {
			return fmt.Errorf("failed to delete sprint: %w", err)
		}
		return nil
	})
}

func loadSprint(ctx context.Context, store *repository.Store, organizationID, projectID, sprintID uint64) (*models.Sprint, error) {
	project, err := loadProject(ctx, store, organizationID, projectID)
	if err != nil {
		return nil, err
	}
	sprint, err := store.Sprints.FindByID(ctx, project.ID, sprintID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrSprintNotFound
		}
		return nil, fmt.Errorf("failed to find sprint: %w", err)
	}
	return sprint, nil
}
