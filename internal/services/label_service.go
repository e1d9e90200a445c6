package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"github.com/yukikurage/projecthub-api/internal/tenancy"
)

const maxLabelNameLength = 50

var (
	ErrLabelNameRequired = apierrors.New(apierrors.KindValidation, "LABEL_NAME_REQUIRED", "Label name must be 1-50 characters")
	ErrInvalidLabelColor = apierrors.New(apierrors.KindValidation, "INVALID_LABEL_COLOR", "Label color must look like #RRGGBB")
)

var labelColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// LabelService manages the labels of a project.
type LabelService struct {
	store *repository.Store
}

func NewLabelService(store *repository.Store) *LabelService {
	return &LabelService{store: store}
}

type CreateLabelInput struct {
	Name  string
	Color string
}

func (s *LabelService) CreateLabel(ctx context.Context, member *models.OrganizationMember, projectID uint64, input CreateLabelInput) (*models.Label, error) {
	if !tenancy.Managers.Contains(member.Role) {
		return nil, tenancy.ErrForbidden
	}
	name := strings.TrimSpace(input.Name)
	if name == "" || len([]rune(name)) > maxLabelNameLength {
		return nil, ErrLabelNameRequired
	}
	color := input.Color
	if color == "" {
		color = models.DefaultLabelColor
	}
	if !labelColorPattern.MatchString(color) {
		return nil, ErrInvalidLabelColor
	}

	project, err := loadProject(ctx, s.store, member.OrganizationID, projectID)
	if err != nil {
		return nil, err
	}
	label := &models.Label{
		OrganizationID: project.OrganizationID,
		ProjectID:      project.ID,
		Name:           name,
		Color:          color,
	}
	if err := s.store.Labels.Create(ctx, label); err != nil {
		return nil, fmt.Errorf("failed to create label: %w", err)
	}
	return label, nil
}

func (s *LabelService) ListLabels(ctx context.Context, member *models.OrganizationMember, projectID uint64) ([]models.Label, error) {
	project, err := loadProject(ctx, s.store, member.OrganizationID, projectID)
	if err != nil {
		return nil, err
	}
	labels, err := s.store.Labels.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return labels, nil
}
