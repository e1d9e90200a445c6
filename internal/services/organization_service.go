package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yukikurage/projecthub-api/internal/constants"
	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"github.com/yukikurage/projecthub-api/internal/tenancy"
	"github.com/yukikurage/projecthub-api/internal/utils"
	"go.uber.org/zap"
)

var (
	ErrInvalidOrganizationName    = apierrors.New(apierrors.KindValidation, "INVALID_ORGANIZATION_NAME", "Organization name cannot be empty")
	ErrInvalidSlug                = apierrors.New(apierrors.KindValidation, "INVALID_SLUG", "Slug must be 3-63 lowercase letters, digits or hyphens")
	ErrSlugTaken                  = apierrors.New(apierrors.KindConflict, "SLUG_TAKEN", "Organization slug already exists")
	ErrOrganizationMemberNotFound = apierrors.New(apierrors.KindNotFound, "MEMBER_NOT_FOUND", "Organization member not found")
	ErrAlreadyOrganizationMember  = apierrors.New(apierrors.KindConflict, "ALREADY_MEMBER", "User is already a member of this organization")
	ErrInvalidInviteRole          = apierrors.New(apierrors.KindValidation, "INVALID_INVITE_ROLE", "Invitations can grant the admin or member role only")
	ErrInvalidEmail               = apierrors.New(apierrors.KindValidation, "INVALID_EMAIL", "A valid email address is required")
	ErrInvitationNotFound         = apierrors.New(apierrors.KindNotFound, "INVITATION_NOT_FOUND", "Invitation not found")
	ErrInvitationNotPending       = apierrors.New(apierrors.KindConflict, "INVITATION_NOT_PENDING", "Invitation was already accepted or has expired")
	ErrInvitationEmailMismatch    = apierrors.New(apierrors.KindForbidden, "INVITATION_EMAIL_MISMATCH", "Invitation was sent to a different email address")
)

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]$`)
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

const inviteTokenBytes = 32

// OrganizationService provides business logic for organizations, members and invitations.
type OrganizationService struct {
	store *repository.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(store *repository.Store, log *zap.Logger) *OrganizationService {
	return &OrganizationService{
		store: store,
		log:   log.Named("organizations"),
		now:   time.Now,
	}
}

// CreateOrganizationInput represents parameters to create a new organization.
// An empty Slug is derived from Name.
type CreateOrganizationInput struct {
	Name    string
	Slug    string
	OwnerID uint64
}

// CreateOrganization creates a new organization and makes the creator its sole owner.
func (s *OrganizationService) CreateOrganization(ctx context.Context, input CreateOrganizationInput) (*models.Organization, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidOrganizationName
	}
	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if !slugPattern.MatchString(slug) {
		return nil, ErrInvalidSlug
	}

	org := &models.Organization{Name: name, Slug: slug}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Organizations.Create(ctx, org); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrSlugTaken
			}
			return fmt.Errorf("failed to create organization: %w", err)
		}
		member := &models.OrganizationMember{
			OrganizationID: org.ID,
			UserID:         input.OwnerID,
			Role:           models.RoleOwner,
			JoinedAt:       s.now(),
		}
		if err := tx.Organizations.AddMember(ctx, member); err != nil {
			return fmt.Errorf("failed to add owner to organization: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

// Slugify lowercases name and joins its alphanumeric runs with hyphens.
func Slugify(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 63 {
		slug = strings.TrimRight(slug[:63], "-")
	}
	return slug
}

// ListOrganizationsForUser returns organizations the user belongs to.
func (s *OrganizationService) ListOrganizationsForUser(ctx context.Context, userID uint64) ([]models.Organization, error) {
	orgs, err := s.store.Organizations.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

// ListMembers returns all members of the caller's organization.
func (s *OrganizationService) ListMembers(ctx context.Context, member *models.OrganizationMember) ([]models.OrganizationMember, error) {
	members, err := s.store.Organizations.ListMembers(ctx, member.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization members: %w", err)
	}
	return members, nil
}

// UpdateOrganizationName updates an organization's name.
func (s *OrganizationService) UpdateOrganizationName(ctx context.Context, org *models.Organization, name string) (*models.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidOrganizationName
	}
	org.Name = name
	if err := s.store.Organizations.Update(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	return org, nil
}

// UpdateMemberRole changes another member's role subject to the owner and admin rules.
func (s *OrganizationService) UpdateMemberRole(ctx context.Context, actor *models.OrganizationMember, targetUserID uint64, role models.OrganizationRole) (*models.OrganizationMember, error) {
	var target *models.OrganizationMember
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		target, err = findMember(ctx, tx, actor.OrganizationID, targetUserID)
		if err != nil {
			return err
		}
		if err := tenancy.CheckRoleChange(actor, target, role); err != nil {
			return err
		}
		if target.Role == role {
			return nil
		}
		if err := tx.Organizations.UpdateMemberRole(ctx, target.OrganizationID, target.UserID, role); err != nil {
			return fmt.Errorf("failed to update member role: %w", err)
		}
		target.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("member role changed",
		zap.Uint64("organization_id", actor.OrganizationID),
		zap.Uint64("actor_id", actor.UserID),
		zap.Uint64("user_id", targetUserID),
		zap.String("role", string(role)),
	)
	return target, nil
}

// RemoveMember removes a member. Access ends with the next request the
// removed user makes, whatever their token says.
func (s *OrganizationService) RemoveMember(ctx context.Context, actor *models.OrganizationMember, targetUserID uint64) error {
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		target, err := findMember(ctx, tx, actor.OrganizationID, targetUserID)
		if err != nil {
			return err
		}
		if err := tenancy.CheckRemoval(actor, target); err != nil {
			return err
		}
		if err := tx.Organizations.RemoveMember(ctx, target.OrganizationID, target.UserID); err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("member removed",
		zap.Uint64("organization_id", actor.OrganizationID),
		zap.Uint64("actor_id", actor.UserID),
		zap.Uint64("user_id", targetUserID),
	)
	return nil
}

// CreateInvitationInput holds the invitee and the role they will receive.
type CreateInvitationInput struct {
	Email string
	Role  models.OrganizationRole
}

// CreateInvitation issues an invitation valid for 48 hours. The returned
// token is the only copy handed out.
func (s *OrganizationService) CreateInvitation(ctx context.Context, actor *models.OrganizationMember, input CreateInvitationInput) (*models.Invitation, string, error) {
	email := normalizeEmail(input.Email)
	if !strings.Contains(email, "@") {
		return nil, "", ErrInvalidEmail
	}
	if input.Role == "" {
		input.Role = models.RoleMember
	}
	if input.Role != models.RoleAdmin && input.Role != models.RoleMember {
		return nil, "", ErrInvalidInviteRole
	}

	if user, err := s.store.Users.FindByEmail(ctx, email); err == nil {
		if _, err := s.store.Organizations.FindMember(ctx, actor.OrganizationID, user.ID); err == nil {
			return nil, "", ErrAlreadyOrganizationMember
		} else if !repository.IsNotFound(err) {
			return nil, "", fmt.Errorf("failed to verify membership: %w", err)
		}
	} else if !repository.IsNotFound(err) {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}

	token, err := utils.GenerateToken(inviteTokenBytes)
	if err != nil {
		return nil, "", err
	}
	inv := &models.Invitation{
		OrganizationID: actor.OrganizationID,
		Email:          email,
		Role:           input.Role,
		Token:          token,
		ExpiresAt:      s.now().Add(constants.InvitationTTL),
		CreatedBy:      actor.UserID,
	}
	if err := s.store.Invitations.Create(ctx, inv); err != nil {
		return nil, "", fmt.Errorf("failed to create invitation: %w", err)
	}
	return inv, token, nil
}

func (s *OrganizationService) ListInvitations(ctx context.Context, actor *models.OrganizationMember) ([]models.Invitation, error) {
	invs, err := s.store.Invitations.ListPending(ctx, actor.OrganizationID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invs, nil
}

func (s *OrganizationService) RevokeInvitation(ctx context.Context, actor *models.OrganizationMember, invitationID uint64) error {
	inv, err := s.store.Invitations.FindByID(ctx, actor.OrganizationID, invitationID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrInvitationNotFound
		}
		return fmt.Errorf("failed to find invitation: %w", err)
	}
	if err := s.store.Invitations.Delete(ctx, inv.ID); err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}
	return nil
}

// AcceptInvitation joins userID to the invitation's organization. The
// user's email must match the invited address.
func (s *OrganizationService) AcceptInvitation(ctx context.Context, userID uint64, token string) (*models.Organization, error) {
	var org *models.Organization
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		inv, err := tx.Invitations.FindByToken(ctx, token)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrInvitationNotFound
			}
			return fmt.Errorf("failed to find invitation: %w", err)
		}
		now := s.now()
		if !inv.IsPending(now) {
			return ErrInvitationNotPending
		}

		user, err := tx.Users.FindByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to find user: %w", err)
		}
		if normalizeEmail(user.Email) != inv.Email {
			return ErrInvitationEmailMismatch
		}

		if _, err := tx.Organizations.FindMember(ctx, inv.OrganizationID, userID); err == nil {
			return ErrAlreadyOrganizationMember
		} else if !repository.IsNotFound(err) {
			return fmt.Errorf("failed to verify membership: %w", err)
		}

		member := &models.OrganizationMember{
			OrganizationID: inv.OrganizationID,
			UserID:         userID,
			Role:           inv.Role,
			JoinedAt:       now,
		}
		if err := tx.Organizations.AddMember(ctx, member); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrAlreadyOrganizationMember
			}
			return fmt.Errorf("failed to add member to organization: %w", err)
		}
		if err := tx.Invitations.MarkAccepted(ctx, inv.ID, now); err != nil {
			return fmt.Errorf("failed to mark invitation accepted: %w", err)
		}

		org, err = tx.Organizations.FindByID(ctx, inv.OrganizationID)
		if err != nil {
			return fmt.Errorf("failed to find organization: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

func findMember(ctx context.Context, store *repository.Store, organizationID, userID uint64) (*models.OrganizationMember, error) {
	member, err := store.Organizations.FindMember(ctx, organizationID, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrOrganizationMemberNotFound
		}
		return nil, fmt.Errorf("failed to find organization member: %w", err)
	}
	return member, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
