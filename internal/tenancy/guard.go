// Package tenancy decides whether a user may act inside an organization.
//
// Every tenant-owned lookup goes through Guard. A caller who is not a member
// sees NotFound, never Forbidden, so the existence of other tenants' data is
// not revealed. Membership is read from the database on each call.
package tenancy

import (
	"context"
	"fmt"

	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/repository"
)

var (
	ErrNotFound  = apierrors.New(apierrors.KindNotFound, apierrors.ErrCodeNotFound, "Resource not found")
	ErrForbidden = apierrors.New(apierrors.KindForbidden, apierrors.ErrCodeInsufficientPermissions, "Insufficient permissions")
)

// RoleSet is a set of organization roles.
type RoleSet uint8

const (
	roleOwnerBit RoleSet = 1 << iota
	roleAdminBit
	roleMemberBit
)

var (
	AnyMember = RoleSet(roleOwnerBit | roleAdminBit | roleMemberBit)
	Managers  = RoleSet(roleOwnerBit | roleAdminBit)
	OwnerOnly = RoleSet(roleOwnerBit)
)

func bit(role models.OrganizationRole) RoleSet {
	switch role {
	case models.RoleOwner:
		return roleOwnerBit
	case models.RoleAdmin:
		return roleAdminBit
	case models.RoleMember:
		return roleMemberBit
	}
	return 0
}

// Roles builds a set from the given roles.
func Roles(roles ...models.OrganizationRole) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s |= bit(r)
	}
	return s
}

func (s RoleSet) Contains(role models.OrganizationRole) bool {
	b := bit(role)
	return b != 0 && s&b != 0
}

// Guard resolves organizations and memberships for authorization.
type Guard struct {
	orgs repository.OrganizationRepository
}

func NewGuard(orgs repository.OrganizationRepository) *Guard {
	return &Guard{orgs: orgs}
}

// Authorize returns the caller's membership in orgID if their role is in allowed.
func (g *Guard) Authorize(ctx context.Context, userID, orgID uint64, allowed RoleSet) (*models.OrganizationMember, error) {
	member, err := g.orgs.FindMember(ctx, orgID, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	if !allowed.Contains(member.Role) {
		return nil, ErrForbidden
	}
	return member, nil
}

// ResolveBySlug loads the organization named by slug and authorizes the caller in it.
// A missing organization and a non-member caller yield the same error.
func (g *Guard) ResolveBySlug(ctx context.Context, userID uint64, slug string, allowed RoleSet) (*models.Organization, *models.OrganizationMember, error) {
	org, err := g.orgs.FindBySlug(ctx, slug)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to load organization: %w", err)
	}
	member, err := g.Authorize(ctx, userID, org.ID, allowed)
	if err != nil {
		return nil, nil, err
	}
	return org, member, nil
}
