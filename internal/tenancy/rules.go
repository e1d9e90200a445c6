package tenancy

import "github.com/yukikurage/projecthub-api/internal/models"

// CheckRoleChange reports whether actor may give target the role newRole.
// Rules are explicit per role, not derived from an ordering.
func CheckRoleChange(actor, target *models.OrganizationMember, newRole models.OrganizationRole) error {
	if !newRole.Valid() {
		return ErrForbidden
	}
	if target.Role == models.RoleOwner {
		return ErrForbidden
	}
	switch actor.Role {
	case models.RoleOwner:
		// Ownership is not transferable through a role change.
		if newRole == models.RoleOwner {
			return ErrForbidden
		}
		return nil
	case models.RoleAdmin:
		if newRole == models.RoleOwner {
			return ErrForbidden
		}
		if target.Role == models.RoleAdmin && target.UserID != actor.UserID {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}

// CheckRemoval reports whether actor may remove target from the organization.
func CheckRemoval(actor, target *models.OrganizationMember) error {
	if target.Role == models.RoleOwner {
		return ErrForbidden
	}
	switch actor.Role {
	case models.RoleOwner:
		return nil
	case models.RoleAdmin:
		if target.Role == models.RoleAdmin && target.UserID != actor.UserID {
			return ErrForbidden
		}
		return nil
	default:
		// Members may only leave on their own.
		if target.UserID == actor.UserID {
			return nil
		}
		return ErrForbidden
	}
}

// CanModerate reports whether member may edit or delete content authored by authorID.
func CanModerate(member *models.OrganizationMember, authorID uint64) bool {
	return member.UserID == authorID || Managers.Contains(member.Role)
}
