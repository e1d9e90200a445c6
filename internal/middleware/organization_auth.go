package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/projecthub-api/internal/constants"
	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/tenancy"
)

// RequireOrganizationAccess resolves the :slug organization and the caller's
// membership in it. Unknown organizations and non-members both get 404.
func RequireOrganizationAccess(guard *tenancy.Guard, allowed tenancy.RoleSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}

		org, member, err := guard.ResolveBySlug(c.Request.Context(), userID, c.Param("slug"), allowed)
		if err != nil {
			apierrors.Respond(c, err)
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyOrganization, org)
		c.Set(constants.ContextKeyOrganizationMember, member)
		c.Next()
	}
}

// RequireRole narrows a route to the given roles. It must run after
// RequireOrganizationAccess.
func RequireRole(allowed tenancy.RoleSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		member, ok := GetOrganizationMember(c)
		if !ok {
			apierrors.Forbidden(c, "Organization access required")
			c.Abort()
			return
		}
		if !allowed.Contains(member.Role) {
			apierrors.Respond(c, tenancy.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

func GetOrganization(c *gin.Context) (*models.Organization, bool) {
	v, exists := c.Get(constants.ContextKeyOrganization)
	if !exists {
		return nil, false
	}
	org, ok := v.(*models.Organization)
	return org, ok
}

func GetOrganizationMember(c *gin.Context) (*models.OrganizationMember, bool) {
	v, exists := c.Get(constants.ContextKeyOrganizationMember)
	if !exists {
		return nil, false
	}
	member, ok := v.(*models.OrganizationMember)
	return member, ok
}
