package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/middleware"
	"github.com/yukikurage/projecthub-api/internal/models"
)

// uintParam parses a numeric path parameter, writing a 400 on failure.
func uintParam(c *gin.Context, name string) (uint64, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return v, true
}

// currentMember returns the membership resolved by the access middleware.
func currentMember(c *gin.Context) (*models.OrganizationMember, bool) {
	member, ok := middleware.GetOrganizationMember(c)
	if !ok {
		apierrors.Forbidden(c, "Organization access required")
		return nil, false
	}
	return member, true
}

func optionalUintQuery(c *gin.Context, name string) (*uint64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid "+name)
		return nil, false
	}
	return &v, true
}
