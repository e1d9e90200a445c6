package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/projecthub-api/internal/dto"
	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/middleware"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/services"
)

type OrganizationHandler struct {
	orgService *services.OrganizationService
}

func NewOrganizationHandler(orgService *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService}
}

// CreateOrganization creates an organization owned by the caller.
func (h *OrganizationHandler) CreateOrganization(c *gin.Context) {
	type CreateOrganizationRequest struct {
		Name string `json:"name" binding:"required,min=1,max=255"`
		Slug string `json:"slug" binding:"omitempty,max=63"`
	}

	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	org, err := h.orgService.CreateOrganization(c.Request.Context(), services.CreateOrganizationInput{
		Name:    req.Name,
		Slug:    req.Slug,
		OwnerID: userID,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToOrganizationWithRoleDTO(*org, models.RoleOwner))
}

// ListOrganizations returns the organizations the caller belongs to.
func (h *OrganizationHandler) ListOrganizations(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	orgs, err := h.orgService.ListOrganizationsForUser(c.Request.Context(), userID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	out := make([]dto.OrganizationDTO, len(orgs))
	for i, org := range orgs {
		out[i] = dto.ToOrganizationDTO(org)
	}
	c.JSON(http.StatusOK, gin.H{"organizations": out})
}

// GetOrganization returns the organization resolved by the access middleware.
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	org, ok := middleware.GetOrganization(c)
	if !ok {
		apierrors.NotFound(c, "")
		return
	}
	member, ok := currentMember(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ToOrganizationWithRoleDTO(*org, member.Role))
}

// UpdateOrganization renames the organization. The slug never changes.
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	type UpdateOrganizationRequest struct {
		Name string `json:"name" binding:"required,min=1,max=255"`
	}

	var req UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	org, ok := middleware.GetOrganization(c)
	if !ok {
		apierrors.NotFound(c, "")
		return
	}
	member, ok := currentMember(c)
	if !ok {
		return
	}

	updated, err := h.orgService.UpdateOrganizationName(c.Request.Context(), org, req.Name)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrganizationWithRoleDTO(*updated, member.Role))
}

func (h *OrganizationHandler) ListMembers(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}

	members, err := h.orgService.ListMembers(c.Request.Context(), member)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": dto.ToOrganizationMemberDTOs(members)})
}

func (h *OrganizationHandler) UpdateMemberRole(c *gin.Context) {
	type UpdateMemberRoleRequest struct {
		Role models.OrganizationRole `json:"role" binding:"required"`
	}

	var req UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Role.Valid() {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, ok := currentMember(c)
	if !ok {
		return
	}
	targetID, ok := uintParam(c, "user_id")
	if !ok {
		return
	}

	updated, err := h.orgService.UpdateMemberRole(c.Request.Context(), member, targetID, req.Role)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": updated.UserID,
		"role":    updated.Role,
	})
}

func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	targetID, ok := uintParam(c, "user_id")
	if !ok {
		return
	}

	if err := h.orgService.RemoveMember(c.Request.Context(), member, targetID); err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OrganizationHandler) CreateInvitation(c *gin.Context) {
	type CreateInvitationRequest struct {
		Email string                  `json:"email" binding:"required"`
		Role  models.OrganizationRole `json:"role"`
	}

	var req CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, ok := currentMember(c)
	if !ok {
		return
	}

	inv, token, err := h.orgService.CreateInvitation(c.Request.Context(), member, services.CreateInvitationInput{
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreatedInvitationDTO{
		InvitationDTO: dto.ToInvitationDTO(*inv),
		Token:         token,
	})
}

func (h *OrganizationHandler) ListInvitations(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}

	invitations, err := h.orgService.ListInvitations(c.Request.Context(), member)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": dto.ToInvitationDTOs(invitations)})
}

func (h *OrganizationHandler) RevokeInvitation(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	invitationID, ok := uintParam(c, "invitation_id")
	if !ok {
		return
	}

	if err := h.orgService.RevokeInvitation(c.Request.Context(), member, invitationID); err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AcceptInvitation joins the caller to the inviting organization.
func (h *OrganizationHandler) AcceptInvitation(c *gin.Context) {
	type AcceptInvitationRequest struct {
		Token string `json:"token" binding:"required"`
	}

	var req AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	org, err := h.orgService.AcceptInvitation(c.Request.Context(), userID, req.Token)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org))
}
