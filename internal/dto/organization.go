package dto

import (
	"time"

	"github.com/yukikurage/projecthub-api/internal/models"
)

// OrganizationDTO represents an organization in API responses
type OrganizationDTO struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// OrganizationWithRoleDTO represents an organization with the user's role
type OrganizationWithRoleDTO struct {
	OrganizationDTO
	Role models.OrganizationRole `json:"role"`
}

// OrganizationMemberDTO represents a member in an organization
type OrganizationMemberDTO struct {
	User     UserDTO                 `json:"user"`
	Role     models.OrganizationRole `json:"role"`
	JoinedAt time.Time               `json:"joined_at"`
}

// InvitationDTO never includes the token; it is returned once, on creation.
type InvitationDTO struct {
	ID         uint64                  `json:"id"`
	Email      string                  `json:"email"`
	Role       models.OrganizationRole `json:"role"`
	ExpiresAt  time.Time               `json:"expires_at"`
	AcceptedAt *time.Time              `json:"accepted_at"`
	CreatedBy  uint64                  `json:"created_by"`
	CreatedAt  time.Time               `json:"created_at"`
}

type CreatedInvitationDTO struct {
	InvitationDTO
	Token string `json:"token"`
}

func ToOrganizationDTO(org models.Organization) OrganizationDTO {
	return OrganizationDTO{
		ID:        org.ID,
		Name:      org.Name,
		Slug:      org.Slug,
		CreatedAt: org.CreatedAt,
	}
}

// ToOrganizationWithRoleDTO pairs an organization with the caller's role in it
func ToOrganizationWithRoleDTO(org models.Organization, role models.OrganizationRole) OrganizationWithRoleDTO {
	return OrganizationWithRoleDTO{
		OrganizationDTO: ToOrganizationDTO(org),
		Role:            role,
	}
}

// ToOrganizationMemberDTO converts a member to DTO
func ToOrganizationMemberDTO(member models.OrganizationMember) OrganizationMemberDTO {
	return OrganizationMemberDTO{
		User:     ToUserDTO(member.User),
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
}

func ToOrganizationMemberDTOs(members []models.OrganizationMember) []OrganizationMemberDTO {
	out := make([]OrganizationMemberDTO, len(members))
	for i, member := range members {
		out[i] = ToOrganizationMemberDTO(member)
	}
	return out
}

func ToInvitationDTO(inv models.Invitation) InvitationDTO {
	return InvitationDTO{
		ID:         inv.ID,
		Email:      inv.Email,
		Role:       inv.Role,
		ExpiresAt:  inv.ExpiresAt,
		AcceptedAt: inv.AcceptedAt,
		CreatedBy:  inv.CreatedBy,
		CreatedAt:  inv.CreatedAt,
	}
}

func ToInvitationDTOs(invitations []models.Invitation) []InvitationDTO {
	out := make([]InvitationDTO, len(invitations))
	for i, inv := range invitations {
		out[i] = ToInvitationDTO(inv)
	}
	return out
}
