package constants

import "time"

const (
	// Context keys
	ContextKeyUserID             = "user_id"
	ContextKeyOrganization       = "organization"
	ContextKeyOrganizationMember = "organization_member"
	ContextKeyPrincipal          = "principal"

	SessionCookieName = "projecthub_session"

	// Pagination
	MinPageSize     = 1
	DefaultPageSize = 25
	MaxPageSize     = 100

	MinPasswordLength = 8

	// Tasks
	PositionGap = 1000

	// Invitations
	InvitationTTL = 48 * time.Hour
)
