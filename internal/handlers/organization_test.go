package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/projecthub-api/internal/dto"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/testutil"
)

func TestOrganizationHandler_CreateAndList(t *testing.T) {
	env := setupTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice@example.com", "Alice")
	token := env.token(alice.ID)

	w := env.do(http.MethodPost, "/api/orgs", token, map[string]string{"name": "Acme Inc", "slug": "acme"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created dto.OrganizationWithRoleDTO
	decode(t, w, &created)
	assert.Equal(t, "acme", created.Slug)
	assert.Equal(t, models.RoleOwner, created.Role)

	w = env.do(http.MethodPost, "/api/orgs", token, map[string]string{"name": "Other", "slug": "acme"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SLUG_TAKEN", errorCode(t, w))

	w = env.do(http.MethodGet, "/api/orgs", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Organizations []dto.OrganizationWithRoleDTO `json:"organizations"`
	}
	decode(t, w, &list)
	require.Len(t, list.Organizations, 1)
	assert.Equal(t, created.ID, list.Organizations[0].ID)
}

func TestOrganizationHandler_NonMemberGetsNotFound(t *testing.T) {
	env := setupTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice@example.com", "Alice")
	mallory := testutil.CreateUser(t, env.db, "mallory@example.com", "Mallory")
	org := testutil.CreateOrganization(t, env.db, "acme")
	testutil.AddMember(t, env.db, org.ID, alice.ID, models.RoleOwner)

	existing := env.do(http.MethodGet, "/api/orgs/acme", env.token(mallory.ID), nil)
	missing := env.do(http.MethodGet, "/api/orgs/nowhere", env.token(mallory.ID), nil)

	assert.Equal(t, http.StatusNotFound, existing.Code)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, missing.Body.String(), existing.Body.String())
}

func TestOrganizationHandler_ManagersOnlyRoutes(t *testing.T) {
	env := setupTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice@example.com", "Alice")
	bob := testutil.CreateUser(t, env.db, "bob@example.com", "Bob")
	org := testutil.CreateOrganization(t, env.db, "acme")
	testutil.AddMember(t, env.db, org.ID, alice.ID, models.RoleOwner)
	testutil.AddMember(t, env.db, org.ID, bob.ID, models.RoleMember)
	bobToken := env.token(bob.ID)

	w := env.do(http.MethodGet, "/api/orgs/acme/members", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPatch, "/api/orgs/acme", bobToken, map[string]string{"name": "Renamed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, "/api/orgs/acme/projects", bobToken, map[string]string{"key": "ENG", "name": "Engineering"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, "/api/orgs/acme/invitations", bobToken, map[string]string{"email": "x@example.com"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOrganizationHandler_OwnerRoleCannotChange(t *testing.T) {
	env := setupTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice@example.com", "Alice")
	carol := testutil.CreateUser(t, env.db, "carol@example.com", "Carol")
	org := testutil.CreateOrganization(t, env.db, "acme")
	testutil.AddMember(t, env.db, org.ID, alice.ID, models.RoleOwner)
	testutil.AddMember(t, env.db, org.ID, carol.ID, models.RoleAdmin)

	path := fmt.Sprintf("/api/orgs/acme/members/%d", alice.ID)
	w := env.do(http.MethodPatch, path, env.token(carol.ID), map[string]string{"role": "member"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodDelete, path, env.token(carol.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOrganizationHandler_InviteAndAccept(t *testing.T) {
	env := setupTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice@example.com", "Alice")
	dave := testutil.CreateUser(t, env.db, "dave@example.com", "Dave")
	org := testutil.CreateOrganization(t, env.db, "acme")
	testutil.AddMember(t, env.db, org.ID, alice.ID, models.RoleOwner)

	w := env.do(http.MethodPost, "/api/orgs/acme/invitations", env.token(alice.ID), map[string]string{
		"email": "Dave@Example.com",
		"role":  "admin",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var inv dto.CreatedInvitationDTO
	decode(t, w, &inv)
	require.NotEmpty(t, inv.Token)
	assert.Equal(t, "dave@example.com", inv.Email)

	w = env.do(http.MethodGet, "/api/orgs/acme/invitations", env.token(alice.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), inv.Token)

	daveToken := env.token(dave.ID)
	w = env.do(http.MethodPost, "/api/invitations/accept", daveToken, map[string]string{"token": inv.Token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodGet, "/api/orgs/acme", daveToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got dto.OrganizationWithRoleDTO
	decode(t, w, &got)
	assert.Equal(t, models.RoleAdmin, got.Role)

	w = env.do(http.MethodPost, "/api/invitations/accept", daveToken, map[string]string{"token": inv.Token})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOrganizationHandler_RemovedMemberLosesAccess(t *testing.T) {
	env := setupTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice@example.com", "Alice")
	bob := testutil.CreateUser(t, env.db, "bob@example.com", "Bob")
	org := testutil.CreateOrganization(t, env.db, "acme")
	testutil.AddMember(t, env.db, org.ID, alice.ID, models.RoleOwner)
	testutil.AddMember(t, env.db, org.ID, bob.ID, models.RoleMember)
	bobToken := env.token(bob.ID)

	w := env.do(http.MethodGet, "/api/orgs/acme/projects", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodDelete, fmt.Sprintf("/api/orgs/acme/members/%d", bob.ID), env.token(alice.ID), nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	// The token is still valid; membership is checked on every request.
	w = env.do(http.MethodGet, "/api/auth/me", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/orgs/acme/projects", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
