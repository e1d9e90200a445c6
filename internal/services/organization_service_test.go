package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"github.com/yukikurage/projecthub-api/internal/tenancy"
	"github.com/yukikurage/projecthub-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OrganizationServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	db      *gorm.DB
	store   *repository.Store
	service *OrganizationService
	guard   *tenancy.Guard
	owner   *models.User
	org     *models.Organization
	ownerM  *models.OrganizationMember
}

func (suite *OrganizationServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.db = testutil.NewDB(suite.T())
	suite.store = repository.NewStore(suite.db, time.Second)
	suite.service = NewOrganizationService(suite.store, zap.NewNop())
	suite.guard = tenancy.NewGuard(suite.store.Organizations)

	suite.owner = testutil.CreateUser(suite.T(), suite.db, "owner@example.com", "Owner")
	org, err := suite.service.CreateOrganization(suite.ctx, CreateOrganizationInput{Name: "Acme Corp", OwnerID: suite.owner.ID})
	suite.Require().NoError(err)
	suite.org = org
	suite.ownerM, err = suite.store.Organizations.FindMember(suite.ctx, org.ID, suite.owner.ID)
	suite.Require().NoError(err)
}

func (suite *OrganizationServiceTestSuite) join(email string, role models.OrganizationRole) (*models.User, *models.OrganizationMember) {
	user := testutil.CreateUser(suite.T(), suite.db, email, email)
	return user, testutil.AddMember(suite.T(), suite.db, suite.org.ID, user.ID, role)
}

func (suite *OrganizationServiceTestSuite) TestCreateOrganization_CreatorIsOwner() {
	suite.Equal("acme-corp", suite.org.Slug)
	suite.Equal(models.RoleOwner, suite.ownerM.Role)

	_, err := suite.service.CreateOrganization(suite.ctx, CreateOrganizationInput{Name: "Acme", Slug: "acme-corp", OwnerID: suite.owner.ID})
	suite.ErrorIs(err, ErrSlugTaken)
	suite.Equal(apierrors.KindConflict, apierrors.KindOf(err))

	_, err = suite.service.CreateOrganization(suite.ctx, CreateOrganizationInput{Name: "  ", OwnerID: suite.owner.ID})
	suite.ErrorIs(err, ErrInvalidOrganizationName)

	_, err = suite.service.CreateOrganization(suite.ctx, CreateOrganizationInput{Name: "X", Slug: "Bad Slug!", OwnerID: suite.owner.ID})
	suite.ErrorIs(err, ErrInvalidSlug)
}

func (suite *OrganizationServiceTestSuite) TestOwnerRoleCannotChange() {
	_, adminM := suite.join("admin@example.com", models.RoleAdmin)

	_, err := suite.service.UpdateMemberRole(suite.ctx, suite.ownerM, suite.owner.ID, models.RoleMember)
	suite.ErrorIs(err, tenancy.ErrForbidden)

	_, err = suite.service.UpdateMemberRole(suite.ctx, adminM, suite.owner.ID, models.RoleAdmin)
	suite.ErrorIs(err, tenancy.ErrForbidden)

	suite.ErrorIs(suite.service.RemoveMember(suite.ctx, suite.ownerM, suite.owner.ID), tenancy.ErrForbidden)
	suite.ErrorIs(suite.service.RemoveMember(suite.ctx, adminM, suite.owner.ID), tenancy.ErrForbidden)

	member, err := suite.store.Organizations.FindMember(suite.ctx, suite.org.ID, suite.owner.ID)
	suite.Require().NoError(err)
	suite.Equal(models.RoleOwner, member.Role)
}

func (suite *OrganizationServiceTestSuite) TestAdminCannotPromoteToOwnerOrTouchAdmins() {
	_, adminM := suite.join("admin@example.com", models.RoleAdmin)
	other, _ := suite.join("admin2@example.com", models.RoleAdmin)
	plain, _ := suite.join("member@example.com", models.RoleMember)

	_, err := suite.service.UpdateMemberRole(suite.ctx, adminM, plain.ID, models.RoleOwner)
	suite.ErrorIs(err, tenancy.ErrForbidden)

	_, err = suite.service.UpdateMemberRole(suite.ctx, adminM, other.ID, models.RoleMember)
	suite.ErrorIs(err, tenancy.ErrForbidden)

	suite.ErrorIs(suite.service.RemoveMember(suite.ctx, adminM, other.ID), tenancy.ErrForbidden)

	updated, err := suite.service.UpdateMemberRole(suite.ctx, adminM, plain.ID, models.RoleAdmin)
	suite.Require().NoError(err)
	suite.Equal(models.RoleAdmin, updated.Role)
}

func (suite *OrganizationServiceTestSuite) TestUpdateMemberRole_UnknownMember() {
	_, err := suite.service.UpdateMemberRole(suite.ctx, suite.ownerM, 9999, models.RoleAdmin)
	suite.ErrorIs(err, ErrOrganizationMemberNotFound)
}

// Invite, accept, remove: the removed user loses access on the next check.
func (suite *OrganizationServiceTestSuite) TestInviteAcceptRemove() {
	invitee := testutil.CreateUser(suite.T(), suite.db, "x@example.com", "X")

	inv, token, err := suite.service.CreateInvitation(suite.ctx, suite.ownerM, CreateInvitationInput{Email: "X@Example.com"})
	suite.Require().NoError(err)
	suite.Equal("x@example.com", inv.Email)
	suite.Equal(models.RoleMember, inv.Role)
	suite.NotEmpty(token)
	suite.WithinDuration(time.Now().Add(48*time.Hour), inv.ExpiresAt, time.Minute)

	org, err := suite.service.AcceptInvitation(suite.ctx, invitee.ID, token)
	suite.Require().NoError(err)
	suite.Equal(suite.org.ID, org.ID)

	member, err := suite.guard.Authorize(suite.ctx, invitee.ID, suite.org.ID, tenancy.AnyMember)
	suite.Require().NoError(err)
	suite.Equal(models.RoleMember, member.Role)

	_, err = suite.service.AcceptInvitation(suite.ctx, invitee.ID, token)
	suite.ErrorIs(err, ErrInvitationNotPending)

	suite.Require().NoError(suite.service.RemoveMember(suite.ctx, suite.ownerM, invitee.ID))

	_, err = suite.guard.Authorize(suite.ctx, invitee.ID, suite.org.ID, tenancy.AnyMember)
	suite.ErrorIs(err, tenancy.ErrNotFound)
	_, _, err = suite.guard.ResolveBySlug(suite.ctx, invitee.ID, suite.org.Slug, tenancy.AnyMember)
	suite.ErrorIs(err, tenancy.ErrNotFound)
}

func (suite *OrganizationServiceTestSuite) TestAcceptInvitation_Rules() {
	invitee := testutil.CreateUser(suite.T(), suite.db, "x@example.com", "X")
	someoneElse := testutil.CreateUser(suite.T(), suite.db, "y@example.com", "Y")

	_, token, err := suite.service.CreateInvitation(suite.ctx, suite.ownerM, CreateInvitationInput{Email: invitee.Email, Role: models.RoleAdmin})
	suite.Require().NoError(err)

	_, err = suite.service.AcceptInvitation(suite.ctx, someoneElse.ID, token)
	suite.ErrorIs(err, ErrInvitationEmailMismatch)

	_, err = suite.service.AcceptInvitation(suite.ctx, invitee.ID, "no-such-token")
	suite.ErrorIs(err, ErrInvitationNotFound)

	suite.service.now = func() time.Time { return time.Now().Add(49 * time.Hour) }
	_, err = suite.service.AcceptInvitation(suite.ctx, invitee.ID, token)
	suite.ErrorIs(err, ErrInvitationNotPending)
}

func (suite *OrganizationServiceTestSuite) TestCreateInvitation_Rules() {
	existing, _ := suite.join("member@example.com", models.RoleMember)

	_, _, err := suite.service.CreateInvitation(suite.ctx, suite.ownerM, CreateInvitationInput{Email: existing.Email})
	suite.ErrorIs(err, ErrAlreadyOrganizationMember)

	_, _, err = suite.service.CreateInvitation(suite.ctx, suite.ownerM, CreateInvitationInput{Email: "new@example.com", Role: models.RoleOwner})
	suite.ErrorIs(err, ErrInvalidInviteRole)

	_, _, err = suite.service.CreateInvitation(suite.ctx, suite.ownerM, CreateInvitationInput{Email: "not-an-email"})
	suite.ErrorIs(err, ErrInvalidEmail)
}

func (suite *OrganizationServiceTestSuite) TestListAndRevokeInvitations() {
	inv, _, err := suite.service.CreateInvitation(suite.ctx, suite.ownerM, CreateInvitationInput{Email: "a@example.com"})
	suite.Require().NoError(err)
	_, _, err = suite.service.CreateInvitation(suite.ctx, suite.ownerM, CreateInvitationInput{Email: "b@example.com"})
	suite.Require().NoError(err)

	pending, err := suite.service.ListInvitations(suite.ctx, suite.ownerM)
	suite.Require().NoError(err)
	suite.Len(pending, 2)

	suite.Require().NoError(suite.service.RevokeInvitation(suite.ctx, suite.ownerM, inv.ID))
	pending, err = suite.service.ListInvitations(suite.ctx, suite.ownerM)
	suite.Require().NoError(err)
	suite.Len(pending, 1)

	suite.ErrorIs(suite.service.RevokeInvitation(suite.ctx, suite.ownerM, inv.ID), ErrInvitationNotFound)
}

func (suite *OrganizationServiceTestSuite) TestListOrganizationsForUser() {
	_, err := suite.service.CreateOrganization(suite.ctx, CreateOrganizationInput{Name: "Beta", OwnerID: suite.owner.ID})
	suite.Require().NoError(err)

	orgs, err := suite.service.ListOrganizationsForUser(suite.ctx, suite.owner.ID)
	suite.Require().NoError(err)
	suite.Len(orgs, 2)
}

func TestOrganizationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OrganizationServiceTestSuite))
}
