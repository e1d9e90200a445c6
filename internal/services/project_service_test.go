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

type ProjectServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	db      *gorm.DB
	store   *repository.Store
	service *ProjectService
	sprints *SprintService
	member  *models.OrganizationMember
	outside *models.OrganizationMember
}

func (suite *ProjectServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.db = testutil.NewDB(suite.T())
	suite.store = repository.NewStore(suite.db, time.Second)
	suite.service = NewProjectService(suite.store)
	suite.sprints = NewSprintService(suite.store, zap.NewNop())

	org := testutil.CreateOrganization(suite.T(), suite.db, "acme")
	other := testutil.CreateOrganization(suite.T(), suite.db, "globex")
	user := testutil.CreateUser(suite.T(), suite.db, "owner@example.com", "Owner")
	suite.member = testutil.AddMember(suite.T(), suite.db, org.ID, user.ID, models.RoleOwner)
	suite.outside = testutil.AddMember(suite.T(), suite.db, other.ID, user.ID, models.RoleOwner)
}

func (suite *ProjectServiceTestSuite) createProject(key string) *models.Project {
	project, err := suite.service.CreateProject(suite.ctx, suite.member, CreateProjectInput{Key: key, Name: "Project " + key})
	suite.Require().NoError(err)
	return project
}

func (suite *ProjectServiceTestSuite) TestCreateProject_SeedsStatusesAndCounter() {
	project := suite.createProject("eng")

	suite.Equal("ENG", project.Key)
	suite.Require().Len(project.Statuses, 3)
	suite.Equal(models.StatusCategoryTodo, project.Statuses[0].Category)
	suite.Equal(models.StatusCategoryDone, project.Statuses[2].Category)

	last, err := suite.store.Counters.Peek(suite.ctx, project.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(0), last)
}

func (suite *ProjectServiceTestSuite) TestCreateProject_KeyRules() {
	suite.createProject("ENG")

	_, err := suite.service.CreateProject(suite.ctx, suite.member, CreateProjectInput{Key: "ENG", Name: "Again"})
	suite.ErrorIs(err, ErrProjectKeyTaken)
	suite.Equal(apierrors.KindConflict, apierrors.KindOf(err))

	// Keys are unique per organization only.
	_, err = suite.service.CreateProject(suite.ctx, suite.outside, CreateProjectInput{Key: "ENG", Name: "Elsewhere"})
	suite.NoError(err)

	for _, key := range []string{"E", "1ENG", "ENG-1", "TOOLONGKEY1"} {
		_, err := suite.service.CreateProject(suite.ctx, suite.member, CreateProjectInput{Key: key, Name: "Bad"})
		suite.ErrorIs(err, ErrInvalidProjectKey, key)
	}

	_, err = suite.service.CreateProject(suite.ctx, suite.member, CreateProjectInput{Key: "OPS", Name: " "})
	suite.ErrorIs(err, ErrProjectNameRequired)
}

func (suite *ProjectServiceTestSuite) TestGetProject_OtherOrganizationIsNotFound() {
	project := suite.createProject("ENG")

	_, err := suite.service.GetProject(suite.ctx, suite.outside, project.ID)
	suite.ErrorIs(err, ErrProjectNotFound)
	_, err = suite.service.ListStatuses(suite.ctx, suite.outside, project.ID)
	suite.ErrorIs(err, ErrProjectNotFound)
}

func (suite *ProjectServiceTestSuite) TestArchiveProject() {
	project := suite.createProject("ENG")

	archived, err := suite.service.ArchiveProject(suite.ctx, suite.member, project.ID)
	suite.Require().NoError(err)
	suite.True(archived.IsArchived)
	suite.Require().NotNil(archived.ArchivedAt)

	again, err := suite.service.ArchiveProject(suite.ctx, suite.member, project.ID)
	suite.Require().NoError(err)
	suite.Equal(archived.ArchivedAt.Unix(), again.ArchivedAt.Unix())

	active, err := suite.service.ListProjects(suite.ctx, suite.member, false)
	suite.Require().NoError(err)
	suite.Empty(active)

	all, err := suite.service.ListProjects(suite.ctx, suite.member, true)
	suite.Require().NoError(err)
	suite.Len(all, 1)
}

func (suite *ProjectServiceTestSuite) TestUpdateProject() {
	project := suite.createProject("ENG")
	name := "Engineering"
	desc := "Core platform"

	updated, err := suite.service.UpdateProject(suite.ctx, suite.member, project.ID, UpdateProjectInput{Name: &name, Description: &desc})
	suite.Require().NoError(err)
	suite.Equal("Engineering", updated.Name)
	suite.Equal("Core platform", updated.Description)
	suite.Equal("ENG", updated.Key)

	blank := ""
	_, err = suite.service.UpdateProject(suite.ctx, suite.member, project.ID, UpdateProjectInput{Name: &blank})
	suite.ErrorIs(err, ErrProjectNameRequired)
}

func (suite *ProjectServiceTestSuite) TestCreateStatus_AppendsAfterExisting() {
	project := suite.createProject("ENG")

	status, err := suite.service.CreateStatus(suite.ctx, suite.member, project.ID, CreateStatusInput{Name: "Review", Category: models.StatusCategoryInProgress})
	suite.Require().NoError(err)
	suite.Equal(3, status.Position)

	_, err = suite.service.CreateStatus(suite.ctx, suite.member, project.ID, CreateStatusInput{Name: "Weird", Category: "blocked"})
	suite.ErrorIs(err, ErrInvalidCategory)

	statuses, err := suite.service.ListStatuses(suite.ctx, suite.member, project.ID)
	suite.Require().NoError(err)
	suite.Len(statuses, 4)
}

func (suite *ProjectServiceTestSuite) TestSprintLifecycle() {
	project := suite.createProject("ENG")
	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(14 * 24 * time.Hour)

	_, err := suite.sprints.CreateSprint(suite.ctx, suite.member, project.ID, CreateSprintInput{Name: "Bad", StartDate: &end, EndDate: &start})
	suite.ErrorIs(err, ErrInvalidSprintDates)

	first, err := suite.sprints.CreateSprint(suite.ctx, suite.member, project.ID, CreateSprintInput{Name: "Sprint 1", StartDate: &start, EndDate: &end})
	suite.Require().NoError(err)
	suite.Equal(models.SprintPlanned, first.Status)
	second, err := suite.sprints.CreateSprint(suite.ctx, suite.member, project.ID, CreateSprintInput{Name: "Sprint 2"})
	suite.Require().NoError(err)

	_, err = suite.sprints.CompleteSprint(suite.ctx, suite.member, project.ID, first.ID)
	suite.ErrorIs(err, ErrSprintNotActive)

	started, err := suite.sprints.StartSprint(suite.ctx, suite.member, project.ID, first.ID)
	suite.Require().NoError(err)
	suite.Equal(models.SprintActive, started.Status)

	_, err = suite.sprints.StartSprint(suite.ctx, suite.member, project.ID, second.ID)
	suite.ErrorIs(err, ErrActiveSprintExists)
	_, err = suite.sprints.StartSprint(suite.ctx, suite.member, project.ID, first.ID)
	suite.ErrorIs(err, ErrSprintNotPlanned)

	todo := suite.sprintTask(project, first.ID, 0, 1)
	done := suite.sprintTask(project, first.ID, 2, 2)

	completed, err := suite.sprints.CompleteSprint(suite.ctx, suite.member, project.ID, first.ID)
	suite.Require().NoError(err)
	suite.Equal(models.SprintCompleted, completed.Status)
	suite.NotNil(completed.CompletedAt)

	var unfinished, finished models.Task
	suite.Require().NoError(suite.db.First(&unfinished, todo.ID).Error)
	suite.Nil(unfinished.SprintID)
	suite.Require().NoError(suite.db.First(&finished, done.ID).Error)
	suite.Require().NotNil(finished.SprintID)
	suite.Equal(first.ID, *finished.SprintID)

	_, err = suite.sprints.StartSprint(suite.ctx, suite.member, project.ID, second.ID)
	suite.NoError(err)

	_, err = suite.sprints.ListSprints(suite.ctx, suite.outside, project.ID)
	suite.ErrorIs(err, ErrProjectNotFound)
}

func (suite *ProjectServiceTestSuite) sprintTask(project *models.Project, sprintID uint64, statusIdx int, number int64) *models.Task {
	task := &models.Task{
		OrganizationID: project.OrganizationID,
		ProjectID:      project.ID,
		Number:         number,
		Title:          "task",
		StatusID:       project.Statuses[statusIdx].ID,
		ReporterID:     suite.member.UserID,
		Priority:       models.PriorityNone,
		Type:           models.TaskTypeTask,
		SprintID:       &sprintID,
	}
	suite.Require().NoError(suite.db.Omit("Status", "Reporter", "Assignee").Create(task).Error)
	return task
}

func (suite *ProjectServiceTestSuite) TestCreateSprint_ArchivedProject() {
	project := suite.createProject("ENG")
	_, err := suite.service.ArchiveProject(suite.ctx, suite.member, project.ID)
	suite.Require().NoError(err)

	_, err = suite.sprints.CreateSprint(suite.ctx, suite.member, project.ID, CreateSprintInput{Name: "Late"})
	suite.ErrorIs(err, ErrProjectArchived)
}

func (suite *ProjectServiceTestSuite) TestSprintChangesRequireManager() {
	project := suite.createProject("ENG")
	sprint, err := suite.sprints.CreateSprint(suite.ctx, suite.member, project.ID, CreateSprintInput{Name: "Sprint 1"})
	suite.Require().NoError(err)

	user := testutil.CreateUser(suite.T(), suite.db, "member@example.com", "Member")
	plain := testutil.AddMember(suite.T(), suite.db, suite.member.OrganizationID, user.ID, models.RoleMember)

	_, err = suite.sprints.CreateSprint(suite.ctx, plain, project.ID, CreateSprintInput{Name: "Mine"})
	suite.ErrorIs(err, tenancy.ErrForbidden)
	_, err = suite.sprints.StartSprint(suite.ctx, plain, project.ID, sprint.ID)
	suite.ErrorIs(err, tenancy.ErrForbidden)
	_, err = suite.sprints.CompleteSprint(suite.ctx, plain, project.ID, sprint.ID)
	suite.ErrorIs(err, tenancy.ErrForbidden)
	name := "Renamed"
	_, err = suite.sprints.UpdateSprint(suite.ctx, plain, project.ID, sprint.ID, UpdateSprintInput{Name: &name})
	suite.ErrorIs(err, tenancy.ErrForbidden)
	suite.ErrorIs(suite.sprints.DeleteSprint(suite.ctx, plain, project.ID, sprint.ID), tenancy.ErrForbidden)

	sprints, err := suite.sprints.ListSprints(suite.ctx, plain, project.ID)
	suite.Require().NoError(err)
	suite.Require().Len(sprints, 1)
	suite.Equal(models.SprintPlanned, sprints[0].Status)
	suite.Equal("Sprint 1", sprints[0].Name)
}

func (suite *ProjectServiceTestSuite) TestUpdateSprint() {
	project := suite.createProject("ENG")
	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(14 * 24 * time.Hour)
	sprint, err := suite.sprints.CreateSprint(suite.ctx, suite.member, project.ID, CreateSprintInput{Name: "Sprint 1", Goal: "Ship", StartDate: &start, EndDate: &end})
	suite.Require().NoError(err)

	name, goal := "Sprint One", "Ship faster"
	updated, err := suite.sprints.UpdateSprint(suite.ctx, suite.member, project.ID, sprint.ID, UpdateSprintInput{Name: &name, Goal: &goal})
	suite.Require().NoError(err)
	suite.Equal("Sprint One", updated.Name)
	suite.Equal("Ship faster", updated.Goal)
	suite.Require().NotNil(updated.EndDate)
	suite.True(end.Equal(*updated.EndDate))

	// The merged dates are checked, not only the ones sent.
	early := start.Add(-24 * time.Hour)
	_, err = suite.sprints.UpdateSprint(suite.ctx, suite.member, project.ID, sprint.ID, UpdateSprintInput{EndDate: &early})
	suite.ErrorIs(err, ErrInvalidSprintDates)

	blank := "  "
	_, err = suite.sprints.UpdateSprint(suite.ctx, suite.member, project.ID, sprint.ID, UpdateSprintInput{Name: &blank})
	suite.ErrorIs(err, ErrSprintNameRequired)

	_, err = suite.sprints.UpdateSprint(suite.ctx, suite.outside, project.ID, sprint.ID, UpdateSprintInput{Name: &name})
	suite.ErrorIs(err, ErrProjectNotFound)
}

func (suite *ProjectServiceTestSuite) TestDeleteSprint() {
	project := suite.createProject("ENG")
	planned, err := suite.sprints.CreateSprint(suite.ctx, suite.member, project.ID, CreateSprintInput{Name: "Planned"})
	suite.Require().NoError(err)
	active, err := suite.sprints.CreateSprint(suite.ctx, suite.member, project.ID, CreateSprintInput{Name: "Active"})
	suite.Require().NoError(err)
	_, err = suite.sprints.StartSprint(suite.ctx, suite.member, project.ID, active.ID)
	suite.Require().NoError(err)

	task := suite.sprintTask(project, planned.ID, 0, 1)

	suite.ErrorIs(suite.sprints.DeleteSprint(suite.ctx, suite.member, project.ID, active.ID), ErrSprintNotDeletable)
	suite.Require().NoError(suite.sprints.DeleteSprint(suite.ctx, suite.member, project.ID, planned.ID))

	var backlog models.Task
	suite.Require().NoError(suite.db.First(&backlog, task.ID).Error)
	suite.Nil(backlog.SprintID)

	suite.ErrorIs(suite.sprints.DeleteSprint(suite.ctx, suite.member, project.ID, planned.ID), ErrSprintNotFound)
}

func TestProjectServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ProjectServiceTestSuite))
}
