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

type taskFixture struct {
	env      *testEnv
	alice    *models.User
	bob      *models.User
	outsider *models.User
	project  *models.Project
	statuses []models.TaskStatus
}

func setupTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	env := setupTestEnv(t)

	f := &taskFixture{env: env}
	f.alice = testutil.CreateUser(t, env.db, "alice@example.com", "Alice")
	f.bob = testutil.CreateUser(t, env.db, "bob@example.com", "Bob")
	f.outsider = testutil.CreateUser(t, env.db, "eve@example.com", "Eve")

	org := testutil.CreateOrganization(t, env.db, "acme")
	testutil.AddMember(t, env.db, org.ID, f.alice.ID, models.RoleOwner)
	testutil.AddMember(t, env.db, org.ID, f.bob.ID, models.RoleMember)

	other := testutil.CreateOrganization(t, env.db, "globex")
	testutil.AddMember(t, env.db, other.ID, f.outsider.ID, models.RoleOwner)

	f.project, f.statuses = testutil.CreateProject(t, env.db, org.ID, "ENG", f.alice.ID)
	return f
}

func (f *taskFixture) createTask(t *testing.T, token string, body map[string]interface{}) dto.TaskDTO {
	t.Helper()
	w := f.env.do(http.MethodPost, fmt.Sprintf("/api/orgs/acme/projects/%d/tasks", f.project.ID), token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var task dto.TaskDTO
	decode(t, w, &task)
	return task
}

func TestTaskHandler_CreateAssignsSequentialNumbers(t *testing.T) {
	f := setupTaskFixture(t)
	token := f.env.token(f.bob.ID)

	first := f.createTask(t, token, map[string]interface{}{"title": "First"})
	second := f.createTask(t, token, map[string]interface{}{"title": "Second", "number": 99})

	assert.Equal(t, int64(1), first.Number)
	assert.Equal(t, int64(2), second.Number)
	assert.Equal(t, f.statuses[0].ID, first.StatusID)
	assert.Equal(t, f.bob.ID, first.ReporterID)

	w := f.env.do(http.MethodGet, fmt.Sprintf("/api/orgs/acme/projects/%d/tasks/number/2", f.project.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var byNumber dto.TaskDTO
	decode(t, w, &byNumber)
	assert.Equal(t, second.ID, byNumber.ID)
}

func TestTaskHandler_CreateValidation(t *testing.T) {
	f := setupTaskFixture(t)
	token := f.env.token(f.alice.ID)
	path := fmt.Sprintf("/api/orgs/acme/projects/%d/tasks", f.project.ID)

	w := f.env.do(http.MethodPost, path, token, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.env.do(http.MethodPost, path, token, map[string]interface{}{"title": "x", "assignee_id": f.outsider.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ASSIGNEE", errorCode(t, w))

	w = f.env.do(http.MethodPost, path, token, map[string]interface{}{"title": "x", "priority": "whenever"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_PatchDistinguishesNullFromAbsent(t *testing.T) {
	f := setupTaskFixture(t)
	token := f.env.token(f.alice.ID)
	task := f.createTask(t, token, map[string]interface{}{"title": "Fix login", "assignee_id": f.bob.ID})
	require.NotNil(t, task.AssigneeID)
	path := fmt.Sprintf("/api/orgs/acme/tasks/%d", task.ID)

	w := f.env.do(http.MethodPatch, path, token, `{"title":"Fix login page"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated dto.TaskDTO
	decode(t, w, &updated)
	assert.Equal(t, "Fix login page", updated.Title)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, f.bob.ID, *updated.AssigneeID)

	w = f.env.do(http.MethodPatch, path, token, `{"assignee_id":null}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated = dto.TaskDTO{}
	decode(t, w, &updated)
	assert.Nil(t, updated.AssigneeID)
	assert.Equal(t, "Fix login page", updated.Title)

	w = f.env.do(http.MethodPatch, path, token, `{"title":null}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NULL_NOT_ALLOWED", errorCode(t, w))
}

func TestTaskHandler_MoveRecordsActivity(t *testing.T) {
	f := setupTaskFixture(t)
	token := f.env.token(f.bob.ID)
	task := f.createTask(t, token, map[string]interface{}{"title": "Ship it"})
	done := f.statuses[2]

	w := f.env.do(http.MethodPost, fmt.Sprintf("/api/orgs/acme/tasks/%d/move", task.ID), token, map[string]interface{}{"status_id": done.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var moved dto.TaskDTO
	decode(t, w, &moved)
	assert.Equal(t, done.ID, moved.StatusID)

	w = f.env.do(http.MethodGet, fmt.Sprintf("/api/orgs/acme/tasks/%d/activity", task.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Activity []dto.ActivityDTO `json:"activity"`
	}
	decode(t, w, &resp)

	actions := make([]string, 0, len(resp.Activity))
	for _, a := range resp.Activity {
		actions = append(actions, a.Action)
	}
	assert.Contains(t, actions, models.ActionTaskCreated)
	assert.Contains(t, actions, models.ActionFieldUpdated)
}

func TestTaskHandler_ListFiltersAndPaginates(t *testing.T) {
	f := setupTaskFixture(t)
	token := f.env.token(f.alice.ID)
	for i := 0; i < 3; i++ {
		f.createTask(t, token, map[string]interface{}{"title": fmt.Sprintf("Task %d", i), "priority": "high"})
	}
	f.createTask(t, token, map[string]interface{}{"title": "Quiet one", "priority": "low"})

	w := f.env.do(http.MethodGet, fmt.Sprintf("/api/orgs/acme/projects/%d/tasks?priority=high&limit=2", f.project.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list dto.TaskListResponse
	decode(t, w, &list)
	assert.Len(t, list.Tasks, 2)
	assert.Equal(t, int64(3), list.Pagination.Total)

	w = f.env.do(http.MethodGet, fmt.Sprintf("/api/orgs/acme/projects/%d/tasks?status_id=abc", f.project.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_OtherOrganizationCannotSeeTask(t *testing.T) {
	f := setupTaskFixture(t)
	task := f.createTask(t, f.env.token(f.alice.ID), map[string]interface{}{"title": "Secret"})
	eve := f.env.token(f.outsider.ID)

	// Through Eve's own organization the id resolves to nothing.
	w := f.env.do(http.MethodGet, fmt.Sprintf("/api/orgs/globex/tasks/%d", task.ID), eve, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Through the id-only route the answer matches a missing task.
	existing := f.env.do(http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), eve, nil)
	missing := f.env.do(http.MethodGet, "/api/tasks/999999", eve, nil)
	assert.Equal(t, http.StatusNotFound, existing.Code)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, missing.Body.String(), existing.Body.String())
}

func TestTaskHandler_IDOnlyRoutes(t *testing.T) {
	f := setupTaskFixture(t)
	bob := f.env.token(f.bob.ID)
	task := f.createTask(t, bob, map[string]interface{}{"title": "Linked"})

	w := f.env.do(http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), bob, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.env.do(http.MethodPost, fmt.Sprintf("/api/orgs/acme/tasks/%d/comments", task.ID), bob,
		`{"body_json":{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hi"}]}]}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var comment dto.CommentDTO
	decode(t, w, &comment)

	w = f.env.do(http.MethodGet, fmt.Sprintf("/api/comments/%d", comment.ID), f.env.token(f.alice.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.env.do(http.MethodGet, fmt.Sprintf("/api/comments/%d", comment.ID), f.env.token(f.outsider.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.env.do(http.MethodGet, "/api/tasks/abc", bob, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_DeleteRequiresReporterOrManager(t *testing.T) {
	f := setupTaskFixture(t)
	task := f.createTask(t, f.env.token(f.alice.ID), map[string]interface{}{"title": "Alice's"})
	path := fmt.Sprintf("/api/orgs/acme/tasks/%d", task.ID)

	w := f.env.do(http.MethodDelete, path, f.env.token(f.bob.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.env.do(http.MethodDelete, path, f.env.token(f.alice.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.env.do(http.MethodGet, path, f.env.token(f.alice.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
