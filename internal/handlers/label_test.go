package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/projecthub-api/internal/dto"
	"github.com/yukikurage/projecthub-api/internal/testutil"
)

func TestLabelHandler_LabelsOnTasks(t *testing.T) {
	f := setupTaskFixture(t)
	alice := f.env.token(f.alice.ID)
	bob := f.env.token(f.bob.ID)
	labelsPath := fmt.Sprintf("/api/orgs/acme/projects/%d/labels", f.project.ID)

	w := f.env.do(http.MethodPost, labelsPath, bob, map[string]string{"name": "bug"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.env.do(http.MethodPost, labelsPath, alice, map[string]string{"name": "bug", "color": "#ef4444"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var bug dto.LabelDTO
	decode(t, w, &bug)
	assert.Equal(t, "#ef4444", bug.Color)

	w = f.env.do(http.MethodGet, labelsPath, bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Labels []dto.LabelDTO `json:"labels"`
	}
	decode(t, w, &list)
	require.Len(t, list.Labels, 1)

	ops, _ := testutil.CreateProject(t, f.env.db, f.project.OrganizationID, "OPS", f.alice.ID)
	w = f.env.do(http.MethodPost, fmt.Sprintf("/api/orgs/acme/projects/%d/labels", ops.ID), alice, map[string]string{"name": "ops"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var foreign dto.LabelDTO
	decode(t, w, &foreign)

	task := f.createTask(t, bob, map[string]interface{}{"title": "Tagged", "label_ids": []uint64{bug.ID}})
	require.Len(t, task.Labels, 1)
	assert.Equal(t, "bug", task.Labels[0].Name)

	taskPath := fmt.Sprintf("/api/orgs/acme/tasks/%d", task.ID)
	w = f.env.do(http.MethodPatch, taskPath, bob, map[string]interface{}{"label_ids": []uint64{foreign.ID}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "LABEL_NOT_FOUND", errorCode(t, w))

	w = f.env.do(http.MethodPatch, taskPath, bob, `{"label_ids":[]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cleared dto.TaskDTO
	decode(t, w, &cleared)
	assert.Empty(t, cleared.Labels)

	w = f.env.do(http.MethodPost, fmt.Sprintf("/api/orgs/acme/projects/%d/tasks", f.project.ID), bob,
		map[string]interface{}{"title": "x", "label_ids": []uint64{foreign.ID}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "LABEL_NOT_FOUND", errorCode(t, w))
}
