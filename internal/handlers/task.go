package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/projecthub-api/internal/dto"
	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/services"
	"github.com/yukikurage/projecthub-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// CreateTask creates a task in :project_id. Its number is assigned by the server.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	type CreateTaskRequest struct {
		Title        string              `json:"title" binding:"required,max=500"`
		Description  json.RawMessage     `json:"description_json"`
		StatusID     *uint64             `json:"status_id"`
		AssigneeID   *uint64             `json:"assignee_id"`
		Priority     models.TaskPriority `json:"priority"`
		Type         models.TaskType     `json:"type"`
		SprintID     *uint64             `json:"sprint_id"`
		ParentTaskID *uint64             `json:"parent_task_id"`
		DueDate      *time.Time          `json:"due_date"`
		LabelIDs     []uint64            `json:"label_ids"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, ok := currentMember(c)
	if !ok {
		return
	}
	projectID, ok := uintParam(c, "project_id")
	if !ok {
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), member, projectID, services.CreateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		StatusID:     req.StatusID,
		AssigneeID:   req.AssigneeID,
		Priority:     req.Priority,
		Type:         req.Type,
		SprintID:     req.SprintID,
		ParentTaskID: req.ParentTaskID,
		DueDate:      req.DueDate,
		LabelIDs:     req.LabelIDs,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// ListTasks lists tasks in :project_id.
// Supports status_id, assignee_id, sprint_id, backlog, priority and q filters.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	projectID, ok := uintParam(c, "project_id")
	if !ok {
		return
	}

	input := services.ListTasksInput{
		Backlog: c.Query("backlog") == "true",
		Search:  c.Query("q"),
	}
	if input.StatusID, ok = optionalUintQuery(c, "status_id"); !ok {
		return
	}
	if input.AssigneeID, ok = optionalUintQuery(c, "assignee_id"); !ok {
		return
	}
	if input.SprintID, ok = optionalUintQuery(c, "sprint_id"); !ok {
		return
	}
	if raw := c.Query("priority"); raw != "" {
		priority := models.TaskPriority(raw)
		if !priority.Valid() {
			apierrors.BadRequest(c, "Invalid priority")
			return
		}
		input.Priority = &priority
	}

	params := utils.GetPaginationParams(c)
	input.Page = params.Page
	input.PageSize = params.Limit

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), member, projectID, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, utils.NewPaginationResponse(params, total)))
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	taskID, ok := uintParam(c, "task_id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), member, taskID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// GetTaskByNumber resolves a human key such as ENG-42 within :project_id.
func (h *TaskHandler) GetTaskByNumber(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	projectID, ok := uintParam(c, "project_id")
	if !ok {
		return
	}
	number, err := strconv.ParseInt(c.Param("number"), 10, 64)
	if err != nil || number < 1 {
		apierrors.BadRequest(c, "Invalid number")
		return
	}

	task, err := h.taskService.GetTaskByNumber(c.Request.Context(), member, projectID, number)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update. Absent keys are left alone and
// explicit nulls clear optional fields.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	taskID, ok := uintParam(c, "task_id")
	if !ok {
		return
	}

	var patch services.TaskPatch
	if err := json.NewDecoder(c.Request.Body).Decode(&patch); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), member, taskID, patch)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// MoveTask changes the task's status column and optionally its position.
func (h *TaskHandler) MoveTask(c *gin.Context) {
	type MoveTaskRequest struct {
		StatusID uint64 `json:"status_id" binding:"required"`
		Position *int64 `json:"position"`
	}

	var req MoveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, ok := currentMember(c)
	if !ok {
		return
	}
	taskID, ok := uintParam(c, "task_id")
	if !ok {
		return
	}

	task, err := h.taskService.MoveTask(c.Request.Context(), member, taskID, services.MoveTaskInput{
		StatusID: req.StatusID,
		Position: req.Position,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

func (h *TaskHandler) ReorderTasks(c *gin.Context) {
	type ReorderTasksRequest struct {
		TaskIDs []uint64 `json:"task_ids" binding:"required,min=1"`
	}

	var req ReorderTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, ok := currentMember(c)
	if !ok {
		return
	}
	projectID, ok := uintParam(c, "project_id")
	if !ok {
		return
	}

	if err := h.taskService.ReorderTasks(c.Request.Context(), member, projectID, req.TaskIDs); err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	taskID, ok := uintParam(c, "task_id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), member, taskID); err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListActivity returns the task's audit trail, newest first.
func (h *TaskHandler) ListActivity(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	taskID, ok := uintParam(c, "task_id")
	if !ok {
		return
	}

	rows, err := h.taskService.ListActivity(c.Request.Context(), member, taskID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": dto.ToActivityDTOs(rows)})
}
