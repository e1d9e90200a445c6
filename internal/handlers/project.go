package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/projecthub-api/internal/dto"
	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/services"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	sprintService  *services.SprintService
	labelService   *services.LabelService
}

func NewProjectHandler(projectService *services.ProjectService, sprintService *services.SprintService, labelService *services.LabelService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		sprintService:  sprintService,
		labelService:   labelService,
	}
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	type CreateProjectRequest struct {
		Key         string `json:"key" binding:"required"`
		Name        string `json:"name" binding:"required,max=255"`
		Description string `json:"description"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, ok := currentMember(c)
	if !ok {
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), member, services.CreateProjectInput{
		Key:         req.Key,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// ListProjects hides archived projects unless ?archived=true.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}

	projects, err := h.projectService.ListProjects(c.Request.Context(), member, c.Query("archived") == "true")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": dto.ToProjectDTOs(projects)})
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	projectID, ok := uintParam(c, "project_id")
	if !ok {
		return
	}

	project, err := h.projectService.GetProject(c.Request.Context(), member, projectID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	type UpdateProjectRequest struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}

	var req UpdateProjectRequest
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

	project, err := h.projectService.UpdateProject(c.Request.Context(), member, projectID, services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

func (h *ProjectHandler) ArchiveProject(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	projectID, ok := uintParam(c, "project_id")
	if !ok {
		return
	}

	project, err := h.projectService.ArchiveProject(c.Request.Context(), member, projectID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

func (h *ProjectHandler) ListStatuses(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	projectID, ok := uintParam(c, "project_id")
	if !ok {
		return
	}

	statuses, err := h.projectService.ListStatuses(c.Request.Context(), member, projectID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"statuses": dto.ToTaskStatusDTOs(statuses)})
}

func (h *ProjectHandler) CreateStatus(c *gin.Context) {
	type CreateStatusRequest struct {
		Name     string                `json:"name" binding:"required,max=100"`
		Category models.StatusCategory `json:"category" binding:"required"`
		Color    string                `json:"color" binding:"omitempty,max=7"`
	}

	var req CreateStatusRequest
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

	status, err := h.projectService.CreateStatus(c.Request.Context(), member, projectID, services.CreateStatusInput{
		Name:     req.Name,
		Category: req.Category,
		Color:    req.Color,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToTaskStatusDTO(*status))
}

func (h *ProjectHandler) ListLabels(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	projectID, ok := uintParam(c, "project_id")
	if !ok {
		return
	}

	labels, err := h.labelService.ListLabels(c.Request.Context(), member, projectID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"labels": dto.ToLabelDTOs(labels)})
}

func (h *ProjectHandler) CreateLabel(c *gin.Context) {
	type CreateLabelRequest struct {
		Name  string `json:"name" binding:"required,max=50"`
		Color string `json:"color" binding:"omitempty,max=7"`
	}

	var req CreateLabelRequest
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

	label, err := h.labelService.CreateLabel(c.Request.Context(), member, projectID, services.CreateLabelInput{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToLabelDTO(*label))
}

func (h *ProjectHandler) CreateSprint(c *gin.Context) {
	type CreateSprintRequest struct {
		Name      string     `json:"name" binding:"required,max=255"`
		Goal      string     `json:"goal"`
		StartDate *time.Time `json:"start_date"`
		EndDate   *time.Time `json:"end_date"`
	}

	var req CreateSprintRequest
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

	sprint, err := h.sprintService.CreateSprint(c.Request.Context(), member, projectID, services.CreateSprintInput{
		Name:      req.Name,
		Goal:      req.Goal,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToSprintDTO(*sprint))
}

func (h *ProjectHandler) ListSprints(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	projectID, ok := uintParam(c, "project_id")
	if !ok {
		return
	}

	sprints, err := h.sprintService.ListSprints(c.Request.Context(), member, projectID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sprints": dto.ToSprintDTOs(sprints)})
}

func (h *ProjectHandler) UpdateSprint(c *gin.Context) {
	type UpdateSprintRequest struct {
		Name      *string    `json:"name" binding:"omitempty,max=255"`
		Goal      *string    `json:"goal"`
		StartDate *time.Time `json:"start_date"`
		EndDate   *time.Time `json:"end_date"`
	}

	var req UpdateSprintRequest
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
	sprintID, ok := uintParam(c, "sprint_id")
	if !ok {
		return
	}

	sprint, err := h.sprintService.UpdateSprint(c.Request.Context(), member, projectID, sprintID, services.UpdateSprintInput{
		Name:      req.Name,
		Goal:      req.Goal,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSprintDTO(*sprint))
}

func (h *ProjectHandler) DeleteSprint(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	projectID, ok := uintParam(c, "project_id")
	if !ok {
		return
	}
	sprintID, ok := uintParam(c, "sprint_id")
	if !ok {
		return
	}

	if err := h.sprintService.DeleteSprint(c.Request.Context(), member, projectID, sprintID); err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProjectHandler) StartSprint(c *gin.Context) {
	h.sprintTransition(c, h.sprintService.StartSprint)
}

// CompleteSprint closes the sprint; unfinished tasks return to the backlog.
func (h *ProjectHandler) CompleteSprint(c *gin.Context) {
	h.sprintTransition(c, h.sprintService.CompleteSprint)
}

type sprintTransitionFunc func(ctx context.Context, member *models.OrganizationMember, projectID, sprintID uint64) (*models.Sprint, error)

func (h *ProjectHandler) sprintTransition(c *gin.Context, transition sprintTransitionFunc) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	projectID, ok := uintParam(c, "project_id")
	if !ok {
		return
	}
	sprintID, ok := uintParam(c, "sprint_id")
	if !ok {
		return
	}

	sprint, err := transition(c.Request.Context(), member, projectID, sprintID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSprintDTO(*sprint))
}
