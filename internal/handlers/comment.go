package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/projecthub-api/internal/dto"
	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/services"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

type commentRequest struct {
	Body json.RawMessage `json:"body_json" binding:"required"`
}

func (h *CommentHandler) CreateComment(c *gin.Context) {
	var req commentRequest
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

	comment, err := h.commentService.CreateComment(c.Request.Context(), member, taskID, req.Body)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToCommentDTO(*comment))
}

func (h *CommentHandler) ListComments(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	taskID, ok := uintParam(c, "task_id")
	if !ok {
		return
	}

	comments, err := h.commentService.ListComments(c.Request.Context(), member, taskID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": dto.ToCommentDTOs(comments)})
}

func (h *CommentHandler) GetComment(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	commentID, ok := uintParam(c, "comment_id")
	if !ok {
		return
	}

	comment, err := h.commentService.GetComment(c.Request.Context(), member, commentID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCommentDTO(*comment))
}

func (h *CommentHandler) UpdateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, ok := currentMember(c)
	if !ok {
		return
	}
	commentID, ok := uintParam(c, "comment_id")
	if !ok {
		return
	}

	comment, err := h.commentService.UpdateComment(c.Request.Context(), member, commentID, req.Body)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCommentDTO(*comment))
}

func (h *CommentHandler) DeleteComment(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	commentID, ok := uintParam(c, "comment_id")
	if !ok {
		return
	}

	if err := h.commentService.DeleteComment(c.Request.Context(), member, commentID); err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
