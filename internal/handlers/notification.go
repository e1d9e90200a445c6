package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/projecthub-api/internal/dto"
	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/services"
	"github.com/yukikurage/projecthub-api/internal/utils"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// ListNotifications lists the caller's notifications in the organization.
// ?unread=true limits the page to unread ones.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	page, err := h.notificationService.ListNotifications(c.Request.Context(), member, services.ListNotificationsInput{
		UnreadOnly: c.Query("unread") == "true",
		Page:       params.Page,
		PageSize:   params.Limit,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToNotificationListResponse(page.Notifications, page.Total, page.UnreadCount))
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}
	notificationID, ok := uintParam(c, "notification_id")
	if !ok {
		return
	}

	n, err := h.notificationService.MarkRead(c.Request.Context(), member, notificationID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToNotificationDTO(*n))
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), member)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
