package services

import (
	"context"
	"fmt"

	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/repository"
)

var ErrNotificationNotFound = apierrors.New(apierrors.KindNotFound, "NOTIFICATION_NOT_FOUND", "Notification not found")

// NotificationService reads notifications. Rows are only ever created by the
// notification worker.
type NotificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

type ListNotificationsInput struct {
	UnreadOnly bool
	Page       int
	PageSize   int
}

// NotificationPage is one page of notifications plus the unread total.
type NotificationPage struct {
	Notifications []models.Notification
	Total         int64
	UnreadCount   int64
}

// ListNotifications lists the caller's notifications in the member's organization.
func (s *NotificationService) ListNotifications(ctx context.Context, member *models.OrganizationMember, input ListNotificationsInput) (*NotificationPage, error) {
	notifications, total, err := s.repo.List(ctx, repository.NotificationFilter{
		OrganizationID: member.OrganizationID,
		UserID:         member.UserID,
		UnreadOnly:     input.UnreadOnly,
		Page:           input.Page,
		PageSize:       input.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	unread, err := s.repo.CountUnread(ctx, member.OrganizationID, member.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return &NotificationPage{Notifications: notifications, Total: total, UnreadCount: unread}, nil
}

// MarkRead marks one notification read. Only its recipient can see it.
func (s *NotificationService) MarkRead(ctx context.Context, member *models.OrganizationMember, notificationID uint64) (*models.Notification, error) {
	n, err := s.repo.FindByID(ctx, notificationID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	if n.UserID != member.UserID || n.OrganizationID != member.OrganizationID {
		return nil, ErrNotificationNotFound
	}
	if n.IsRead {
		return n, nil
	}
	if err := s.repo.MarkRead(ctx, n.ID); err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	n.IsRead = true
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, member *models.OrganizationMember) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, member.OrganizationID, member.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}
