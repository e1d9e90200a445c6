package repository

import (
	"context"

	"github.com/yukikurage/projecthub-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormNotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &GormNotificationRepository{db: db}
}

// CreateOnce relies on the unique dispatch_key index, so two workers handling
// the same message concurrently still produce one row.
func (r *GormNotificationRepository) CreateOnce(ctx context.Context, n *models.Notification) (*models.Notification, bool, error) {
	db := r.db.WithContext(ctx)
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dispatch_key"}},
		DoNothing: true,
	}).Create(n)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 1 {
		return n, true, nil
	}

	var existing models.Notification
	if err := db.Where("dispatch_key = ?", n.DispatchKey).First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (r *GormNotificationRepository) List(ctx context.Context, filter NotificationFilter) ([]models.Notification, int64, error) {
	var notifications []models.Notification

	query := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("organization_id = ? AND user_id = ?", filter.OrganizationID, filter.UserID)
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("created_at DESC").Order("id DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	if err := listQuery.Find(&notifications).Error; err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *GormNotificationRepository) CountUnread(ctx context.Context, organizationID, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("organization_id = ? AND user_id = ? AND is_read = ?", organizationID, userID, false).
		Count(&count).Error
	return count, err
}

func (r *GormNotificationRepository) FindByID(ctx context.Context, id uint64) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *GormNotificationRepository) MarkRead(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

func (r *GormNotificationRepository) MarkAllRead(ctx context.Context, organizationID, userID uint64) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("organization_id = ? AND user_id = ? AND is_read = ?", organizationID, userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}
