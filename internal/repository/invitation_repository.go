package repository

import (
	"context"
	"time"

	"github.com/yukikurage/projecthub-api/internal/models"
	"gorm.io/gorm"
)

type GormInvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &GormInvitationRepository{db: db}
}

func (r *GormInvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *GormInvitationRepository) FindByID(ctx context.Context, organizationID, id uint64) (*models.Invitation, error) {
	var inv models.Invitation
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *GormInvitationRepository) FindByToken(ctx context.Context, token string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *GormInvitationRepository) ListPending(ctx context.Context, organizationID uint64, now time.Time) ([]models.Invitation, error) {
	var invs []models.Invitation
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND accepted_at IS NULL AND expires_at > ?", organizationID, now).
		Order("created_at DESC").
		Find(&invs).Error
	return invs, err
}

func (r *GormInvitationRepository) MarkAccepted(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("id = ?", id).
		Update("accepted_at", at).Error
}

func (r *GormInvitationRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Invitation{}, id).Error
}
