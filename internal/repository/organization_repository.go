package repository

import (
	"context"

	"github.com/yukikurage/projecthub-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrganizationRepository is a GORM implementation of OrganizationRepository
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// Create creates a new organization
func (r *GormOrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(org).Error
}

// FindByID finds an organization by ID
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id uint64) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// FindBySlug finds an organization by its URL slug
func (r *GormOrganizationRepository) FindBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// Update updates an organization
func (r *GormOrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(org).Error
}

// ListByUserID lists all organizations a user is a member of
func (r *GormOrganizationRepository) ListByUserID(ctx context.Context, userID uint64) ([]models.Organization, error) {
	var orgs []models.Organization
	err := r.db.WithContext(ctx).
		Joins("JOIN organization_members ON organization_members.organization_id = organizations.id").
		Where("organization_members.user_id = ?", userID).
		Order("organizations.name ASC").
		Find(&orgs).Error
	return orgs, err
}

// AddMember adds a member to an organization
func (r *GormOrganizationRepository) AddMember(ctx context.Context, member *models.OrganizationMember) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(member).Error
}

// UpdateMemberRole changes the role of an existing member
func (r *GormOrganizationRepository) UpdateMemberRole(ctx context.Context, organizationID, userID uint64, role models.OrganizationRole) error {
	result := r.db.WithContext(ctx).Model(&models.OrganizationMember{}).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RemoveMember removes a member from an organization
func (r *GormOrganizationRepository) RemoveMember(ctx context.Context, organizationID, userID uint64) error {
	return r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		Delete(&models.OrganizationMember{}).Error
}

// FindMember finds a specific organization member
func (r *GormOrganizationRepository) FindMember(ctx context.Context, organizationID, userID uint64) (*models.OrganizationMember, error) {
	var member models.OrganizationMember
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers lists all members of an organization
func (r *GormOrganizationRepository) ListMembers(ctx context.Context, organizationID uint64) ([]models.OrganizationMember, error) {
	var members []models.OrganizationMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ?", organizationID).
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}
