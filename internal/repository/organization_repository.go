package repository

import (
	"bizbox_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

type OrganizationRepository struct {
	DB *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{DB: db}
}

// Create stores the organization and makes its owner an admin of it.
func (r *OrganizationRepository) Create(ctx context.Context, org *model.Organization) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		return tx.Model(&model.User{}).
			Where("id = ?", org.OwnerID).
			Updates(map[string]interface{}{"organization_id": org.ID, "role": model.Admin}).
			Error
	})
}

func (r *OrganizationRepository) FindByID(ctx context.Context, id uint) (*model.Organization, error) {
	var org model.Organization
	err := r.DB.WithContext(ctx).First(&org, id).Error
	return &org, err
}

func (r *OrganizationRepository) FindBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	var org model.Organization
	err := r.DB.WithContext(ctx).Where("slug = ?", slug).First(&org).Error
	return &org, err
}

func (r *OrganizationRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Organization{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *OrganizationRepository) Update(ctx context.Context, org *model.Organization) error {
	return r.DB.WithContext(ctx).Save(org).Error
}
