package repository

import (
	"bizbox_backend/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository struct {
	DB *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{DB: db}
}

// Capture stores the email once per organization; repeated captures keep
// the first row.
func (r *CustomerRepository) Capture(ctx context.Context, c *model.Customer) error {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}, {Name: "email"}},
		DoNothing: true,
	}).Create(c).Error
	if err != nil {
		return err
	}
	return r.DB.WithContext(ctx).
		Where("organization_id = ? AND email = ?", c.OrganizationID, c.Email).
		First(c).Error
}

func (r *CustomerRepository) List(ctx context.Context, orgID uint, page, limit int) ([]model.Customer, int64, error) {
	customers := []model.Customer{}
	query := r.DB.WithContext(ctx).Model(&model.Customer{}).Where("organization_id = ?", orgID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		query = query.Offset((page - 1) * limit).Limit(limit)
	}
	err := query.Order("id desc").Find(&customers).Error
	return customers, total, err
}

func (r *CustomerRepository) Delete(ctx context.Context, orgID, id uint) error {
	return deleted(r.DB.WithContext(ctx).Where("organization_id = ? AND id = ?", orgID, id).Delete(&model.Customer{}))
}
