package repository

import (
	"bizbox_backend/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type CommerceRepository struct {
	DB *gorm.DB
}

func NewCommerceRepository(db *gorm.DB) *CommerceRepository {
	return &CommerceRepository{DB: db}
}

func (r *CommerceRepository) CreateProduct(ctx context.Context, p *model.Product) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *CommerceRepository) FindProduct(ctx context.Context, orgID, id uint) (*model.Product, error) {
	var p model.Product
	err := r.DB.WithContext(ctx).Where("organization_id = ? AND id = ?", orgID, id).First(&p).Error
	return &p, err
}

func (r *CommerceRepository) ListProducts(ctx context.Context, orgID uint, kind string, activeOnly bool) ([]model.Product, error) {
	products := []model.Product{}
	query := r.DB.WithContext(ctx).Where("organization_id = ?", orgID)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	err := query.Order("id desc").Find(&products).Error
	return products, err
}

func (r *CommerceRepository) UpdateProduct(ctx context.Context, p *model.Product, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Model(p).Updates(fields).Error
}

func (r *CommerceRepository) DeleteProduct(ctx context.Context, orgID, id uint) error {
	return deleted(r.DB.WithContext(ctx).Where("organization_id = ? AND id = ?", orgID, id).Delete(&model.Product{}))
}

func (r *CommerceRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	return r.DB.WithContext(ctx).Create(o).Error
}

func (r *CommerceRepository) FindOrderByReference(ctx context.Context, reference string) (*model.Order, error) {
	var o model.Order
	err := r.DB.WithContext(ctx).Preload("Product").Where("reference = ?", reference).First(&o).Error
	return &o, err
}

func (r *CommerceRepository) ListOrdersForUser(ctx context.Context, userID uint) ([]model.Order, error) {
	orders := []model.Order{}
	err := r.DB.WithContext(ctx).Preload("Product").Where("user_id = ?", userID).Order("created_at desc").Find(&orders).Error
	return orders, err
}

func (r *CommerceRepository) ListOrdersForOrganization(ctx context.Context, orgID uint, status string) ([]model.Order, error) {
	orders := []model.Order{}
	query := r.DB.WithContext(ctx).Preload("Product").Where("organization_id = ?", orgID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at desc").Find(&orders).Error
	return orders, err
}

// FindStalePending returns pending orders created before cutoff.
func (r *CommerceRepository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	var orders []model.Order
	err := r.DB.WithContext(ctx).
		Where("status = ? AND created_at <= ?", model.OrderPending, cutoff).
		Order("created_at asc").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// SetOrderStatus moves a pending order to status; it reports false when the
// order had already left the pending state.
func (r *CommerceRepository) SetOrderStatus(ctx context.Context, o *model.Order, status string, paidAt *time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", o.ID, model.OrderPending).
		Updates(map[string]interface{}{"status": status, "paid_at": paidAt})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	o.Status = status
	o.PaidAt = paidAt
	return true, nil
}
