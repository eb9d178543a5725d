package repository

import (
	"bizbox_backend/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.DB.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepository) FindForUser(ctx context.Context, userID, id uint) (*model.Notification, error) {
	var n model.Notification
	err := r.DB.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&n).Error
	return &n, err
}

// ListForUser returns delivered notifications, newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID uint, unreadOnly bool) ([]model.Notification, error) {
	list := []model.Notification{}
	query := r.DB.WithContext(ctx).Where("user_id = ? AND delivered_at IS NOT NULL", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	err := query.Order("id desc").Find(&list).Error
	return list, err
}

// MarkRead is idempotent; it fails only when the user has no such notification.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id uint) error {
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND id = ?", userID, id).
		Update("is_read", true)
	if res.Error != nil || res.RowsAffected > 0 {
		return res.Error
	}
	// MySQL reports unchanged rows as unaffected.
	_, err := r.FindForUser(ctx, userID, id)
	return err
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, id uint) error {
	return deleted(r.DB.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&model.Notification{}))
}

// FindDue returns undelivered notifications scheduled at or before now.
func (r *NotificationRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]model.Notification, error) {
	var list []model.Notification
	err := r.DB.WithContext(ctx).
		Where("delivered_at IS NULL AND scheduled_at IS NOT NULL AND scheduled_at <= ?", now).
		Order("scheduled_at asc").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// MarkDelivered sets delivered_at once; it reports false when another worker won.
func (r *NotificationRepository) MarkDelivered(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND delivered_at IS NULL", id).
		Update("delivered_at", at)
	return res.RowsAffected > 0, res.Error
}
