package repository

import (
	"bizbox_backend/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Save(user).Error
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login", at).
		Error
}

func (r *UserRepository) UpdateDeviceToken(ctx context.Context, userID uint, token string) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("device_token", token).
		Error
}

// ListByOrganization returns members of an organization, optionally limited to roles.
func (r *UserRepository) ListByOrganization(ctx context.Context, orgID uint, roles ...model.UserRole) ([]model.User, error) {
	var users []model.User
	query := r.DB.WithContext(ctx).Where("organization_id = ?", orgID)
	if len(roles) > 0 {
		query = query.Where("role IN ?", roles)
	}
	err := query.Order("id asc").Find(&users).Error
	return users, err
}

// JoinOrganization moves a user into orgID with the given role.
func (r *UserRepository) JoinOrganization(ctx context.Context, userID, orgID uint, role model.UserRole) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"organization_id": orgID, "role": role}).
		Error
}
