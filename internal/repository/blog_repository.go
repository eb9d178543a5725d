package repository

import (
	"bizbox_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

type BlogRepository struct {
	DB *gorm.DB
}

func NewBlogRepository(db *gorm.DB) *BlogRepository {
	return &BlogRepository{DB: db}
}

func (r *BlogRepository) Create(ctx context.Context, post *model.Post) error {
	return r.DB.WithContext(ctx).Create(post).Error
}

func (r *BlogRepository) Find(ctx context.Context, orgID, id uint) (*model.Post, error) {
	var post model.Post
	err := r.DB.WithContext(ctx).Where("organization_id = ? AND id = ?", orgID, id).First(&post).Error
	return &post, err
}

func (r *BlogRepository) FindPublishedBySlug(ctx context.Context, orgID uint, slug string) (*model.Post, error) {
	var post model.Post
	err := r.DB.WithContext(ctx).
		Where("organization_id = ? AND slug = ? AND published = ?", orgID, slug, true).
		First(&post).Error
	return &post, err
}

func (r *BlogRepository) List(ctx context.Context, orgID uint, publishedOnly bool, page, limit int) ([]model.Post, int64, error) {
	posts := []model.Post{}
	query := r.DB.WithContext(ctx).Model(&model.Post{}).Where("organization_id = ?", orgID)
	if publishedOnly {
		query = query.Where("published = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		query = query.Offset((page - 1) * limit).Limit(limit)
	}
	err := query.Order("id desc").Find(&posts).Error
	return posts, total, err
}

func (r *BlogRepository) SlugExists(ctx context.Context, orgID uint, slug string, excludeID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Post{}).
		Where("organization_id = ? AND slug = ? AND id <> ?", orgID, slug, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *BlogRepository) Update(ctx context.Context, post *model.Post, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Model(post).Updates(fields).Error
}

func (r *BlogRepository) Delete(ctx context.Context, orgID, id uint) error {
	return deleted(r.DB.WithContext(ctx).Where("organization_id = ? AND id = ?", orgID, id).Delete(&model.Post{}))
}
