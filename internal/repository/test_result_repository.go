package repository

import (
	"bizbox_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

type TestResultRepository struct {
	DB *gorm.DB
}

func NewTestResultRepository(db *gorm.DB) *TestResultRepository {
	return &TestResultRepository{DB: db}
}

func (r *TestResultRepository) WithTx(tx *gorm.DB) *TestResultRepository {
	return &TestResultRepository{DB: tx}
}

// Create stores the result and links it to its tests without touching the
// test rows themselves.
func (r *TestResultRepository) Create(ctx context.Context, result *model.TestResult) error {
	return r.DB.WithContext(ctx).Omit("Tests.*").Create(result).Error
}

func withTests(db *gorm.DB) *gorm.DB {
	return db.Preload("Tests").Preload("Tests.Year").Preload("Tests.TestType")
}

// ListByUser returns the user's results, newest first.
func (r *TestResultRepository) ListByUser(ctx context.Context, userID uint) ([]model.TestResult, error) {
	results := []model.TestResult{}
	err := withTests(r.DB.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("id desc").
		Find(&results).Error
	return results, err
}

// FindForUser looks the result up among the user's own results only.
func (r *TestResultRepository) FindForUser(ctx context.Context, userID, resultID uint) (*model.TestResult, error) {
	var result model.TestResult
	err := withTests(r.DB.WithContext(ctx)).
		Where("user_id = ?", userID).
		Where("id = ?", resultID).
		First(&result).Error
	return &result, err
}

// ListByTest returns every result linked to a test, with the submitting user.
func (r *TestResultRepository) ListByTest(ctx context.Context, testID uint) ([]model.TestResult, error) {
	var results []model.TestResult
	err := r.DB.WithContext(ctx).
		Preload("User").
		Where("id IN (?)", r.DB.Table("cbt_test_result_tests").Select("test_result_id").Where("test_id = ?", testID)).
		Order("id asc").
		Find(&results).Error
	return results, err
}

func (r *TestResultRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.TestResult{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
