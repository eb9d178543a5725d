// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"bizbox_backend/internal/config"
	"bizbox_backend/internal/model"
	"bizbox_backend/pkg/database"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
)

// NewDB opens a migrated sqlite database in a temp dir.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}, true)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func CreateOrganization(t *testing.T, db *gorm.DB, slug string) *model.Organization {
	t.Helper()
	org := &model.Organization{Name: slug, Slug: slug}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	return org
}

// CreateUser inserts a user; orgID 0 leaves the user without an organization.
func CreateUser(t *testing.T, db *gorm.DB, email string, role model.UserRole, orgID uint) *model.User {
	t.Helper()
	user := &model.User{Name: email, Email: email, Password: "x", Role: role}
	if orgID > 0 {
		user.OrganizationID = &orgID
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}
