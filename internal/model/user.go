package model

import (
	"time"
)

type UserRole string

const (
	Learner UserRole = "learner"
	Staff   UserRole = "staff"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name           string        `gorm:"size:100;not null" json:"name"`
	Email          string        `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password       string        `gorm:"size:100;not null" json:"-"`
	Role           UserRole      `gorm:"size:20;default:'learner'" json:"role"`
	OrganizationID *uint         `gorm:"index" json:"organizationId,omitempty"`
	Organization   *Organization `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	DeviceToken    string        `gorm:"size:255" json:"-"`
	LastLogin      *time.Time    `json:"lastLogin,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// OrgID returns the user's organization or 0 when the user has none.
func (u *User) OrgID() uint {
	if u.OrganizationID == nil {
		return 0
	}
	return *u.OrganizationID
}
