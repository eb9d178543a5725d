package model

import "time"

// swagger:model Notification
type Notification struct {
	BaseModel
	OrganizationID *uint      `gorm:"index" json:"organizationId,omitempty"`
	UserID         uint       `gorm:"index;not null" json:"userId"`
	User           *User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Title          string     `gorm:"size:255;not null" json:"title"`
	Body           string     `gorm:"type:text" json:"body"`
	Link           string     `gorm:"size:255" json:"link"`
	Read           bool       `gorm:"column:is_read;default:false" json:"read"`
	ScheduledAt    *time.Time `gorm:"index" json:"scheduledAt,omitempty"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
