package model

// Organization is the tenant boundary; most rows carry its id.
// swagger:model Organization
type Organization struct {
	BaseModel
	Name    string `gorm:"size:150;not null" json:"name"`
	Slug    string `gorm:"size:150;uniqueIndex;not null" json:"slug"`
	LogoURL string `gorm:"size:255" json:"logoUrl"`
	OwnerID uint   `gorm:"index" json:"ownerId"`
}

func (Organization) TableName() string {
	return "organizations"
}
