package model

import "time"

const (
	ProductKindProduct = "product"
	ProductKindService = "service"
	ProductKindVideo   = "video"

	OrderPending = "pending"
	OrderPaid    = "paid"
	OrderFailed  = "failed"
)

// Product covers physical goods, bookable services and paid videos.
// Price is stored in minor currency units.
// swagger:model Product
type Product struct {
	BaseModel
	OrganizationID uint          `gorm:"index;not null" json:"organizationId"`
	Organization   *Organization `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Kind           string        `gorm:"size:20;default:'product'" json:"kind"`
	Name           string        `gorm:"size:200;not null" json:"name"`
	Description    string        `gorm:"type:text" json:"description"`
	Price          int64         `gorm:"not null;default:0" json:"price"`
	Currency       string        `gorm:"size:3" json:"currency"`
	ImageURL       string        `gorm:"size:255" json:"imageUrl"`
	VideoURL       string        `gorm:"size:255" json:"videoUrl"`
	ThumbnailURL   string        `gorm:"size:255" json:"thumbnailUrl"`
	VideoDuration  float64       `gorm:"default:0" json:"videoDuration"` // Seconds
	Active         bool          `gorm:"not null" json:"active"`
}

func (Product) TableName() string {
	return "products"
}

// swagger:model Order
type Order struct {
	UUIDBase
	OrganizationID uint       `gorm:"index;not null" json:"organizationId"`
	UserID         uint       `gorm:"index;not null" json:"userId"`
	User           *User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ProductID      uint       `gorm:"index;not null" json:"productId"`
	Product        *Product   `gorm:"constraint:OnDelete:CASCADE" json:"product,omitempty"`
	Quantity       int        `gorm:"default:1" json:"quantity"`
	Amount         int64      `gorm:"not null" json:"amount"`
	Currency       string     `gorm:"size:3" json:"currency"`
	Reference      string     `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	Status         string     `gorm:"size:20;default:'pending';index" json:"status"`
	PaidAt         *time.Time `json:"paidAt,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}
