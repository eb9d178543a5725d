package model

// Customer is an email captured from a public form.
// swagger:model Customer
type Customer struct {
	BaseModel
	OrganizationID uint          `gorm:"uniqueIndex:idx_customer_org_email;not null" json:"organizationId"`
	Organization   *Organization `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Email          string        `gorm:"size:150;uniqueIndex:idx_customer_org_email;not null" json:"email"`
	Name           string        `gorm:"size:150" json:"name"`
	Source         string        `gorm:"size:50" json:"source"`
}

func (Customer) TableName() string {
	return "customers"
}
