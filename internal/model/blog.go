package model

import "time"

// swagger:model Post
type Post struct {
	BaseModel
	OrganizationID uint          `gorm:"uniqueIndex:idx_post_org_slug;not null" json:"organizationId"`
	Organization   *Organization `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	AuthorID       uint          `gorm:"index" json:"authorId"`
	Title          string        `gorm:"size:255;not null" json:"title"`
	Slug           string        `gorm:"size:255;uniqueIndex:idx_post_org_slug;not null" json:"slug"`
	Body           string        `gorm:"type:text" json:"body"`
	CoverURL       string        `gorm:"size:255" json:"coverUrl"`
	Published      bool          `gorm:"default:false" json:"published"`
	PublishedAt    *time.Time    `json:"publishedAt,omitempty"`
}

func (Post) TableName() string {
	return "blog_posts"
}
