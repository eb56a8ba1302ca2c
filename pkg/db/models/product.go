package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is one catalog entry in the security-products storefront.
type Product struct {
	ID                  uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                string         `gorm:"column:name;not null"`
	Slug                string         `gorm:"column:slug;not null;unique"`
	Category            string         `gorm:"column:category;not null"`
	Subcategory         string         `gorm:"column:subcategory"`
	Brand               string         `gorm:"column:brand"`
	PriceCents          int            `gorm:"column:price_cents;not null"`
	CompareAtPriceCents *int           `gorm:"column:compare_at_price_cents"`
	Rating              float64        `gorm:"column:rating;not null;default:0"`
	ReviewCount         int            `gorm:"column:review_count;not null;default:0"`
	InStock             bool           `gorm:"column:in_stock;not null;default:true"`
	ShortDescription    string         `gorm:"column:short_description"`
	Description         string         `gorm:"column:description"`
	Features            pq.StringArray `gorm:"column:features;type:text[]"`
	Tags                pq.StringArray `gorm:"column:tags;type:text[]"`
	Warranty            string         `gorm:"column:warranty"`
	Installation        bool           `gorm:"column:installation;not null;default:false"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
