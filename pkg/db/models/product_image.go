package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductImage is one stored image belonging to a product. At most one row
// per product may carry is_primary = true; the partial unique index
// product_images_one_primary backs that invariant.
type ProductImage struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	URL        string    `gorm:"column:url;not null"`
	Filename   string    `gorm:"column:filename;not null"`
	Alt        string    `gorm:"column:alt"`
	IsPrimary  bool      `gorm:"column:is_primary;not null;default:false"`
	SortOrder  int       `gorm:"column:sort_order;not null;default:0"`
	SizeBytes  int64     `gorm:"column:size_bytes;not null"`
	UploadedAt time.Time `gorm:"column:uploaded_at;autoCreateTime"`
}
