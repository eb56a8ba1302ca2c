package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/orionintegra/orion-backend/pkg/db/models"
)

// CreateProductInput is the payload accepted when creating a catalog entry.
type CreateProductInput struct {
	Name                string   `json:"name" validate:"required,min=2,max=200"`
	Category            string   `json:"category" validate:"required"`
	Subcategory         string   `json:"subcategory,omitempty"`
	Brand               string   `json:"brand,omitempty"`
	PriceCents          int      `json:"price_cents" validate:"gte=0"`
	CompareAtPriceCents *int     `json:"compare_at_price_cents,omitempty" validate:"omitempty,gte=0"`
	InStock             bool     `json:"in_stock"`
	ShortDescription    string   `json:"short_description,omitempty"`
	Description         string   `json:"description,omitempty"`
	Features            []string `json:"features,omitempty"`
	Tags                []string `json:"tags,omitempty"`
	Warranty            string   `json:"warranty,omitempty"`
	Installation        bool     `json:"installation"`
}

// UpdateProductInput carries partial catalog updates. Nil fields are left as-is.
type UpdateProductInput struct {
	Name                *string   `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Category            *string   `json:"category,omitempty"`
	Subcategory         *string   `json:"subcategory,omitempty"`
	Brand               *string   `json:"brand,omitempty"`
	PriceCents          *int      `json:"price_cents,omitempty" validate:"omitempty,gte=0"`
	CompareAtPriceCents *int      `json:"compare_at_price_cents,omitempty" validate:"omitempty,gte=0"`
	InStock             *bool     `json:"in_stock,omitempty"`
	ShortDescription    *string   `json:"short_description,omitempty"`
	Description         *string   `json:"description,omitempty"`
	Features            *[]string `json:"features,omitempty"`
	Tags                *[]string `json:"tags,omitempty"`
	Warranty            *string   `json:"warranty,omitempty"`
	Installation        *bool     `json:"installation,omitempty"`
}

// ProductDTO is the catalog entry returned to clients.
type ProductDTO struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	Slug                string     `json:"slug"`
	Category            string     `json:"category"`
	Subcategory         string     `json:"subcategory,omitempty"`
	Brand               string     `json:"brand,omitempty"`
	PriceCents          int        `json:"price_cents"`
	CompareAtPriceCents *int       `json:"compare_at_price_cents,omitempty"`
	Rating              float64    `json:"rating"`
	ReviewCount         int        `json:"review_count"`
	InStock             bool       `json:"in_stock"`
	ShortDescription    string     `json:"short_description,omitempty"`
	Description         string     `json:"description,omitempty"`
	Features            []string   `json:"features"`
	Tags                []string   `json:"tags"`
	Warranty            string     `json:"warranty,omitempty"`
	Installation        bool       `json:"installation"`
	Images              []ImageDTO `json:"images,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ImageDTO captures product image metadata.
type ImageDTO struct {
	ID         uuid.UUID `json:"id"`
	URL        string    `json:"url"`
	Filename   string    `json:"filename"`
	Alt        string    `json:"alt,omitempty"`
	IsPrimary  bool      `json:"is_primary"`
	SortOrder  int       `json:"sort_order"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ProductListPage is one page of catalog results plus the next cursor.
type ProductListPage struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) *ProductDTO {
	return &ProductDTO{
		ID:                  product.ID,
		Name:                product.Name,
		Slug:                product.Slug,
		Category:            product.Category,
		Subcategory:         product.Subcategory,
		Brand:               product.Brand,
		PriceCents:          product.PriceCents,
		CompareAtPriceCents: product.CompareAtPriceCents,
		Rating:              product.Rating,
		ReviewCount:         product.ReviewCount,
		InStock:             product.InStock,
		ShortDescription:    product.ShortDescription,
		Description:         product.Description,
		Features:            append([]string{}, product.Features...),
		Tags:                append([]string{}, product.Tags...),
		Warranty:            product.Warranty,
		Installation:        product.Installation,
		CreatedAt:           product.CreatedAt,
		UpdatedAt:           product.UpdatedAt,
	}
}

// NewImageDTO builds an image DTO from the persisted model.
func NewImageDTO(img *models.ProductImage) ImageDTO {
	return ImageDTO{
		ID:         img.ID,
		URL:        img.URL,
		Filename:   img.Filename,
		Alt:        img.Alt,
		IsPrimary:  img.IsPrimary,
		SortOrder:  img.SortOrder,
		SizeBytes:  img.SizeBytes,
		UploadedAt: img.UploadedAt,
	}
}
