package product

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/orionintegra/orion-backend/pkg/db/models"
	"github.com/orionintegra/orion-backend/pkg/pagination"
	"gorm.io/gorm"
)

// ErrProductNotFound is returned when the requested product row does not exist.
var ErrProductNotFound = errors.New("product not found")

// ListFilter narrows the catalog listing.
type ListFilter struct {
	Category string
}

// Repository wires together product persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateProduct inserts a new product row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct updates an existing product row.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes a product by ID.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindBySlug loads the product by its unique slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// Exists reports whether a product row with the given ID is present.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListProducts returns a page of products ordered newest first, plus a flag
// for whether more rows exist past the page.
func (r *Repository) ListProducts(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Product, bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	fetch := pagination.NormalizeLimit(limit) + 1
	var rows []models.Product
	err := query.
		Order("created_at DESC, id DESC").
		Limit(fetch).
		Find(&rows).Error
	if err != nil {
		return nil, false, err
	}

	hasMore := len(rows) == fetch
	if hasMore {
		rows = rows[:fetch-1]
	}
	return rows, hasMore, nil
}
