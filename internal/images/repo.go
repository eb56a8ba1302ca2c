package images

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/orionintegra/orion-backend/pkg/db/models"
	"gorm.io/gorm"
)

// ErrImageNotFound is returned when the requested image row does not exist.
var ErrImageNotFound = errors.New("product image not found")

// Repository exposes product image metadata persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an image repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert persists an image record.
func (r *Repository) Insert(ctx context.Context, image *models.ProductImage) (*models.ProductImage, error) {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return nil, err
	}
	return image, nil
}

// FindByID retrieves an image record by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductImage, error) {
	var img models.ProductImage
	if err := r.db.WithContext(ctx).First(&img, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &img, nil
}

// ListByProduct returns all images for a product in display order: sort_order
// ascending, newest upload first within the same slot.
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error) {
	var imgs []models.ProductImage
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("sort_order ASC, uploaded_at DESC").
		Find(&imgs).Error
	if err != nil {
		return nil, err
	}
	return imgs, nil
}

// CountByProduct returns how many images a product has.
func (r *Repository) CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductImage{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SetPrimary flips is_primary on for imageID and off for every sibling in a
// single statement, so the partial unique index never sees two primaries.
func (r *Repository) SetPrimary(ctx context.Context, productID, imageID uuid.UUID) error {
	res := r.db.WithContext(ctx).Exec(
		"UPDATE product_images SET is_primary = (id = ?) WHERE product_id = ?",
		imageID, productID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrImageNotFound
	}
	return nil
}

// UpdateSortOrder rewrites sort_order to match the supplied ID ordering.
// IDs not belonging to the product are ignored.
func (r *Repository) UpdateSortOrder(ctx context.Context, productID uuid.UUID, orderedIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for position, id := range orderedIDs {
			err := tx.Model(&models.ProductImage{}).
				Where("id = ? AND product_id = ?", id, productID).
				Update("sort_order", position).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteWithPromotion removes the image row and, when it was the primary,
// promotes the next image in display order inside the same transaction. The
// deleted row is returned so callers can clean up the stored blob.
func (r *Repository) DeleteWithPromotion(ctx context.Context, id uuid.UUID) (*models.ProductImage, error) {
	var deleted models.ProductImage

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&deleted, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrImageNotFound
			}
			return err
		}

		if err := tx.Where("id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}

		if !deleted.IsPrimary {
			return nil
		}

		var next models.ProductImage
		err := tx.Where("product_id = ?", deleted.ProductID).
			Order("sort_order ASC, uploaded_at DESC").
			First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return tx.Model(&models.ProductImage{}).
			Where("id = ?", next.ID).
			Update("is_primary", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}
