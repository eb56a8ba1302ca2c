package product

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/orionintegra/orion-backend/pkg/db/models"
	pkgerrors "github.com/orionintegra/orion-backend/pkg/errors"
	"github.com/orionintegra/orion-backend/pkg/logger"
	"github.com/orionintegra/orion-backend/pkg/pagination"
	"go.uber.org/multierr"
)

// Catalog categories carried by the storefront.
const (
	CategoryCCTV        = "cctv"
	CategorySwitches    = "switches"
	CategoryNVR         = "nvr"
	CategoryAccessories = "accessories"
)

var allowedCategories = map[string]struct{}{
	CategoryCCTV:        {},
	CategorySwitches:    {},
	CategoryNVR:         {},
	CategoryAccessories: {},
}

type productRepository interface {
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListProducts(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Product, bool, error)
}

// imageSweeper is the slice of the image orchestrator used when a product is
// removed: list the metadata rows, then delete each image (row plus blob).
type imageSweeper interface {
	List(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error)
	Delete(ctx context.Context, imageID uuid.UUID) error
}

// ListParams carries catalog listing inputs.
type ListParams struct {
	Limit    int
	Cursor   string
	Category string
}

// Service exposes catalog operations.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, params ListParams) (*ProductListPage, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo   productRepository
	images imageSweeper
	logg   *logger.Logger
}

// NewService constructs the catalog service.
func NewService(repo productRepository, images imageSweeper, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if images == nil {
		return nil, fmt.Errorf("image sweeper required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, images: images, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category := strings.ToLower(strings.TrimSpace(input.Category))
	if _, ok := allowedCategories[category]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unknown category %q, allowed: cctv, switches, nvr, accessories", input.Category))
	}
	if input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_cents must not be negative")
	}

	row := &models.Product{
		ID:                  uuid.New(),
		Name:                name,
		Slug:                slugify(name),
		Category:            category,
		Subcategory:         strings.TrimSpace(input.Subcategory),
		Brand:               strings.TrimSpace(input.Brand),
		PriceCents:          input.PriceCents,
		CompareAtPriceCents: input.CompareAtPriceCents,
		InStock:             input.InStock,
		ShortDescription:    input.ShortDescription,
		Description:         input.Description,
		Features:            input.Features,
		Tags:                input.Tags,
		Warranty:            input.Warranty,
		Installation:        input.Installation,
	}

	if _, err := s.repo.FindBySlug(ctx, row.Slug); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a product with this name already exists")
	} else if !errors.Is(err, ErrProductNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product slug")
	}

	stored, err := s.repo.CreateProduct(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist product")
	}
	return NewProductDTO(stored), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product identity missing")
	}

	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	dto := NewProductDTO(row)
	imgs, err := s.images.List(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product images")
	}
	for i := range imgs {
		dto.Images = append(dto.Images, NewImageDTO(&imgs[i]))
	}
	return dto, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ProductListPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	category := strings.ToLower(strings.TrimSpace(params.Category))
	if category != "" {
		if _, ok := allowedCategories[category]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown category %q", params.Category))
		}
	}

	rows, hasMore, err := s.repo.ListProducts(ctx, ListFilter{Category: category}, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	page := &ProductListPage{Products: make([]ProductDTO, 0, len(rows))}
	for i := range rows {
		page.Products = append(page.Products, *NewProductDTO(&rows[i]))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product identity missing")
	}

	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		row.Name = name
	}
	if input.Category != nil {
		category := strings.ToLower(strings.TrimSpace(*input.Category))
		if _, ok := allowedCategories[category]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown category %q", *input.Category))
		}
		row.Category = category
	}
	if input.Subcategory != nil {
		row.Subcategory = strings.TrimSpace(*input.Subcategory)
	}
	if input.Brand != nil {
		row.Brand = strings.TrimSpace(*input.Brand)
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_cents must not be negative")
		}
		row.PriceCents = *input.PriceCents
	}
	if input.CompareAtPriceCents != nil {
		row.CompareAtPriceCents = input.CompareAtPriceCents
	}
	if input.InStock != nil {
		row.InStock = *input.InStock
	}
	if input.ShortDescription != nil {
		row.ShortDescription = *input.ShortDescription
	}
	if input.Description != nil {
		row.Description = *input.Description
	}
	if input.Features != nil {
		row.Features = *input.Features
	}
	if input.Tags != nil {
		row.Tags = *input.Tags
	}
	if input.Warranty != nil {
		row.Warranty = *input.Warranty
	}
	if input.Installation != nil {
		row.Installation = *input.Installation
	}

	stored, err := s.repo.UpdateProduct(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return NewProductDTO(stored), nil
}

// Delete removes the product and sweeps its images first so no blob is left
// behind without a row pointing at it.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product identity missing")
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	imgs, err := s.images.List(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product images")
	}

	var sweepErr error
	for _, img := range imgs {
		if err := s.images.Delete(ctx, img.ID); err != nil {
			sweepErr = multierr.Append(sweepErr, fmt.Errorf("image %s: %w", img.ID, err))
		}
	}
	if sweepErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, sweepErr, "sweep product images")
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}

	s.logg.Info(s.logg.WithProductID(ctx, id.String()), "product deleted")
	return nil
}

var slugStripRe = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStripRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
