package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orionintegra/orion-backend/pkg/blob"
	"github.com/orionintegra/orion-backend/pkg/db"
	"github.com/orionintegra/orion-backend/pkg/db/models"
	pkgerrors "github.com/orionintegra/orion-backend/pkg/errors"
	"github.com/orionintegra/orion-backend/pkg/logger"
	"github.com/orionintegra/orion-backend/pkg/metrics"
)

const primaryIndexName = "product_images_one_primary"

type imagesRepository interface {
	Insert(ctx context.Context, image *models.ProductImage) (*models.ProductImage, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProductImage, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error)
	CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	SetPrimary(ctx context.Context, productID, imageID uuid.UUID) error
	UpdateSortOrder(ctx context.Context, productID uuid.UUID, orderedIDs []uuid.UUID) error
	DeleteWithPromotion(ctx context.Context, id uuid.UUID) (*models.ProductImage, error)
}

type blobStore interface {
	Upload(ctx context.Context, pathname, contentType string, body io.Reader) (*blob.UploadedObject, error)
	Delete(ctx context.Context, objectURL string) error
}

type productChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// UploadStatus reports how far an upload got.
type UploadStatus string

const (
	// StatusSucceeded means the blob is stored, the row is persisted, and any
	// requested primary flag was applied.
	StatusSucceeded UploadStatus = "succeeded"
	// StatusPartiallySucceeded means the image is stored and persisted but a
	// follow-up step (primary reassignment) failed.
	StatusPartiallySucceeded UploadStatus = "partially_succeeded"
)

// UploadInput models one incoming image payload.
type UploadInput struct {
	FileName    string
	ContentType string
	SizeBytes   int64
	Body        io.Reader
	Alt         string
	SortOrder   int
	MakePrimary bool
}

// UploadResult is the stored image plus the outcome status.
type UploadResult struct {
	Image  *models.ProductImage
	Status UploadStatus
}

// Service orchestrates image uploads and deletes across the blob store and
// the metadata registry.
type Service interface {
	Upload(ctx context.Context, productID uuid.UUID, input UploadInput) (*UploadResult, error)
	Delete(ctx context.Context, imageID uuid.UUID) error
	SetPrimary(ctx context.Context, productID, imageID uuid.UUID) error
	UpdateSortOrder(ctx context.Context, productID uuid.UUID, orderedIDs []uuid.UUID) error
	List(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error)
}

type service struct {
	repo           imagesRepository
	store          blobStore
	products       productChecker
	locks          *productLocks
	media          *metrics.MediaMetrics
	logg           *logger.Logger
	maxUploadBytes int64
}

// NewService constructs the image orchestrator.
func NewService(repo imagesRepository, store blobStore, products productChecker, media *metrics.MediaMetrics, logg *logger.Logger, maxUploadBytes int64) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("images repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if products == nil {
		return nil, fmt.Errorf("product checker required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if maxUploadBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be positive")
	}
	return &service{
		repo:           repo,
		store:          store,
		products:       products,
		locks:          newProductLocks(),
		media:          media,
		logg:           logg,
		maxUploadBytes: maxUploadBytes,
	}, nil
}

func (s *service) Upload(ctx context.Context, productID uuid.UUID, input UploadInput) (*UploadResult, error) {
	started := time.Now()

	res, err := s.upload(ctx, productID, input)
	switch {
	case err != nil:
		s.media.ObserveUpload("failed", time.Since(started))
	case res.Status == StatusPartiallySucceeded:
		s.media.ObserveUpload("partially_succeeded", time.Since(started))
	default:
		s.media.ObserveUpload("succeeded", time.Since(started))
	}
	return res, err
}

func (s *service) upload(ctx context.Context, productID uuid.UUID, input UploadInput) (*UploadResult, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product identity missing")
	}

	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}
	if input.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image payload is required")
	}
	if err := blob.ValidateImage(input.ContentType, input.SizeBytes, s.maxUploadBytes); err != nil {
		return nil, err
	}

	exists, err := s.products.Exists(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	pathname := blob.BuildObjectPath(productID.String(), fileName, time.Now())
	obj, err := s.store.Upload(ctx, pathname, input.ContentType, input.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "upload image blob")
	}

	unlock := s.locks.Lock(productID)
	defer unlock()

	count, err := s.repo.CountByProduct(ctx, productID)
	if err != nil {
		s.cleanupOrphan(ctx, obj.URL)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count product images")
	}

	sizeBytes := input.SizeBytes
	if obj.Size > 0 {
		sizeBytes = obj.Size
	}

	row := &models.ProductImage{
		ID:        uuid.New(),
		ProductID: productID,
		URL:       obj.URL,
		Filename:  fileName,
		Alt:       strings.TrimSpace(input.Alt),
		IsPrimary: count == 0,
		SortOrder: input.SortOrder,
		SizeBytes: sizeBytes,
	}

	stored, err := s.repo.Insert(ctx, row)
	if err != nil && row.IsPrimary && db.IsUniqueViolation(err, primaryIndexName) {
		// Another writer claimed the primary slot between count and insert.
		row.IsPrimary = false
		stored, err = s.repo.Insert(ctx, row)
	}
	if err != nil {
		s.cleanupOrphan(ctx, obj.URL)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist image row")
	}

	status := StatusSucceeded
	if input.MakePrimary && !stored.IsPrimary {
		if err := s.repo.SetPrimary(ctx, productID, stored.ID); err != nil {
			ctx := s.logg.WithImageID(ctx, stored.ID.String())
			s.logg.Error(ctx, "image stored but primary reassignment failed", err)
			status = StatusPartiallySucceeded
		} else {
			stored.IsPrimary = true
		}
	}

	return &UploadResult{Image: stored, Status: status}, nil
}

// cleanupOrphan removes a blob whose metadata row never landed.
func (s *service) cleanupOrphan(ctx context.Context, objectURL string) {
	s.media.IncOrphanCleanup()
	if err := s.store.Delete(ctx, objectURL); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "blob_url", objectURL), "orphaned blob cleanup failed")
	}
}

func (s *service) Delete(ctx context.Context, imageID uuid.UUID) error {
	if imageID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "image identity missing")
	}

	img, err := s.repo.FindByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			s.media.IncDelete("not_found")
			return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		s.media.IncDelete("failed")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load image row")
	}

	unlock := s.locks.Lock(img.ProductID)
	defer unlock()

	deleted, err := s.repo.DeleteWithPromotion(ctx, imageID)
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			s.media.IncDelete("not_found")
			return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		s.media.IncDelete("failed")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete image row")
	}

	// Metadata is gone; the blob delete is best effort. A leftover blob is
	// invisible to the catalog and can be swept later.
	if err := s.store.Delete(ctx, deleted.URL); err != nil {
		ctx := s.logg.WithFields(ctx, map[string]any{
			"image_id": imageID.String(),
			"blob_url": deleted.URL,
		})
		s.logg.Warn(ctx, "blob delete failed after metadata removal")
		s.media.IncDelete("partially_succeeded")
		return nil
	}

	s.media.IncDelete("succeeded")
	return nil
}

func (s *service) SetPrimary(ctx context.Context, productID, imageID uuid.UUID) error {
	if productID == uuid.Nil || imageID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product and image identity required")
	}

	img, err := s.repo.FindByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load image row")
	}
	if img.ProductID != productID {
		return pkgerrors.New(pkgerrors.CodeValidation, "image does not belong to product")
	}

	unlock := s.locks.Lock(productID)
	defer unlock()

	if err := s.repo.SetPrimary(ctx, productID, imageID); err != nil {
		if errors.Is(err, ErrImageNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set primary image")
	}
	return nil
}

func (s *service) UpdateSortOrder(ctx context.Context, productID uuid.UUID, orderedIDs []uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product identity missing")
	}
	if len(orderedIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "image order is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		if id == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "image order contains an empty id")
		}
		if _, dup := seen[id]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "image order contains duplicates")
		}
		seen[id] = struct{}{}
	}

	unlock := s.locks.Lock(productID)
	defer unlock()

	if err := s.repo.UpdateSortOrder(ctx, productID, orderedIDs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update image order")
	}
	return nil
}

func (s *service) List(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product identity missing")
	}
	imgs, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product images")
	}
	return imgs, nil
}
