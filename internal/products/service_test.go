package product

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/orionintegra/orion-backend/pkg/db/models"
	pkgerrors "github.com/orionintegra/orion-backend/pkg/errors"
	"github.com/orionintegra/orion-backend/pkg/logger"
	"github.com/orionintegra/orion-backend/pkg/pagination"
	"github.com/rs/zerolog"
)

type stubProductRepo struct {
	rows map[uuid.UUID]*models.Product

	deleteCalled bool
	deleteErr    error
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{rows: make(map[uuid.UUID]*models.Product)}
}

func (s *stubProductRepo) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	copied := *product
	s.rows[product.ID] = &copied
	return product, nil
}

func (s *stubProductRepo) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	copied := *product
	s.rows[product.ID] = &copied
	return product, nil
}

func (s *stubProductRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleteCalled = true
	delete(s.rows, id)
	return nil
}

func (s *stubProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	copied := *row
	return &copied, nil
}

func (s *stubProductRepo) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	for _, row := range s.rows {
		if row.Slug == slug {
			copied := *row
			return &copied, nil
		}
	}
	return nil, ErrProductNotFound
}

func (s *stubProductRepo) ListProducts(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Product, bool, error) {
	var out []models.Product
	for _, row := range s.rows {
		if filter.Category == "" || row.Category == filter.Category {
			out = append(out, *row)
		}
	}
	return out, false, nil
}

type stubSweeper struct {
	images     []models.ProductImage
	listErr    error
	deleted    []uuid.UUID
	failDelete map[uuid.UUID]error
}

func (s *stubSweeper) List(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.ProductImage
	for _, img := range s.images {
		if img.ProductID == productID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (s *stubSweeper) Delete(ctx context.Context, imageID uuid.UUID) error {
	if err, ok := s.failDelete[imageID]; ok {
		return err
	}
	s.deleted = append(s.deleted, imageID)
	return nil
}

func newTestCatalog(t *testing.T, repo *stubProductRepo, sweeper *stubSweeper) Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	svc, err := NewService(repo, sweeper, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateProductSlugAndCategory(t *testing.T) {
	t.Parallel()

	repo := newStubProductRepo()
	svc := newTestCatalog(t, repo, &stubSweeper{})

	dto, err := svc.Create(context.Background(), CreateProductInput{
		Name:       "Dome Camera 4K PoE",
		Category:   "CCTV",
		PriceCents: 159900,
		InStock:    true,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if dto.Slug != "dome-camera-4k-poe" {
		t.Fatalf("unexpected slug %q", dto.Slug)
	}
	if dto.Category != CategoryCCTV {
		t.Fatalf("expected normalized category, got %q", dto.Category)
	}
}

func TestCreateProductRejectsUnknownCategory(t *testing.T) {
	t.Parallel()

	svc := newTestCatalog(t, newStubProductRepo(), &stubSweeper{})

	_, err := svc.Create(context.Background(), CreateProductInput{
		Name:     "Mystery Device",
		Category: "drones",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", pkgerrors.As(err).Code())
	}
}

func TestCreateProductDuplicateNameConflicts(t *testing.T) {
	t.Parallel()

	repo := newStubProductRepo()
	svc := newTestCatalog(t, repo, &stubSweeper{})

	input := CreateProductInput{Name: "PoE Switch 8-port", Category: CategorySwitches, PriceCents: 89900}
	if _, err := svc.Create(context.Background(), input); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.Create(context.Background(), input)
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict code, got %v", pkgerrors.As(err).Code())
	}
}

func TestUpdateProductAppliesPartialFields(t *testing.T) {
	t.Parallel()

	repo := newStubProductRepo()
	svc := newTestCatalog(t, repo, &stubSweeper{})

	dto, err := svc.Create(context.Background(), CreateProductInput{
		Name:       "NVR 16-channel",
		Category:   CategoryNVR,
		PriceCents: 449900,
		InStock:    true,
	})
	if err != nil {
		t.Fatalf("seed create: %v", err)
	}

	newPrice := 399900
	inStock := false
	updated, err := svc.Update(context.Background(), dto.ID, UpdateProductInput{
		PriceCents: &newPrice,
		InStock:    &inStock,
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.PriceCents != newPrice {
		t.Fatalf("expected price %d, got %d", newPrice, updated.PriceCents)
	}
	if updated.InStock {
		t.Fatal("expected in_stock to be false")
	}
	if updated.Name != "NVR 16-channel" {
		t.Fatalf("expected untouched name, got %q", updated.Name)
	}
}

func TestGetProductIncludesImages(t *testing.T) {
	t.Parallel()

	repo := newStubProductRepo()
	sweeper := &stubSweeper{}
	svc := newTestCatalog(t, repo, sweeper)

	dto, err := svc.Create(context.Background(), CreateProductInput{
		Name:       "Bullet Camera",
		Category:   CategoryCCTV,
		PriceCents: 99900,
	})
	if err != nil {
		t.Fatalf("seed create: %v", err)
	}

	sweeper.images = []models.ProductImage{
		{ID: uuid.New(), ProductID: dto.ID, URL: "https://blob.example/a", Filename: "a.png", IsPrimary: true, UploadedAt: time.Now()},
		{ID: uuid.New(), ProductID: dto.ID, URL: "https://blob.example/b", Filename: "b.png", UploadedAt: time.Now()},
	}

	got, err := svc.Get(context.Background(), dto.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(got.Images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(got.Images))
	}
	if !got.Images[0].IsPrimary {
		t.Fatal("expected first image to carry the primary flag")
	}
}

func TestDeleteProductSweepsImagesFirst(t *testing.T) {
	t.Parallel()

	repo := newStubProductRepo()
	sweeper := &stubSweeper{}
	svc := newTestCatalog(t, repo, sweeper)

	dto, err := svc.Create(context.Background(), CreateProductInput{
		Name:       "Dome Camera",
		Category:   CategoryCCTV,
		PriceCents: 119900,
	})
	if err != nil {
		t.Fatalf("seed create: %v", err)
	}
	sweeper.images = []models.ProductImage{
		{ID: uuid.New(), ProductID: dto.ID, URL: "https://blob.example/a", Filename: "a.png"},
		{ID: uuid.New(), ProductID: dto.ID, URL: "https://blob.example/b", Filename: "b.png"},
	}

	if err := svc.Delete(context.Background(), dto.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(sweeper.deleted) != 2 {
		t.Fatalf("expected both images swept, got %d", len(sweeper.deleted))
	}
	if !repo.deleteCalled {
		t.Fatal("expected product row delete")
	}
}

func TestDeleteProductKeepsRowWhenSweepFails(t *testing.T) {
	t.Parallel()

	repo := newStubProductRepo()
	sweeper := &stubSweeper{}
	svc := newTestCatalog(t, repo, sweeper)

	dto, err := svc.Create(context.Background(), CreateProductInput{
		Name:       "PTZ Camera",
		Category:   CategoryCCTV,
		PriceCents: 259900,
	})
	if err != nil {
		t.Fatalf("seed create: %v", err)
	}
	stuck := uuid.New()
	sweeper.images = []models.ProductImage{
		{ID: stuck, ProductID: dto.ID, URL: "https://blob.example/a", Filename: "a.png"},
	}
	sweeper.failDelete = map[uuid.UUID]error{stuck: fmt.Errorf("registry down")}

	err = svc.Delete(context.Background(), dto.ID)
	if err == nil {
		t.Fatal("expected sweep failure to surface")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %v", pkgerrors.As(err).Code())
	}
	if repo.deleteCalled {
		t.Fatal("expected product row to survive a failed sweep")
	}
}

func TestListRejectsInvalidCursor(t *testing.T) {
	t.Parallel()

	svc := newTestCatalog(t, newStubProductRepo(), &stubSweeper{})

	_, err := svc.List(context.Background(), ListParams{Cursor: "not-base64!!"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", pkgerrors.As(err).Code())
	}
}
