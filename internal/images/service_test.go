package images

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/orionintegra/orion-backend/pkg/blob"
	"github.com/orionintegra/orion-backend/pkg/db/models"
	pkgerrors "github.com/orionintegra/orion-backend/pkg/errors"
	"github.com/orionintegra/orion-backend/pkg/logger"
	"github.com/rs/zerolog"
)

type stubImagesRepo struct {
	mu sync.Mutex

	rows map[uuid.UUID]*models.ProductImage

	insertCalls  int
	insertErr    error
	insertErrs   []error
	countErr     error
	setPrimary   []uuid.UUID
	setPrimErr   error
	deleteErr    error
	deletedIDs   []uuid.UUID
	sortOrderErr error
	lastOrder    []uuid.UUID
}

func newStubImagesRepo() *stubImagesRepo {
	return &stubImagesRepo{rows: make(map[uuid.UUID]*models.ProductImage)}
}

func (s *stubImagesRepo) Insert(ctx context.Context, image *models.ProductImage) (*models.ProductImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	if len(s.insertErrs) > 0 {
		err := s.insertErrs[0]
		s.insertErrs = s.insertErrs[1:]
		if err != nil {
			return nil, err
		}
	} else if s.insertErr != nil {
		return nil, s.insertErr
	}
	if image.IsPrimary {
		for _, row := range s.rows {
			if row.ProductID == image.ProductID && row.IsPrimary {
				return nil, fmt.Errorf(`duplicate key value violates unique constraint "product_images_one_primary"`)
			}
		}
	}
	copied := *image
	s.rows[image.ID] = &copied
	return image, nil
}

func (s *stubImagesRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, ErrImageNotFound
	}
	copied := *row
	return &copied, nil
}

func (s *stubImagesRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProductImage
	for _, row := range s.rows {
		if row.ProductID == productID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *stubImagesRepo) CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	var count int64
	for _, row := range s.rows {
		if row.ProductID == productID {
			count++
		}
	}
	return count, nil
}

func (s *stubImagesRepo) SetPrimary(ctx context.Context, productID, imageID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPrimary = append(s.setPrimary, imageID)
	if s.setPrimErr != nil {
		return s.setPrimErr
	}
	for _, row := range s.rows {
		if row.ProductID == productID {
			row.IsPrimary = row.ID == imageID
		}
	}
	return nil
}

func (s *stubImagesRepo) UpdateSortOrder(ctx context.Context, productID uuid.UUID, orderedIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastOrder = orderedIDs
	return s.sortOrderErr
}

func (s *stubImagesRepo) DeleteWithPromotion(ctx context.Context, id uuid.UUID) (*models.ProductImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return nil, s.deleteErr
	}
	row, ok := s.rows[id]
	if !ok {
		return nil, ErrImageNotFound
	}
	delete(s.rows, id)
	s.deletedIDs = append(s.deletedIDs, id)
	copied := *row
	return &copied, nil
}

func (s *stubImagesRepo) primaryCount(productID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, row := range s.rows {
		if row.ProductID == productID && row.IsPrimary {
			count++
		}
	}
	return count
}

type stubBlobStore struct {
	mu sync.Mutex

	uploadCalls int
	uploadErr   error
	deleteCalls []string
	deleteErr   error
}

func (s *stubBlobStore) Upload(ctx context.Context, pathname, contentType string, body io.Reader) (*blob.UploadedObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadCalls++
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	return &blob.UploadedObject{
		URL:      "https://blob.example/" + pathname,
		Pathname: pathname,
	}, nil
}

func (s *stubBlobStore) Delete(ctx context.Context, objectURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls = append(s.deleteCalls, objectURL)
	return s.deleteErr
}

type stubProducts struct {
	exists bool
	err    error
}

func (s stubProducts) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.exists, s.err
}

func newTestService(t *testing.T, repo *stubImagesRepo, store *stubBlobStore, products stubProducts) Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	svc, err := NewService(repo, store, products, nil, logg, 10*1024*1024)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func pngInput(name string) UploadInput {
	return UploadInput{
		FileName:    name,
		ContentType: "image/png",
		SizeBytes:   2048,
		Body:        bytes.NewReader([]byte("png-bytes")),
	}
}

func TestUploadFirstImageBecomesPrimary(t *testing.T) {
	t.Parallel()

	repo := newStubImagesRepo()
	store := &stubBlobStore{}
	svc := newTestService(t, repo, store, stubProducts{exists: true})

	productID := uuid.New()
	res, err := svc.Upload(context.Background(), productID, pngInput("cam.png"))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if res.Status != StatusSucceeded {
		t.Fatalf("expected succeeded status, got %s", res.Status)
	}
	if !res.Image.IsPrimary {
		t.Fatal("expected first image to be promoted to primary")
	}

	second, err := svc.Upload(context.Background(), productID, pngInput("cam2.png"))
	if err != nil {
		t.Fatalf("second Upload returned error: %v", err)
	}
	if second.Image.IsPrimary {
		t.Fatal("expected second image to stay non-primary")
	}
}

func TestUploadValidationSkipsBlobStore(t *testing.T) {
	t.Parallel()

	repo := newStubImagesRepo()
	store := &stubBlobStore{}
	svc := newTestService(t, repo, store, stubProducts{exists: true})

	cases := []UploadInput{
		{FileName: "doc.pdf", ContentType: "application/pdf", SizeBytes: 100, Body: bytes.NewReader([]byte("x"))},
		{FileName: "big.png", ContentType: "image/png", SizeBytes: 10*1024*1024 + 1, Body: bytes.NewReader([]byte("x"))},
		{FileName: "", ContentType: "image/png", SizeBytes: 100, Body: bytes.NewReader([]byte("x"))},
		{FileName: "empty.png", ContentType: "image/png", SizeBytes: 0, Body: bytes.NewReader(nil)},
	}
	for _, input := range cases {
		_, err := svc.Upload(context.Background(), uuid.New(), input)
		if err == nil {
			t.Fatalf("expected validation error for %q", input.FileName)
		}
		if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation code for %q, got %v", input.FileName, pkgerrors.As(err).Code())
		}
	}
	if store.uploadCalls != 0 {
		t.Fatalf("expected zero blob uploads on validation failure, got %d", store.uploadCalls)
	}
	if repo.insertCalls != 0 {
		t.Fatalf("expected zero inserts on validation failure, got %d", repo.insertCalls)
	}
}

func TestUploadUnknownProductReturnsNotFound(t *testing.T) {
	t.Parallel()

	repo := newStubImagesRepo()
	store := &stubBlobStore{}
	svc := newTestService(t, repo, store, stubProducts{exists: false})

	_, err := svc.Upload(context.Background(), uuid.New(), pngInput("cam.png"))
	if err == nil {
		t.Fatal("expected not found error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", pkgerrors.As(err).Code())
	}
	if store.uploadCalls != 0 {
		t.Fatal("expected no blob upload for unknown product")
	}
}

func TestUploadBlobFailureReturnsStorageError(t *testing.T) {
	t.Parallel()

	repo := newStubImagesRepo()
	store := &stubBlobStore{uploadErr: errTest}
	svc := newTestService(t, repo, store, stubProducts{exists: true})

	_, err := svc.Upload(context.Background(), uuid.New(), pngInput("cam.png"))
	if err == nil {
		t.Fatal("expected storage error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStorage {
		t.Fatalf("expected storage code, got %v", pkgerrors.As(err).Code())
	}
	if repo.insertCalls != 0 {
		t.Fatal("expected no insert after blob failure")
	}
}

func TestUploadPersistFailureDeletesOrphanedBlob(t *testing.T) {
	t.Parallel()

	repo := newStubImagesRepo()
	repo.insertErr = errTest
	store := &stubBlobStore{}
	svc := newTestService(t, repo, store, stubProducts{exists: true})

	_, err := svc.Upload(context.Background(), uuid.New(), pngInput("cam.png"))
	if err == nil {
		t.Fatal("expected dependency error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %v", pkgerrors.As(err).Code())
	}
	if len(store.deleteCalls) != 1 {
		t.Fatalf("expected one compensating blob delete, got %d", len(store.deleteCalls))
	}
}

func TestUploadPrimaryRaceFallsBackToNonPrimary(t *testing.T) {
	t.Parallel()

	repo := newStubImagesRepo()
	store := &stubBlobStore{}
	svc := newTestService(t, repo, store, stubProducts{exists: true})

	productID := uuid.New()
	// Existing primary not visible to the count (simulates a racing writer
	// winning between count and insert).
	repo.insertErrs = []error{fmt.Errorf(`duplicate key value violates unique constraint "product_images_one_primary"`), nil}

	res, err := svc.Upload(context.Background(), productID, pngInput("cam.png"))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if res.Image.IsPrimary {
		t.Fatal("expected retried insert to drop the primary flag")
	}
	if repo.insertCalls != 2 {
		t.Fatalf("expected insert retry, got %d calls", repo.insertCalls)
	}
	if len(store.deleteCalls) != 0 {
		t.Fatal("expected no compensating delete after successful retry")
	}
}

func TestUploadExplicitPrimaryFailureIsPartialSuccess(t *testing.T) {
	t.Parallel()

	repo := newStubImagesRepo()
	store := &stubBlobStore{}
	svc := newTestService(t, repo, store, stubProducts{exists: true})

	productID := uuid.New()
	if _, err := svc.Upload(context.Background(), productID, pngInput("first.png")); err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	repo.setPrimErr = errTest
	input := pngInput("second.png")
	input.MakePrimary = true

	res, err := svc.Upload(context.Background(), productID, input)
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if res.Status != StatusPartiallySucceeded {
		t.Fatalf("expected partial success, got %s", res.Status)
	}
	if res.Image.IsPrimary {
		t.Fatal("expected image to report non-primary after failed reassignment")
	}
}

func TestUploadConcurrentFirstImagesYieldOnePrimary(t *testing.T) {
	t.Parallel()

	repo := newStubImagesRepo()
	store := &stubBlobStore{}
	svc := newTestService(t, repo, store, stubProducts{exists: true})

	productID := uuid.New()
	const writers = 8

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			input := UploadInput{
				FileName:    fmt.Sprintf("cam-%d.png", n),
				ContentType: "image/png",
				SizeBytes:   1024,
				Body:        bytes.NewReader([]byte("x")),
			}
			if _, err := svc.Upload(context.Background(), productID, input); err != nil {
				t.Errorf("concurrent upload %d: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	if got := repo.primaryCount(productID); got != 1 {
		t.Fatalf("expected exactly one primary, got %d", got)
	}
}

func TestDeleteRemovesMetadataThenBlob(t *testing.T) {
	t.Parallel()

	repo := newStubImagesRepo()
	store := &stubBlobStore{}
	svc := newTestService(t, repo, store, stubProducts{exists: true})

	productID := uuid.New()
	res, err := svc.Upload(context.Background(), productID, pngInput("cam.png"))
	if err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	if err := svc.Delete(context.Background(), res.Image.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(repo.deletedIDs) != 1 || repo.deletedIDs[0] != res.Image.ID {
		t.Fatalf("expected metadata delete for %s", res.Image.ID)
	}
	if len(store.deleteCalls) != 1 || store.deleteCalls[0] != res.Image.URL {
		t.Fatalf("expected blob delete for %s, got %v", res.Image.URL, store.deleteCalls)
	}
}

func TestDeleteAbsorbsBlobFailure(t *testing.T) {
	t.Parallel()

	repo := newStubImagesRepo()
	store := &stubBlobStore{}
	svc := newTestService(t, repo, store, stubProducts{exists: true})

	res, err := svc.Upload(context.Background(), uuid.New(), pngInput("cam.png"))
	if err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	store.deleteErr = errTest
	if err := svc.Delete(context.Background(), res.Image.ID); err != nil {
		t.Fatalf("expected blob delete failure to be absorbed, got %v", err)
	}
	if _, err := repo.FindByID(context.Background(), res.Image.ID); err == nil {
		t.Fatal("expected metadata row to be gone")
	}
}

func TestDeleteUnknownImageReturnsNotFound(t *testing.T) {
	t.Parallel()

	repo := newStubImagesRepo()
	store := &stubBlobStore{}
	svc := newTestService(t, repo, store, stubProducts{exists: true})

	err := svc.Delete(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected not found error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", pkgerrors.As(err).Code())
	}
	if len(store.deleteCalls) != 0 {
		t.Fatal("expected no blob delete for missing image")
	}
}

func TestSetPrimaryRejectsForeignImage(t *testing.T) {
	t.Parallel()

	repo := newStubImagesRepo()
	store := &stubBlobStore{}
	svc := newTestService(t, repo, store, stubProducts{exists: true})

	res, err := svc.Upload(context.Background(), uuid.New(), pngInput("cam.png"))
	if err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	err = svc.SetPrimary(context.Background(), uuid.New(), res.Image.ID)
	if err == nil {
		t.Fatal("expected validation error for mismatched product")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", pkgerrors.As(err).Code())
	}
}

func TestUpdateSortOrderRejectsDuplicates(t *testing.T) {
	t.Parallel()

	repo := newStubImagesRepo()
	store := &stubBlobStore{}
	svc := newTestService(t, repo, store, stubProducts{exists: true})

	id := uuid.New()
	err := svc.UpdateSortOrder(context.Background(), uuid.New(), []uuid.UUID{id, id})
	if err == nil {
		t.Fatal("expected validation error for duplicate ids")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", pkgerrors.As(err).Code())
	}
}

var errTest = fmt.Errorf("boom")
