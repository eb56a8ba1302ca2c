package product

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/orionintegra/orion-backend/pkg/db/models"
	"github.com/orionintegra/orion-backend/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  category TEXT NOT NULL,
  subcategory TEXT,
  brand TEXT,
  price_cents INTEGER NOT NULL,
  compare_at_price_cents INTEGER,
  rating REAL NOT NULL DEFAULT 0,
  review_count INTEGER NOT NULL DEFAULT 0,
  in_stock INTEGER NOT NULL DEFAULT 1,
  short_description TEXT,
  description TEXT,
  features TEXT,
  tags TEXT,
  warranty TEXT,
  installation INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	return db
}

func newProduct(t *testing.T, db *gorm.DB, name, category string, createdAt time.Time) *models.Product {
	t.Helper()

	row := &models.Product{
		ID:         uuid.New(),
		Name:       name,
		Slug:       slugify(name) + "-" + uuid.NewString()[:8],
		Category:   category,
		PriceCents: 129900,
		InStock:    true,
		Features:   pq.StringArray{"4K resolution", "night vision"},
		Tags:       pq.StringArray{"outdoor"},
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func TestCreateAndFindProduct(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := newProduct(t, db, "Dome Camera 4K", CategoryCCTV, time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, found.Name)
	assert.EqualValues(t, pq.StringArray{"4K resolution", "night vision"}, found.Features)

	bySlug, err := repo.FindBySlug(ctx, created.Slug)
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)
}

func TestFindByIDMissing(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestExists(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	row := newProduct(t, db, "PoE Switch 8-port", CategorySwitches, time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))

	ok, err := repo.Exists(ctx, row.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteProduct(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	row := newProduct(t, db, "NVR 16-channel", CategoryNVR, time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))

	require.NoError(t, repo.DeleteProduct(ctx, row.ID))

	_, err := repo.FindByID(ctx, row.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestListProductsPagination(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	category := "accessories"

	oldest := newProduct(t, db, "Mount Bracket A", category, base)
	middle := newProduct(t, db, "Mount Bracket B", category, base.Add(time.Hour))
	newest := newProduct(t, db, "Mount Bracket C", category, base.Add(2*time.Hour))

	rows, hasMore, err := repo.ListProducts(ctx, ListFilter{Category: category}, 2, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, hasMore)
	assert.Equal(t, newest.ID, rows[0].ID)
	assert.Equal(t, middle.ID, rows[1].ID)

	cursor := &pagination.Cursor{CreatedAt: rows[1].CreatedAt, ID: rows[1].ID}
	rows, hasMore, err = repo.ListProducts(ctx, ListFilter{Category: category}, 2, cursor)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, hasMore)
	assert.Equal(t, oldest.ID, rows[0].ID)
}

func TestListProductsCategoryFilter(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	cam := newProduct(t, db, "Bullet Camera", "cctv-filter-test", base)
	newProduct(t, db, "Rack Switch", "switch-filter-test", base)

	rows, _, err := repo.ListProducts(ctx, ListFilter{Category: "cctv-filter-test"}, 10, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, cam.ID, rows[0].ID)
}
