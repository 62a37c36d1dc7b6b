package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"scanmart/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func resetCatalog(t *testing.T) {
	t.Helper()
	if _, err := testDB.Exec(`DELETE FROM reviews`); err != nil {
		t.Fatalf("failed to clear reviews: %v", err)
	}
	if _, err := testDB.Exec(`DELETE FROM products`); err != nil {
		t.Fatalf("failed to clear products: %v", err)
	}
}

func seedProduct(t *testing.T, repo ProductRepository, name, category string, price, rating float64, createdAt time.Time) *domain.Product {
	t.Helper()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        name,
		Slug:        name + "-" + uuid.New().String()[:8],
		Image:       "/images/i1.jpg",
		Brand:       "brand",
		Category:    category,
		Description: "seeded",
		Price:       price,
		Rating:      rating,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := repo.Create(context.Background(), product); err != nil {
		t.Fatalf("failed to seed product %q: %v", name, err)
	}
	return product
}

func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	resetCatalog(t)
	repo := NewProductRepository(testDB)

	properties := gopter.NewProperties(nil)

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(brand string, description string, price float64, stock int) bool {
			ctx := context.Background()

			product := &domain.Product{
				ID:          uuid.New(),
				Name:        "Product " + uuid.New().String(),
				Slug:        "product-" + uuid.New().String(),
				Image:       "/images/i1.jpg",
				Brand:       brand,
				Category:    "Generated",
				Description: description,
				Price:       price,
				CountInStock: stock,
				CreatedAt:   time.Now(),
				UpdatedAt:   time.Now(),
			}

			if err := repo.Create(ctx, product); err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			retrieved, err := repo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if retrieved.ID != product.ID || retrieved.Name != product.Name || retrieved.Slug != product.Slug {
				t.Logf("FAIL: identity mismatch")
				return false
			}
			if retrieved.Brand != product.Brand || retrieved.Description != product.Description {
				t.Logf("FAIL: attribute mismatch")
				return false
			}
			// Compare prices with small tolerance for the DECIMAL column
			if retrieved.Price < product.Price-0.01 || retrieved.Price > product.Price+0.01 {
				t.Logf("FAIL: price mismatch. Expected %f, got %f", product.Price, retrieved.Price)
				return false
			}
			if retrieved.CountInStock != product.CountInStock {
				t.Logf("FAIL: stock mismatch")
				return false
			}

			return true
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.Float64Range(0, 10000),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSearchAppliesAllPredicates(t *testing.T) {
	resetCatalog(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()
	now := time.Now()

	seedProduct(t, repo, "Linen Shirt", "Shirts", 30, 4.0, now)
	match := seedProduct(t, repo, "Oxford Shirt", "Shirts", 45, 4.5, now)
	seedProduct(t, repo, "Oxford Pants", "Pants", 45, 4.8, now)
	seedProduct(t, repo, "Pricey Shirt", "Shirts", 200, 4.9, now)

	minRating := 4.2
	minPrice, maxPrice := 10.0, 100.0
	products, total, err := repo.Search(ctx, SearchFilter{
		Query:     "shirt",
		Category:  "Shirts",
		MinRating: &minRating,
		MinPrice:  &minPrice,
		MaxPrice:  &maxPrice,
	}, 1, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if total != 1 || len(products) != 1 {
		t.Fatalf("expected exactly one match, got total=%d len=%d", total, len(products))
	}
	if products[0].ID != match.ID {
		t.Errorf("expected %q, got %q", match.Name, products[0].Name)
	}
}

func TestSearchFreeTextIsCaseInsensitive(t *testing.T) {
	resetCatalog(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	seedProduct(t, repo, "Espresso Beans", "Coffee", 24, 4.5, time.Now())
	seedProduct(t, repo, "Green Tea", "Tea", 12, 4.0, time.Now())

	_, total, err := repo.Search(ctx, SearchFilter{Query: "ESPRESSO"}, 1, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 1 {
		t.Errorf("expected a case-insensitive match, got %d", total)
	}
}

func TestSearchCountMatchesPageUnion(t *testing.T) {
	resetCatalog(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 14; i++ {
		seedProduct(t, repo, fmt.Sprintf("Widget %02d", i), "Widgets", float64(5+i), 3, base.Add(time.Duration(i)*time.Minute))
	}

	seen := map[uuid.UUID]bool{}
	var total int
	for page := 1; page <= 3; page++ {
		products, count, err := repo.Search(ctx, SearchFilter{Category: "Widgets"}, page, 5)
		if err != nil {
			t.Fatalf("Search page %d failed: %v", page, err)
		}
		total = count
		for _, p := range products {
			if seen[p.ID] {
				t.Errorf("product %s appeared on more than one page", p.ID)
			}
			seen[p.ID] = true
		}
	}

	if total != 14 {
		t.Errorf("expected total 14, got %d", total)
	}
	if len(seen) != 14 {
		t.Errorf("expected every match exactly once across pages, got %d", len(seen))
	}
}

func TestSearchSortOrders(t *testing.T) {
	resetCatalog(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()
	now := time.Now()

	seedProduct(t, repo, "Mid", "Sort", 20, 3, now.Add(-2*time.Hour))
	seedProduct(t, repo, "Cheap", "Sort", 5, 5, now.Add(-1*time.Hour))
	seedProduct(t, repo, "Dear", "Sort", 90, 4, now)

	cases := []struct {
		order string
		first string
	}{
		{OrderLowest, "Cheap"},
		{OrderHighest, "Dear"},
		{OrderTopRated, "Cheap"},
		{OrderNewest, "Dear"},
		{"", "Dear"},
	}

	for _, tc := range cases {
		products, _, err := repo.Search(ctx, SearchFilter{Category: "Sort", Order: tc.order}, 1, 10)
		if err != nil {
			t.Fatalf("Search with order %q failed: %v", tc.order, err)
		}
		if len(products) == 0 || products[0].Name != tc.first {
			t.Errorf("order %q: expected %q first", tc.order, tc.first)
		}
	}
}

func TestSearchFeaturedOrder(t *testing.T) {
	resetCatalog(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()
	now := time.Now()

	plain := seedProduct(t, repo, "Plain", "Feat", 10, 3, now)
	_ = plain

	featured := seedProduct(t, repo, "Promoted", "Feat", 10, 3, now.Add(-time.Hour))
	featured.Featured = true
	featured.UpdatedAt = time.Now()
	if err := repo.Update(ctx, featured); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	products, _, err := repo.Search(ctx, SearchFilter{Category: "Feat", Order: OrderFeatured}, 1, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(products) != 2 || products[0].Name != "Promoted" {
		t.Errorf("expected the featured product first")
	}
}

func TestListUnlimitedWhenPageSizeZero(t *testing.T) {
	resetCatalog(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		seedProduct(t, repo, fmt.Sprintf("Item %d", i), "Bulk", 10, 3, time.Now())
	}

	products, total, err := repo.List(ctx, 1, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 7 || len(products) != 7 {
		t.Errorf("expected all 7 products unpaginated, got total=%d len=%d", total, len(products))
	}
}

func TestCategoriesAreDistinct(t *testing.T) {
	resetCatalog(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	seedProduct(t, repo, "S1", "Shirts", 10, 3, time.Now())
	seedProduct(t, repo, "S2", "Shirts", 10, 3, time.Now())
	seedProduct(t, repo, "P1", "Pants", 10, 3, time.Now())

	categories, err := repo.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories failed: %v", err)
	}
	if len(categories) != 2 || categories[0] != "Pants" || categories[1] != "Shirts" {
		t.Errorf("expected [Pants Shirts], got %v", categories)
	}
}

func TestFindBySlug(t *testing.T) {
	resetCatalog(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	product := seedProduct(t, repo, "Slugged", "Misc", 10, 3, time.Now())

	found, err := repo.FindBySlug(ctx, product.Slug)
	if err != nil {
		t.Fatalf("FindBySlug failed: %v", err)
	}
	if found.ID != product.ID {
		t.Errorf("expected product %s, got %s", product.ID, found.ID)
	}

	if _, err := repo.FindBySlug(ctx, "no-such-slug"); err != ErrProductNotFound {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestDuplicateNameRejected(t *testing.T) {
	resetCatalog(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	seedProduct(t, repo, "Unique Name", "Misc", 10, 3, time.Now())

	dup := &domain.Product{
		ID:          uuid.New(),
		Name:        "Unique Name",
		Slug:        "different-slug",
		Image:       "/images/i1.jpg",
		Brand:       "brand",
		Category:    "Misc",
		Description: "dup",
		Price:       10,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := repo.Create(ctx, dup); err != ErrProductAlreadyExists {
		t.Errorf("expected ErrProductAlreadyExists, got %v", err)
	}
}

func TestSetQRCodePersistsSymbol(t *testing.T) {
	resetCatalog(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	product := seedProduct(t, repo, "Symbolized", "Misc", 10, 3, time.Now())

	if err := repo.SetQRCode(ctx, product.ID, "data:image/png;base64,AAAA"); err != nil {
		t.Fatalf("SetQRCode failed: %v", err)
	}

	found, err := repo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found.QRCode != "data:image/png;base64,AAAA" {
		t.Errorf("expected persisted symbol, got %q", found.QRCode)
	}

	if err := repo.SetQRCode(ctx, uuid.New(), "x"); err != ErrProductNotFound {
		t.Errorf("expected ErrProductNotFound for unknown product, got %v", err)
	}
}
