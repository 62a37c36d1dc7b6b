package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"scanmart/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrProductAlreadyExists = errors.New("product with this name or slug already exists")
)

// SearchFilter holds the optional predicates composed into a catalog search.
// A nil/empty field means the predicate is skipped; active predicates combine
// with AND.
type SearchFilter struct {
	Query     string   // case-insensitive substring match on name
	Category  string   // exact category match
	MinRating *float64 // inclusive lower bound on rating
	MinPrice  *float64 // inclusive lower bound on price
	MaxPrice  *float64 // inclusive upper bound on price
	Order     string   // one of the Order* constants
}

// Sort orders accepted by Search.
const (
	OrderFeatured = "featured"
	OrderLowest   = "lowest"
	OrderHighest  = "highest"
	OrderTopRated = "toprated"
	OrderNewest   = "newest"
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ListAll(ctx context.Context) ([]*domain.Product, error)
	List(ctx context.Context, page, pageSize int) ([]*domain.Product, int, error)
	Search(ctx context.Context, filter SearchFilter, page, pageSize int) ([]*domain.Product, int, error)
	Categories(ctx context.Context) ([]string, error)
	SetQRCode(ctx context.Context, id uuid.UUID, qrCode string) error
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, slug, image, brand, category, description, price, sale_price,
		count_in_stock, rating, num_reviews, featured, qr_code, expiry_date, batch_number,
		manufacturing_date, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (*domain.Product, error) {
	product := &domain.Product{}
	var qrCode sql.NullString
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Slug,
		&product.Image,
		&product.Brand,
		&product.Category,
		&product.Description,
		&product.Price,
		&product.SalePrice,
		&product.CountInStock,
		&product.Rating,
		&product.NumReviews,
		&product.Featured,
		&qrCode,
		&product.ExpiryDate,
		&product.BatchNumber,
		&product.ManufacturingDate,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	product.QRCode = qrCode.String
	return product, nil
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, slug, image, brand, category, description, price,
			sale_price, count_in_stock, rating, num_reviews, featured, qr_code, expiry_date,
			batch_number, manufacturing_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Slug,
		product.Image,
		product.Brand,
		product.Category,
		product.Description,
		product.Price,
		product.SalePrice,
		product.CountInStock,
		product.Rating,
		product.NumReviews,
		product.Featured,
		nullableString(product.QRCode),
		product.ExpiryDate,
		product.BatchNumber,
		product.ManufacturingDate,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductAlreadyExists
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update updates an existing product in the database using parameterized queries.
// Derived rating fields are deliberately not touched here; only the review
// append path writes them.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, slug = $3, image = $4, brand = $5, category = $6, description = $7,
		    price = $8, sale_price = $9, count_in_stock = $10, featured = $11, qr_code = $12,
		    expiry_date = $13, batch_number = $14, manufacturing_date = $15, updated_at = $16
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Slug,
		product.Image,
		product.Brand,
		product.Category,
		product.Description,
		product.Price,
		product.SalePrice,
		product.CountInStock,
		product.Featured,
		nullableString(product.QRCode),
		product.ExpiryDate,
		product.BatchNumber,
		product.ManufacturingDate,
		product.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductAlreadyExists
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product from the database; reviews cascade with it.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindBySlug retrieves a product by its URL-safe slug
func (r *productRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE slug = $1`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}

	return product, nil
}

// ListAll retrieves every product without pagination
func (r *productRepository) ListAll(ctx context.Context) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY created_at DESC, id DESC`, productColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// List retrieves products with pagination only, used by the admin listing.
// A pageSize of 0 or less means no pagination: every product is returned.
func (r *productRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Product, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY created_at DESC, id DESC`, productColumns)
	args := []interface{}{}

	if pageSize > 0 {
		offset := (page - 1) * pageSize
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, pageSize, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// Search retrieves products matching the composed filter with sorting and
// pagination. The count query shares the exact WHERE clause with the page
// query so the total can never drift from the fetched matches. A pageSize
// of 0 or less disables the page window.
func (r *productRepository) Search(ctx context.Context, filter SearchFilter, page, pageSize int) ([]*domain.Product, int, error) {
	whereClause := ""
	args := []interface{}{}
	argIndex := 1

	addPredicate := func(predicate string, value interface{}) {
		if whereClause == "" {
			whereClause = "WHERE "
		} else {
			whereClause += " AND "
		}
		whereClause += fmt.Sprintf(predicate, argIndex)
		args = append(args, value)
		argIndex++
	}

	if filter.Query != "" {
		addPredicate("name ILIKE $%d", "%"+filter.Query+"%")
	}
	if filter.Category != "" {
		addPredicate("category = $%d", filter.Category)
	}
	if filter.MinRating != nil {
		addPredicate("rating >= $%d", *filter.MinRating)
	}
	if filter.MinPrice != nil {
		addPredicate("price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		addPredicate("price <= $%d", *filter.MaxPrice)
	}

	// Count total matches with the same predicates
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY %s`,
		productColumns, whereClause, orderByClause(filter.Order))

	if pageSize > 0 {
		offset := (page - 1) * pageSize
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, pageSize, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// Categories retrieves the distinct category values across all products
func (r *productRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT category FROM products ORDER BY category ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// SetQRCode stores the cached lookup symbol for a product without touching
// any other column.
func (r *productRepository) SetQRCode(ctx context.Context, id uuid.UUID, qrCode string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE products SET qr_code = $2 WHERE id = $1`, id, nullableString(qrCode))
	if err != nil {
		return fmt.Errorf("failed to set product qr code: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// orderByClause maps a sort key to a concrete ORDER BY expression. Keys are
// validated against a fixed set so no request input ever reaches the query
// text. The default order is newest-inserted-first with the id as a stable
// tiebreak.
func orderByClause(order string) string {
	switch order {
	case OrderFeatured:
		return "featured DESC, created_at DESC, id DESC"
	case OrderLowest:
		return "price ASC"
	case OrderHighest:
		return "price DESC"
	case OrderTopRated:
		return "rating DESC"
	case OrderNewest:
		return "created_at DESC"
	default:
		return "created_at DESC, id DESC"
	}
}

func collectProducts(rows *sql.Rows) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
