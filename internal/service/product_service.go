package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scanmart/internal/domain"
	"scanmart/internal/qrlabel"
	"scanmart/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNegativePrice = errors.New("price must not be negative")
	ErrNegativeStock = errors.New("stock count must not be negative")
)

// CreateProductInput holds the optional fields of an administrative create.
// Omitted fields fall back to sample defaults.
type CreateProductInput struct {
	Name              string
	Slug              string
	Image             string
	Brand             string
	Category          string
	Description       string
	Price             float64
	SalePrice         *float64
	CountInStock      int
	Featured          bool
	ExpiryDate        *time.Time
	BatchNumber       *string
	ManufacturingDate *time.Time
}

// UpdateProductInput holds the fields of an administrative update. Nil
// fields keep their current value.
type UpdateProductInput struct {
	Name              *string
	Slug              *string
	Image             *string
	Brand             *string
	Category          *string
	Description       *string
	Price             *float64
	SalePrice         *float64
	CountInStock      *int
	Featured          *bool
	ExpiryDate        *time.Time
	BatchNumber       *string
	ManufacturingDate *time.Time
}

// ProductService handles product lifecycle and lookup symbol caching.
type ProductService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ListAll(ctx context.Context) ([]*domain.Product, error)
	Create(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// QRCode returns the product's cached lookup symbol, generating and
	// persisting it first if none exists yet.
	QRCode(ctx context.Context, id uuid.UUID) (string, error)
}

type productService struct {
	productRepo repository.ProductRepository
	reviewRepo  repository.ReviewRepository
	generator   qrlabel.Generator
	logger      *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	productRepo repository.ProductRepository,
	reviewRepo repository.ReviewRepository,
	generator qrlabel.Generator,
	logger *zap.Logger,
) ProductService {
	return &productService{
		productRepo: productRepo,
		reviewRepo:  reviewRepo,
		generator:   generator,
		logger:      logger,
	}
}

// GetByID retrieves a product with its review collection.
func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.attachReviews(ctx, product)
}

// GetBySlug retrieves a product by slug with its review collection.
func (s *productService) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	product, err := s.productRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.attachReviews(ctx, product)
}

// ListAll retrieves every product without pagination.
func (s *productService) ListAll(ctx context.Context) ([]*domain.Product, error) {
	return s.productRepo.ListAll(ctx)
}

// Create creates a product, filling sample defaults for omitted fields, and
// generates its lookup symbol best-effort.
func (s *productService) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	now := time.Now()
	stamp := now.Unix()

	product := &domain.Product{
		ID:                uuid.New(),
		Name:              defaultString(input.Name, fmt.Sprintf("sample name %d", stamp)),
		Slug:              defaultString(input.Slug, fmt.Sprintf("sample-name-%d", stamp)),
		Image:             defaultString(input.Image, "/images/i1.jpg"),
		Brand:             defaultString(input.Brand, "sample brand"),
		Category:          defaultString(input.Category, "sample category"),
		Description:       defaultString(input.Description, "sample description"),
		Price:             input.Price,
		SalePrice:         input.SalePrice,
		CountInStock:      input.CountInStock,
		Featured:          input.Featured,
		ExpiryDate:        input.ExpiryDate,
		BatchNumber:       input.BatchNumber,
		ManufacturingDate: input.ManufacturingDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if product.Price < 0 {
		return nil, ErrNegativePrice
	}
	if product.CountInStock < 0 {
		return nil, ErrNegativeStock
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	// Symbol generation must not fail the creation that triggered it; a
	// missing symbol regenerates lazily on first retrieval.
	s.refreshSymbol(ctx, product)

	return product, nil
}

// Update applies a partial administrative update and regenerates the lookup
// symbol from the new attribute values.
func (s *productService) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyString(&product.Name, input.Name)
	applyString(&product.Slug, input.Slug)
	applyString(&product.Image, input.Image)
	applyString(&product.Brand, input.Brand)
	applyString(&product.Category, input.Category)
	applyString(&product.Description, input.Description)
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.SalePrice != nil {
		product.SalePrice = input.SalePrice
	}
	if input.CountInStock != nil {
		product.CountInStock = *input.CountInStock
	}
	if input.Featured != nil {
		product.Featured = *input.Featured
	}
	if input.ExpiryDate != nil {
		product.ExpiryDate = input.ExpiryDate
	}
	if input.BatchNumber != nil {
		product.BatchNumber = input.BatchNumber
	}
	if input.ManufacturingDate != nil {
		product.ManufacturingDate = input.ManufacturingDate
	}
	product.UpdatedAt = time.Now()

	if product.Price < 0 {
		return nil, ErrNegativePrice
	}
	if product.CountInStock < 0 {
		return nil, ErrNegativeStock
	}

	// The cached symbol no longer matches the attributes; re-encode before
	// persisting so the stored symbol and the row stay consistent. Failure
	// leaves the product without a symbol until the next retrieval.
	product.QRCode = ""
	if encoded, genErr := s.generateSymbol(product); genErr == nil {
		product.QRCode = encoded
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// Delete removes a product and its reviews.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.Delete(ctx, id)
}

// QRCode returns the cached lookup symbol, generating it on first access.
func (s *productService) QRCode(ctx context.Context, id uuid.UUID) (string, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}

	if product.QRCode != "" {
		return product.QRCode, nil
	}

	encoded, err := s.generateSymbol(product)
	if err != nil {
		return "", err
	}

	if err := s.productRepo.SetQRCode(ctx, product.ID, encoded); err != nil {
		return "", err
	}

	return encoded, nil
}

func (s *productService) attachReviews(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	reviews, err := s.reviewRepo.ListByProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	product.Reviews = reviews
	return product, nil
}

// refreshSymbol generates and persists the lookup symbol, logging instead of
// failing on error.
func (s *productService) refreshSymbol(ctx context.Context, product *domain.Product) {
	encoded, err := s.generateSymbol(product)
	if err != nil {
		return
	}

	if err := s.productRepo.SetQRCode(ctx, product.ID, encoded); err != nil {
		s.logger.Warn("Failed to store lookup symbol",
			zap.String("product_id", product.ID.String()),
			zap.Error(err),
		)
		return
	}

	product.QRCode = encoded
}

func (s *productService) generateSymbol(product *domain.Product) (string, error) {
	payload, err := qrlabel.Encode(product)
	if err != nil {
		s.logger.Warn("Failed to encode lookup payload",
			zap.String("product_id", product.ID.String()),
			zap.Error(err),
		)
		return "", err
	}

	encoded, err := s.generator.Generate(payload)
	if err != nil {
		s.logger.Warn("Failed to generate lookup symbol",
			zap.String("product_id", product.ID.String()),
			zap.Error(err),
		)
		return "", err
	}

	return encoded, nil
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func applyString(dst *string, src *string) {
	if src != nil && *src != "" {
		*dst = *src
	}
}
