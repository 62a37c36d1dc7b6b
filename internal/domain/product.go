package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a product in the catalog. Rating and NumReviews are
// derived from the review collection and are only ever written together
// with a review append.
type Product struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Slug         string    `json:"slug" db:"slug"`
	Image        string    `json:"image" db:"image"`
	Brand        string    `json:"brand" db:"brand"`
	Category     string    `json:"category" db:"category"`
	Description  string    `json:"description" db:"description"`
	Price        float64   `json:"price" db:"price"`
	SalePrice    *float64  `json:"salePrice,omitempty" db:"sale_price"`
	CountInStock int       `json:"countInStock" db:"count_in_stock"`
	Rating       float64   `json:"rating" db:"rating"`
	NumReviews   int       `json:"numReviews" db:"num_reviews"`
	Featured     bool      `json:"featured" db:"featured"`
	Reviews      []*Review `json:"reviews,omitempty" db:"-"`

	// QRCode caches the encoded lookup symbol as a data URL. Empty until
	// first generated; cleared on attribute updates so it regenerates.
	QRCode string `json:"qrCode,omitempty" db:"qr_code"`

	// Perishability metadata, all optional.
	ExpiryDate        *time.Time `json:"expiryDate,omitempty" db:"expiry_date"`
	BatchNumber       *string    `json:"batchNumber,omitempty" db:"batch_number"`
	ManufacturingDate *time.Time `json:"manufacturingDate,omitempty" db:"manufacturing_date"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Review represents a single product review. Name is the authenticated
// reviewer identity and is the uniqueness key per product.
type Review struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
