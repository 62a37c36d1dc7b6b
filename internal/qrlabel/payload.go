// Package qrlabel encodes product identity payloads and renders them as
// scannable QR symbols.
package qrlabel

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"scanmart/internal/domain"
)

// PerishableCategory is the category whose products carry an expiry date in
// their encoded payload.
const PerishableCategory = "Food"

var (
	ErrMalformedPayload = errors.New("payload is not valid encoded product data")
)

// Payload is the canonical structured data encoded into a lookup symbol.
// Field declaration order fixes the serialized field order; existing
// scanning clients depend on it as well as on the two optional blocks
// (expiry, sale) being independently present or absent.
type Payload struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	InStock     int     `json:"inStock"`
	Rating      float64 `json:"rating"`
	ID          string  `json:"id"`
	Slug        string  `json:"slug"`
	Image       string  `json:"image"`

	// Present only for perishable products.
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`

	// Present only when a sale price is set.
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	SalePrice     *float64 `json:"salePrice,omitempty"`
	SaleDiscount  string   `json:"saleDiscount,omitempty"`
}

// NewPayload derives the lookup payload from a product's current field
// values. Each optional block is appended on its own trigger condition.
func NewPayload(product *domain.Product) *Payload {
	payload := &Payload{
		Name:        product.Name,
		Price:       product.Price,
		Brand:       product.Brand,
		Category:    product.Category,
		Description: product.Description,
		InStock:     product.CountInStock,
		Rating:      product.Rating,
		ID:          product.ID.String(),
		Slug:        product.Slug,
		Image:       product.Image,
	}

	if product.Category == PerishableCategory {
		payload.ExpiryDate = product.ExpiryDate
	}

	if product.SalePrice != nil {
		price := product.Price
		salePrice := *product.SalePrice
		discount := math.Round((1 - salePrice/price) * 100)

		payload.OriginalPrice = &price
		payload.SalePrice = &salePrice
		payload.SaleDiscount = fmt.Sprintf("%d%%", int(discount))
	}

	return payload
}

// Encode serializes a product's lookup payload to its canonical compact
// form. Pure function of the product's current field values.
func Encode(product *domain.Product) (string, error) {
	data, err := json.Marshal(NewPayload(product))
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(data), nil
}

// Decode parses a scanned payload string back into its structured form.
// Returns ErrMalformedPayload for anything that is not valid serialized
// data; callers treat that as "symbol unreadable".
func Decode(data string) (*Payload, error) {
	payload := &Payload{}
	if err := json.Unmarshal([]byte(data), payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return payload, nil
}
