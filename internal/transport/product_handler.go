package transport

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"scanmart/internal/middleware"
	"scanmart/internal/repository"
	"scanmart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateProductRequest represents the product creation payload. Every field
// is optional; omitted fields are filled with sample defaults.
type CreateProductRequest struct {
	Name              string     `json:"name"`
	Slug              string     `json:"slug"`
	Image             string     `json:"image"`
	Brand             string     `json:"brand"`
	Category          string     `json:"category"`
	Description       string     `json:"description"`
	Price             float64    `json:"price" validate:"gte=0"`
	SalePrice         *float64   `json:"salePrice" validate:"omitempty,gte=0"`
	CountInStock      int        `json:"countInStock" validate:"gte=0"`
	Featured          bool       `json:"featured"`
	ExpiryDate        *time.Time `json:"expiryDate"`
	BatchNumber       *string    `json:"batchNumber"`
	ManufacturingDate *time.Time `json:"manufacturingDate"`
}

// UpdateProductRequest represents a partial product update payload.
type UpdateProductRequest struct {
	Name              *string    `json:"name"`
	Slug              *string    `json:"slug"`
	Image             *string    `json:"image"`
	Brand             *string    `json:"brand"`
	Category          *string    `json:"category"`
	Description       *string    `json:"description"`
	Price             *float64   `json:"price" validate:"omitempty,gte=0"`
	SalePrice         *float64   `json:"salePrice" validate:"omitempty,gte=0"`
	CountInStock      *int       `json:"countInStock" validate:"omitempty,gte=0"`
	Featured          *bool      `json:"featured"`
	ExpiryDate        *time.Time `json:"expiryDate"`
	BatchNumber       *string    `json:"batchNumber"`
	ManufacturingDate *time.Time `json:"manufacturingDate"`
}

// ReviewRequest represents a review submission payload. The reviewer
// identity comes from the authenticated caller, never from the body.
type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"required"`
}

// ReviewResponse mirrors the review creation envelope existing clients
// expect.
type ReviewResponse struct {
	Message    string      `json:"message"`
	Review     interface{} `json:"review"`
	NumReviews int         `json:"numReviews"`
	Rating     float64     `json:"rating"`
}

// ProductHandler handles HTTP requests for catalog operations
type ProductHandler struct {
	productService service.ProductService
	catalogService service.CatalogService
	reviewService  service.ReviewService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(
	productService service.ProductService,
	catalogService service.CatalogService,
	reviewService service.ReviewService,
	logger *zap.Logger,
) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		catalogService: catalogService,
		reviewService:  reviewService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(
	r chi.Router,
	authMiddleware func(http.Handler) http.Handler,
	reviewLimiter func(http.Handler) http.Handler,
) {
	r.Route("/api/products", func(r chi.Router) {
		// Public routes
		r.Get("/", h.ListProducts)
		r.Get("/search", h.SearchProducts)
		r.Get("/categories", h.Categories)
		r.Get("/slug/{slug}", h.GetProductBySlug)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireAdmin(h.logger))
			r.Get("/admin", h.AdminProducts)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			if reviewLimiter != nil {
				r.With(reviewLimiter).Post("/{id}/reviews", h.SubmitReview)
			} else {
				r.Post("/{id}/reviews", h.SubmitReview)
			}
			r.Get("/{id}/qr-code", h.ProductQRCode)
		})

		r.Get("/{id}", h.GetProductByID)
	})
}

// ListProducts returns every product unpaginated
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.ListAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// SearchProducts runs a filtered, sorted, paginated catalog query
func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := service.SearchParams{
		Query:    query.Get("query"),
		Category: query.Get("category"),
		Rating:   query.Get("rating"),
		Price:    query.Get("price"),
		Order:    query.Get("order"),
		Page:     parsePage(query.Get("page")),
		PageSize: query.Get("pageSize"),
	}

	page, err := h.catalogService.Search(r.Context(), params)
	if err != nil {
		h.logger.Error("Catalog search failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to search products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// AdminProducts pages through the whole catalog without filters
func (h *ProductHandler) AdminProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, err := h.catalogService.AdminList(r.Context(), parsePage(query.Get("page")), query.Get("limit"))
	if err != nil {
		h.logger.Error("Admin listing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// Categories returns the distinct category values
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.Categories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// GetProductBySlug fetches a single product by its slug
func (h *ProductHandler) GetProductBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	product, err := h.productService.GetBySlug(r.Context(), slug)
	if err != nil {
		h.respondProductError(w, err, "Failed to get product by slug")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// GetProductByID fetches a single product by its identifier
func (h *ProductHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseProductID(w, r)
	if !ok {
		return
	}

	product, err := h.productService.GetByID(r.Context(), id)
	if err != nil {
		h.respondProductError(w, err, "Failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// CreateProduct creates a product with defaults for omitted fields
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest

	// An empty body is a valid create: every field has a default.
	if err := middleware.DecodeAndValidate(r, &req); err != nil && err != io.EOF {
		h.logger.Debug("Product creation validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.productService.Create(r.Context(), service.CreateProductInput{
		Name:              req.Name,
		Slug:              req.Slug,
		Image:             req.Image,
		Brand:             req.Brand,
		Category:          req.Category,
		Description:       req.Description,
		Price:             req.Price,
		SalePrice:         req.SalePrice,
		CountInStock:      req.CountInStock,
		Featured:          req.Featured,
		ExpiryDate:        req.ExpiryDate,
		BatchNumber:       req.BatchNumber,
		ManufacturingDate: req.ManufacturingDate,
	})
	if err != nil {
		if errors.Is(err, repository.ErrProductAlreadyExists) {
			middleware.RespondWithError(w, http.StatusConflict, err.Error())
			return
		}
		if errors.Is(err, service.ErrNegativePrice) || errors.Is(err, service.ErrNegativeStock) {
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to create product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Product Created",
		"product": product,
	})
}

// UpdateProduct applies a partial update and refreshes the lookup symbol
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseProductID(w, r)
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product update validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.productService.Update(r.Context(), id, service.UpdateProductInput{
		Name:              req.Name,
		Slug:              req.Slug,
		Image:             req.Image,
		Brand:             req.Brand,
		Category:          req.Category,
		Description:       req.Description,
		Price:             req.Price,
		SalePrice:         req.SalePrice,
		CountInStock:      req.CountInStock,
		Featured:          req.Featured,
		ExpiryDate:        req.ExpiryDate,
		BatchNumber:       req.BatchNumber,
		ManufacturingDate: req.ManufacturingDate,
	})
	if err != nil {
		if errors.Is(err, service.ErrNegativePrice) || errors.Is(err, service.ErrNegativeStock) {
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, repository.ErrProductAlreadyExists) {
			middleware.RespondWithError(w, http.StatusConflict, err.Error())
			return
		}
		h.respondProductError(w, err, "Failed to update product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Product Updated",
		"product": product,
	})
}

// DeleteProduct removes a product and its reviews
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseProductID(w, r)
	if !ok {
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		h.respondProductError(w, err, "Failed to delete product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Product Deleted"})
}

// SubmitReview appends a review under the caller's verified identity
func (h *ProductHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseProductID(w, r)
	if !ok {
		return
	}

	reviewerName, ok := middleware.GetUserName(r.Context())
	if !ok || reviewerName == "" {
		middleware.RespondWithError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req ReviewRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Review validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.reviewService.Submit(r.Context(), id, reviewerName, req.Rating, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateReview):
			middleware.RespondWithError(w, http.StatusBadRequest, "You already submitted a review")
		case errors.Is(err, repository.ErrProductNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "Product Not Found")
		case errors.Is(err, service.ErrInvalidRating),
			errors.Is(err, service.ErrMissingComment),
			errors.Is(err, service.ErrMissingName):
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Failed to submit review", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to submit review")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, ReviewResponse{
		Message:    "Review Created",
		Review:     result.Review,
		NumReviews: result.NumReviews,
		Rating:     result.Rating,
	})
}

// ProductQRCode returns the product's lookup symbol, generating it lazily
func (h *ProductHandler) ProductQRCode(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseProductID(w, r)
	if !ok {
		return
	}

	qrCode, err := h.productService.QRCode(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "Product Not Found")
			return
		}
		h.logger.Error("Failed to produce qr code", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "error generating qr code")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"qrCode": qrCode})
}

// parseProductID reads the {id} URL parameter. An unparsable id can never
// name a product, so it reports not found rather than a bad request.
func (h *ProductHandler) parseProductID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "Product Not Found")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ProductHandler) respondProductError(w http.ResponseWriter, err error, logMsg string) {
	if errors.Is(err, repository.ErrProductNotFound) {
		middleware.RespondWithError(w, http.StatusNotFound, "Product Not Found")
		return
	}
	h.logger.Error(logMsg, zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
