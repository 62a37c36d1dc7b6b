package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"scanmart/internal/domain"
	"scanmart/internal/repository"
)

// FilterAll is the sentinel value meaning "do not filter on this field".
// It doubles as the unlimited page size for the admin listing.
const FilterAll = "all"

// SearchParams carries the raw filter/sort/page inputs of a catalog search.
// String fields may be empty or FilterAll, both meaning the predicate is
// skipped.
type SearchParams struct {
	Query    string // free-text substring match on name
	Category string // exact category
	Rating   string // minimum rating threshold, inclusive
	Price    string // "low-high" inclusive price range token
	Order    string // sort key
	Page     int    // 1-indexed
	PageSize string // numeric, empty for the default, or FilterAll/0 for unpaginated
}

// ProductPage is one page of catalog results together with the unpaginated
// match count.
type ProductPage struct {
	Products      []*domain.Product `json:"products"`
	CountProducts int               `json:"countProducts"`
	Page          int               `json:"page"`
	Pages         int               `json:"pages"`
}

// CatalogService composes filter predicates, sort order and page window into
// a single query execution. Read-only.
type CatalogService interface {
	Search(ctx context.Context, params SearchParams) (*ProductPage, error)
	AdminList(ctx context.Context, page int, limit string) (*ProductPage, error)
	Categories(ctx context.Context) ([]string, error)
}

type catalogService struct {
	productRepo     repository.ProductRepository
	defaultPageSize int
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(productRepo repository.ProductRepository, defaultPageSize int) CatalogService {
	if defaultPageSize <= 0 {
		defaultPageSize = 100
	}
	return &catalogService{
		productRepo:     productRepo,
		defaultPageSize: defaultPageSize,
	}
}

// Search executes a filtered catalog query. All active predicates combine
// with AND; the total count is computed over the same predicates as the
// returned page.
func (s *catalogService) Search(ctx context.Context, params SearchParams) (*ProductPage, error) {
	filter := repository.SearchFilter{
		Order: params.Order,
	}

	if active(params.Query) {
		filter.Query = params.Query
	}
	if active(params.Category) {
		filter.Category = params.Category
	}
	if active(params.Rating) {
		if rating, err := strconv.ParseFloat(params.Rating, 64); err == nil {
			filter.MinRating = &rating
		}
	}
	if active(params.Price) {
		filter.MinPrice, filter.MaxPrice = parsePriceRange(params.Price)
	}

	page := normalizePage(params.Page)
	pageSize := s.resolvePageSize(params.PageSize)

	products, total, err := s.productRepo.Search(ctx, filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}

	return &ProductPage{
		Products:      products,
		CountProducts: total,
		Page:          page,
		Pages:         totalPages(total, pageSize),
	}, nil
}

// AdminList pages through the whole catalog without filters. A limit of
// FilterAll or 0 returns every product with pages = 1.
func (s *catalogService) AdminList(ctx context.Context, page int, limit string) (*ProductPage, error) {
	page = normalizePage(page)
	pageSize := s.resolvePageSize(limit)

	products, total, err := s.productRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	return &ProductPage{
		Products:      products,
		CountProducts: total,
		Page:          page,
		Pages:         totalPages(total, pageSize),
	}, nil
}

// Categories enumerates the distinct category values in the catalog.
func (s *catalogService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.productRepo.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// active reports whether a filter input carries a value to filter on.
func active(value string) bool {
	return value != "" && value != FilterAll
}

// parsePriceRange parses a "low-high" token into inclusive bounds. A token
// that does not consist of two numeric parts filters nothing: both bounds
// come back nil rather than failing the query.
func parsePriceRange(token string) (*float64, *float64) {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) != 2 {
		return nil, nil
	}

	low, errLow := strconv.ParseFloat(parts[0], 64)
	high, errHigh := strconv.ParseFloat(parts[1], 64)
	if errLow != nil || errHigh != nil {
		return nil, nil
	}

	return &low, &high
}

func (s *catalogService) resolvePageSize(raw string) int {
	if raw == "" {
		return s.defaultPageSize
	}
	if raw == FilterAll {
		return 0
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size < 0 {
		return s.defaultPageSize
	}
	return size
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// totalPages computes ceil(total/pageSize); an unpaginated query is a
// single page.
func totalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}
