package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"scanmart/internal/domain"
	"scanmart/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrInvalidRating  = errors.New("rating must be an integer between 1 and 5")
	ErrMissingComment = errors.New("comment is required")
	ErrMissingName    = errors.New("reviewer identity is required")
)

// SubmitResult is the outcome of a successful review submission: the
// appended review and the product's updated aggregate.
type SubmitResult struct {
	Review     *domain.Review
	NumReviews int
	Rating     float64
}

// ReviewService maintains the running review count and mean rating of a
// product as reviews arrive, enforcing one review per identity per product.
type ReviewService interface {
	Submit(ctx context.Context, productID uuid.UUID, reviewerName string, rating int, comment string) (*SubmitResult, error)
}

type reviewService struct {
	reviewRepo repository.ReviewRepository
}

// NewReviewService creates a new instance of ReviewService
func NewReviewService(reviewRepo repository.ReviewRepository) ReviewService {
	return &reviewService{reviewRepo: reviewRepo}
}

// Submit validates and appends a review. Validation happens before any
// mutation; the repository serializes the duplicate check and the append per
// product, so a second submission by the same identity fails with
// repository.ErrDuplicateReview and leaves the aggregate untouched.
func (s *reviewService) Submit(ctx context.Context, productID uuid.UUID, reviewerName string, rating int, comment string) (*SubmitResult, error) {
	if reviewerName == "" {
		return nil, ErrMissingName
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	if strings.TrimSpace(comment) == "" {
		return nil, ErrMissingComment
	}

	review := &domain.Review{
		ID:        uuid.New(),
		ProductID: productID,
		Name:      reviewerName,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now(),
	}

	stored, numReviews, mean, err := s.reviewRepo.Add(ctx, productID, review)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) || errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to submit review: %w", err)
	}

	return &SubmitResult{
		Review:     stored,
		NumReviews: numReviews,
		Rating:     mean,
	}, nil
}
