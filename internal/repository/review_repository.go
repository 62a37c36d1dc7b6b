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
	ErrDuplicateReview = errors.New("you already submitted a review for this product")
)

// ReviewRepository defines the interface for review data access. Appending a
// review and recomputing the product aggregate is a single operation so no
// caller can mutate the review collection without the derived fields being
// rewritten alongside it.
type ReviewRepository interface {
	// Add appends a review and updates the owning product's rating and
	// review count in one transaction. Returns the stored review together
	// with the recomputed aggregate. Fails with ErrDuplicateReview when the
	// reviewer already reviewed the product and ErrProductNotFound when the
	// product is absent.
	Add(ctx context.Context, productID uuid.UUID, review *domain.Review) (*domain.Review, int, float64, error)

	// ListByProduct retrieves a product's reviews in insertion order.
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error)
}

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository creates a new instance of ReviewRepository
func NewReviewRepository(db *sql.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Add serializes concurrent submissions per product by locking the product
// row for the duration of the transaction. The duplicate check, the insert
// and the aggregate rewrite all happen under that lock, so two concurrent
// submissions by the same reviewer cannot both pass the uniqueness check.
func (r *reviewRepository) Add(ctx context.Context, productID uuid.UUID, review *domain.Review) (*domain.Review, int, float64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lockedID uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&lockedID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, 0, ErrProductNotFound
		}
		return nil, 0, 0, fmt.Errorf("failed to lock product: %w", err)
	}

	// Exact, case-sensitive identity match before any mutation
	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE product_id = $1 AND name = $2)`,
		productID, review.Name,
	).Scan(&exists)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to check existing review: %w", err)
	}
	if exists {
		return nil, 0, 0, ErrDuplicateReview
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reviews (id, product_id, name, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		review.ID, productID, review.Name, review.Rating, review.Comment, review.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, 0, 0, ErrDuplicateReview
		}
		return nil, 0, 0, fmt.Errorf("failed to insert review: %w", err)
	}

	// Recompute the aggregate from the full collection rather than trusting
	// an incremental update: sum/length is the invariant being maintained.
	rows, err := tx.QueryContext(ctx, `SELECT rating FROM reviews WHERE product_id = $1`, productID)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to load review ratings: %w", err)
	}

	sum := 0
	count := 0
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			rows.Close()
			return nil, 0, 0, fmt.Errorf("failed to scan review rating: %w", err)
		}
		sum += rating
		count++
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, 0, fmt.Errorf("error iterating review ratings: %w", err)
	}
	rows.Close()

	mean := float64(sum) / float64(count)

	_, err = tx.ExecContext(ctx,
		`UPDATE products SET rating = $2, num_reviews = $3, updated_at = $4 WHERE id = $1`,
		productID, mean, count, review.CreatedAt,
	)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to update product aggregate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to commit review: %w", err)
	}

	review.ProductID = productID
	return review, count, mean, nil
}

// ListByProduct retrieves reviews ordered by append time, id as tiebreak.
func (r *reviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, name, rating, comment, created_at
		 FROM reviews
		 WHERE product_id = $1
		 ORDER BY created_at ASC, id ASC`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*domain.Review{}
	for rows.Next() {
		review := &domain.Review{}
		err := rows.Scan(
			&review.ID,
			&review.ProductID,
			&review.Name,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, nil
}
