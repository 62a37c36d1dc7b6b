package service

import (
	"context"
	"math"
	"sync"
	"testing"

	"scanmart/internal/domain"
	"scanmart/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// mockReviewRepository reproduces the store's per-product serialization: the
// duplicate check, the append and the aggregate rewrite run under one lock.
type mockReviewRepository struct {
	mu         sync.Mutex
	known      map[uuid.UUID]bool
	reviews    map[uuid.UUID][]*domain.Review
	numReviews map[uuid.UUID]int
	rating     map[uuid.UUID]float64
}

func newMockReviewRepository(productIDs ...uuid.UUID) *mockReviewRepository {
	m := &mockReviewRepository{
		known:      make(map[uuid.UUID]bool),
		reviews:    make(map[uuid.UUID][]*domain.Review),
		numReviews: make(map[uuid.UUID]int),
		rating:     make(map[uuid.UUID]float64),
	}
	for _, id := range productIDs {
		m.known[id] = true
	}
	return m
}

func (m *mockReviewRepository) Add(ctx context.Context, productID uuid.UUID, review *domain.Review) (*domain.Review, int, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.known[productID] {
		return nil, 0, 0, repository.ErrProductNotFound
	}

	for _, existing := range m.reviews[productID] {
		if existing.Name == review.Name {
			return nil, 0, 0, repository.ErrDuplicateReview
		}
	}

	m.reviews[productID] = append(m.reviews[productID], review)

	sum := 0
	for _, r := range m.reviews[productID] {
		sum += r.Rating
	}
	count := len(m.reviews[productID])
	mean := float64(sum) / float64(count)

	m.numReviews[productID] = count
	m.rating[productID] = mean

	return review, count, mean, nil
}

func (m *mockReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Review{}, m.reviews[productID]...), nil
}

func TestSubmitMaintainsRunningMean(t *testing.T) {
	productID := uuid.New()
	repo := newMockReviewRepository(productID)
	svc := NewReviewService(repo)
	ctx := context.Background()

	ratings := []int{4, 5, 3}
	expectedMeans := []float64{4.0, 4.5, 4.0}
	reviewers := []string{"alice", "bob", "carol"}

	for i, rating := range ratings {
		result, err := svc.Submit(ctx, productID, reviewers[i], rating, "solid product")
		if err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
		if result.NumReviews != i+1 {
			t.Errorf("after %d submissions: expected numReviews %d, got %d", i+1, i+1, result.NumReviews)
		}
		if result.Rating != expectedMeans[i] {
			t.Errorf("after %d submissions: expected rating %v, got %v", i+1, expectedMeans[i], result.Rating)
		}
		if result.Review.Rating != rating {
			t.Errorf("expected returned review to carry rating %d, got %d", rating, result.Review.Rating)
		}
	}
}

func TestSubmitRejectsDuplicateReviewer(t *testing.T) {
	productID := uuid.New()
	repo := newMockReviewRepository(productID)
	svc := NewReviewService(repo)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, productID, "alice", 4, "good"); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}

	before := repo.rating[productID]
	beforeCount := repo.numReviews[productID]

	_, err := svc.Submit(ctx, productID, "alice", 1, "changed my mind")
	if err != repository.ErrDuplicateReview {
		t.Fatalf("expected ErrDuplicateReview, got %v", err)
	}

	// Aggregate untouched by the rejected attempt
	if repo.rating[productID] != before || repo.numReviews[productID] != beforeCount {
		t.Errorf("rejected submission changed the aggregate: rating %v->%v, count %d->%d",
			before, repo.rating[productID], beforeCount, repo.numReviews[productID])
	}
}

func TestSubmitReviewerIdentityIsCaseSensitive(t *testing.T) {
	productID := uuid.New()
	repo := newMockReviewRepository(productID)
	svc := NewReviewService(repo)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, productID, "Alice", 4, "good"); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}

	// A differently-cased name is a different identity
	if _, err := svc.Submit(ctx, productID, "alice", 5, "also good"); err != nil {
		t.Errorf("expected distinct identity to be accepted, got %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	productID := uuid.New()
	repo := newMockReviewRepository(productID)
	svc := NewReviewService(repo)
	ctx := context.Background()

	cases := []struct {
		name     string
		reviewer string
		rating   int
		comment  string
		want     error
	}{
		{"rating too low", "alice", 0, "meh", ErrInvalidRating},
		{"rating too high", "alice", 6, "wow", ErrInvalidRating},
		{"empty comment", "alice", 3, "  ", ErrMissingComment},
		{"missing identity", "", 3, "fine", ErrMissingName},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, productID, tc.reviewer, tc.rating, tc.comment)
			if err != tc.want {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// Nothing was appended by the rejected submissions
	if repo.numReviews[productID] != 0 {
		t.Errorf("expected no reviews after rejected submissions, got %d", repo.numReviews[productID])
	}
}

func TestSubmitUnknownProduct(t *testing.T) {
	repo := newMockReviewRepository()
	svc := NewReviewService(repo)

	_, err := svc.Submit(context.Background(), uuid.New(), "alice", 4, "good")
	if err != repository.ErrProductNotFound {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestConcurrentDuplicateSubmissionsAdmitOne(t *testing.T) {
	productID := uuid.New()
	repo := newMockReviewRepository(productID)
	svc := NewReviewService(repo)
	ctx := context.Background()

	const attempts = 16
	errs := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(ctx, productID, "alice", 5, "concurrent")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	duplicates := 0
	for err := range errs {
		switch err {
		case nil:
			succeeded++
		case repository.ErrDuplicateReview:
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if succeeded != 1 {
		t.Errorf("expected exactly one successful submission, got %d", succeeded)
	}
	if duplicates != attempts-1 {
		t.Errorf("expected %d duplicate rejections, got %d", attempts-1, duplicates)
	}
	if repo.numReviews[productID] != 1 {
		t.Errorf("expected one stored review, got %d", repo.numReviews[productID])
	}
}

func TestProperty_AggregateEqualsMeanOfAllRatings(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("rating == mean(ratings) and numReviews == count after any submission sequence", prop.ForAll(
		func(ratings []int) bool {
			productID := uuid.New()
			repo := newMockReviewRepository(productID)
			svc := NewReviewService(repo)
			ctx := context.Background()

			sum := 0
			for i, rating := range ratings {
				reviewer := "reviewer-" + uuid.New().String()
				result, err := svc.Submit(ctx, productID, reviewer, rating, "property check")
				if err != nil {
					return false
				}

				sum += rating
				mean := float64(sum) / float64(i+1)
				if result.NumReviews != i+1 {
					return false
				}
				if math.Abs(result.Rating-mean) > 1e-12 {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.IntRange(1, 5)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
