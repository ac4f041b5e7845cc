package store

import (
	"context"

	"github.com/telequiz/telequiz/internal/domain"
)

// Store persists quiz results. Results are append-only: there is no update or
// delete, and at most one result exists per user id.
type Store interface {
	// GetResult returns the result for a user id, or an error with code
	// NotFound when the user has not completed the quiz.
	GetResult(ctx context.Context, userID string) (*domain.Result, error)

	// HasResult reports whether a result exists for the user id.
	HasResult(ctx context.Context, userID string) (bool, error)

	// PutResult stores a new result. It fails with code AlreadyExists when a
	// result for the user id is already present.
	PutResult(ctx context.Context, r *domain.Result) error

	// ListResults returns all results in insertion order.
	ListResults(ctx context.Context) ([]domain.Result, error)
}
