package memory

import (
	"context"
	"sync"

	"github.com/telequiz/telequiz/internal/domain"
	"github.com/telequiz/telequiz/internal/errors"
	"github.com/telequiz/telequiz/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is an in-process result store for dev deployments and tests.
type Store struct {
	mu      sync.RWMutex
	byUser  map[string]domain.Result
	ordered []string
}

func NewStore() *Store {
	return &Store{byUser: make(map[string]domain.Result)}
}

func (s *Store) GetResult(_ context.Context, userID string) (*domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byUser[userID]
	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no result for user %s", userID))
	}
	return &r, nil
}

func (s *Store) HasResult(_ context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byUser[userID]
	return ok, nil
}

func (s *Store) PutResult(_ context.Context, r *domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUser[r.UserID]; ok {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("user %s has already completed the quiz", r.UserID))
	}

	s.byUser[r.UserID] = *r
	s.ordered = append(s.ordered, r.UserID)
	return nil
}

func (s *Store) ListResults(_ context.Context) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]domain.Result, 0, len(s.ordered))
	for _, userID := range s.ordered {
		results = append(results, s.byUser[userID])
	}
	return results, nil
}
