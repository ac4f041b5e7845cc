package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/telequiz/telequiz/internal/domain"
	"github.com/telequiz/telequiz/internal/errors"
	"github.com/telequiz/telequiz/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps results in a single JSON file: an object keyed by user id,
// rewritten in full on every write. A missing file reads as an empty result
// set. The read-modify-write cycle is guarded by a process-level mutex, so
// concurrent writes within one process cannot interleave.
type Store struct {
	path string
	mu   sync.Mutex
}

type record struct {
	Username  string `json:"username"`
	Completed bool   `json:"completed"`
	Timestamp string `json:"timestamp"`
	Answers   []int  `json:"answers"`
	Questions []int  `json:"questions"`
	TimeSpent int    `json:"time_spent"`
	Score     int    `json:"score"`
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) GetResult(_ context.Context, userID string) (*domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	rec, ok := records[userID]
	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no result for user %s", userID))
	}

	r, err := rec.toResult(userID)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) HasResult(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return false, err
	}

	_, ok := records[userID]
	return ok, nil
}

func (s *Store) PutResult(_ context.Context, r *domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := records[r.UserID]; ok {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("user %s has already completed the quiz", r.UserID))
	}

	records[r.UserID] = record{
		Username:  r.Username,
		Completed: true,
		Timestamp: r.Timestamp.Format(time.RFC3339Nano),
		Answers:   r.Answers,
		Questions: r.Questions,
		TimeSpent: r.TimeSpent,
		Score:     r.Score,
	}

	return s.save(records)
}

// ListResults returns all results ordered by write time. The backing JSON
// object carries no positional information, so the stored timestamp stands in
// for insertion order.
func (s *Store) ListResults(_ context.Context) ([]domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	results := make([]domain.Result, 0, len(records))
	for userID, rec := range records {
		r, err := rec.toResult(userID)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].Timestamp.Equal(results[j].Timestamp) {
			return results[i].Timestamp.Before(results[j].Timestamp)
		}
		return results[i].UserID < results[j].UserID
	})

	return results, nil
}

func (s *Store) load() (map[string]record, error) {
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]record), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read results file %s: %w", s.path, err)
	}

	records := make(map[string]record)
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("decode results file %s: %w", s.path, err)
	}

	return records, nil
}

func (s *Store) save(records map[string]record) error {
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write results file %s: %w", s.path, err)
	}

	return nil
}

func (rec record) toResult(userID string) (*domain.Result, error) {
	ts, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp of user %s: %w", userID, err)
	}

	return &domain.Result{
		UserID:    userID,
		Username:  rec.Username,
		Score:     rec.Score,
		TimeSpent: rec.TimeSpent,
		Timestamp: ts,
		Answers:   rec.Answers,
		Questions: rec.Questions,
	}, nil
}
