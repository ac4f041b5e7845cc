package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/telequiz/telequiz/internal/domain"
	"github.com/telequiz/telequiz/internal/errors"
	"github.com/telequiz/telequiz/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps results in a redis hash keyed by user id, with a companion list
// recording insertion order. HSetNX makes the duplicate check atomic at the
// store, unlike the file and sheets backends.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

func NewStore(r redis.UniversalClient, prefix string) *Store {
	return &Store{redis: r, prefix: prefix}
}

func (s *Store) GetResult(ctx context.Context, userID string) (*domain.Result, error) {
	b, err := s.redis.HGet(ctx, s.resultsKey(), userID).Bytes()
	if err == redis.Nil {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no result for user %s", userID))
	}
	if err != nil {
		return nil, fmt.Errorf("hget result: %w", err)
	}

	var r domain.Result
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode result of user %s: %w", userID, err)
	}

	return &r, nil
}

func (s *Store) HasResult(ctx context.Context, userID string) (bool, error) {
	ok, err := s.redis.HExists(ctx, s.resultsKey(), userID).Result()
	if err != nil {
		return false, fmt.Errorf("hexists result: %w", err)
	}
	return ok, nil
}

func (s *Store) PutResult(ctx context.Context, r *domain.Result) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	ok, err := s.redis.HSetNX(ctx, s.resultsKey(), r.UserID, b).Result()
	if err != nil {
		return fmt.Errorf("hsetnx result: %w", err)
	}
	if !ok {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("user %s has already completed the quiz", r.UserID))
	}

	if err := s.redis.RPush(ctx, s.orderKey(), r.UserID).Err(); err != nil {
		return fmt.Errorf("rpush order: %w", err)
	}

	return nil
}

func (s *Store) ListResults(ctx context.Context) ([]domain.Result, error) {
	userIDs, err := s.redis.LRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange order: %w", err)
	}

	if len(userIDs) == 0 {
		return []domain.Result{}, nil
	}

	raw, err := s.redis.HMGet(ctx, s.resultsKey(), userIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("hmget results: %w", err)
	}

	results := make([]domain.Result, 0, len(raw))
	for i, v := range raw {
		sv, ok := v.(string)
		if !ok {
			continue // order entry without a hash record, skip
		}
		var r domain.Result
		if err := json.Unmarshal([]byte(sv), &r); err != nil {
			return nil, fmt.Errorf("decode result of user %s: %w", userIDs[i], err)
		}
		results = append(results, r)
	}

	return results, nil
}

func (s *Store) resultsKey() string {
	return fmt.Sprintf("%s:results", s.prefix)
}

func (s *Store) orderKey() string {
	return fmt.Sprintf("%s:order", s.prefix)
}
