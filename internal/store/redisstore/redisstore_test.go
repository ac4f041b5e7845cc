package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telequiz/telequiz/internal/domain"
	"github.com/telequiz/telequiz/internal/errors"
	"github.com/telequiz/telequiz/internal/store/redisstore"
)

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := makeStore(t)

	want := &domain.Result{
		UserID:    "u1",
		Username:  "user one",
		Score:     5,
		TimeSpent: 90,
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Answers:   []int{2, 0},
		Questions: []int{5, 6},
	}
	require.NoError(t, s.PutResult(context.Background(), want))

	ok, err := s.HasResult(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetResult(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_GetMissing(t *testing.T) {
	s := makeStore(t)

	_, err := s.GetResult(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	ok, err := s.HasResult(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PutDuplicate(t *testing.T) {
	s := makeStore(t)

	r := &domain.Result{UserID: "u1", Username: "u1", Score: 1, Timestamp: time.Now().UTC()}
	require.NoError(t, s.PutResult(context.Background(), r))

	err := s.PutResult(context.Background(), r)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeAlreadyExists))
}

func TestStore_ListResultsInsertionOrder(t *testing.T) {
	s := makeStore(t)

	for i, userID := range []string{"c", "a", "b"} {
		r := &domain.Result{
			UserID:    userID,
			Username:  userID,
			Score:     i,
			Timestamp: time.Now().UTC(),
		}
		require.NoError(t, s.PutResult(context.Background(), r))
	}

	results, err := s.ListResults(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	var order []string
	for _, r := range results {
		order = append(order, r.UserID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, order)
}

func makeStore(t *testing.T) *redisstore.Store {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	return redisstore.NewStore(rc, "telequiz")
}
