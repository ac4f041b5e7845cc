package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telequiz/telequiz/internal/domain"
	"github.com/telequiz/telequiz/internal/errors"
	"github.com/telequiz/telequiz/internal/store/memory"
)

func TestStore(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()

	_, err := s.GetResult(context.Background(), "u1")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	for _, userID := range []string{"b", "a"} {
		r := &domain.Result{UserID: userID, Username: userID, Score: 1, Timestamp: time.Now()}
		require.NoError(t, s.PutResult(context.Background(), r))
	}

	err = s.PutResult(context.Background(), &domain.Result{UserID: "a"})
	assert.True(t, errors.IsCode(err, errors.CodeAlreadyExists))

	ok, err := s.HasResult(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, ok)

	results, err := s.ListResults(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].UserID, "insertion order preserved")
	assert.Equal(t, "a", results[1].UserID)
}
