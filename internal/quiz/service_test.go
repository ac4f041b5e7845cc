package quiz_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telequiz/telequiz/internal/catalog"
	"github.com/telequiz/telequiz/internal/errors"
	"github.com/telequiz/telequiz/internal/quiz"
	"github.com/telequiz/telequiz/internal/store/memory"
)

// Fixture catalog: 9 questions, ids 1..9, correct indices
// 1:0 2:1 3:2 4:3 5:2 6:1 7:0 8:3 9:1.

func TestService_Submit_Scoring(t *testing.T) {
	tests := map[string]struct {
		questions []int
		answers   []int
		wantScore int
	}{
		"single correct answer": {
			questions: []int{5},
			answers:   []int{2},
			wantScore: 1,
		},
		"single wrong answer": {
			questions: []int{5},
			answers:   []int{0},
			wantScore: 0,
		},
		"unknown question id is skipped": {
			questions: []int{5, 42},
			answers:   []int{2, 0},
			wantScore: 1,
		},
		"position past the end of answers is skipped": {
			questions: []int{5, 6},
			answers:   []int{2},
			wantScore: 1,
		},
		"all nine correct": {
			questions: []int{1, 2, 3, 4, 5, 6, 7, 8, 9},
			answers:   []int{0, 1, 2, 3, 2, 1, 0, 3, 1},
			wantScore: 9,
		},
		"empty submission": {
			questions: []int{},
			answers:   []int{},
			wantScore: 0,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := makeService(t)

			resp, err := s.Submit(context.Background(), quiz.SubmitRequest{
				UserID:    "u1",
				Username:  "user one",
				Questions: tt.questions,
				Answers:   tt.answers,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, resp.Score)
		})
	}
}

func TestService_Submit_ThenCheckUser(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := makeService(t, withNow(func() time.Time { return now }))

	resp := s.CheckUser(context.Background(), "u1")
	assert.False(t, resp.Completed)

	_, err := s.Submit(context.Background(), quiz.SubmitRequest{
		UserID:    "u1",
		Username:  "user one",
		Questions: []int{5},
		Answers:   []int{2},
	})
	require.NoError(t, err)

	resp = s.CheckUser(context.Background(), "u1")
	assert.True(t, resp.Completed)
	assert.Equal(t, now, resp.Timestamp)
}

func TestService_Submit_Duplicate(t *testing.T) {
	t.Parallel()

	s := makeService(t)

	first, err := s.Submit(context.Background(), quiz.SubmitRequest{
		UserID:    "u1",
		Username:  "user one",
		Questions: []int{5},
		Answers:   []int{2},
	})
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), quiz.SubmitRequest{
		UserID:    "u1",
		Username:  "user one",
		Questions: []int{1, 2, 3},
		Answers:   []int{0, 1, 2},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeAlreadyExists))

	// The stored score must be unchanged after the rejected resubmission.
	results, err := s.ListResults(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, first.Score, results[0].Score)
}

func TestService_ListResults_Sorted(t *testing.T) {
	t.Parallel()

	s := makeService(t)

	// Insertion order u1, u2, u3, u4 with scores 1, 3, 1, 0.
	submissions := []struct {
		userID    string
		questions []int
		answers   []int
	}{
		{"u1", []int{1}, []int{0}},
		{"u2", []int{1, 2, 3}, []int{0, 1, 2}},
		{"u3", []int{2}, []int{1}},
		{"u4", []int{1}, []int{3}},
	}
	for _, sub := range submissions {
		_, err := s.Submit(context.Background(), quiz.SubmitRequest{
			UserID:    sub.userID,
			Username:  sub.userID,
			Questions: sub.questions,
			Answers:   sub.answers,
		})
		require.NoError(t, err)
	}

	results, err := s.ListResults(context.Background())
	require.NoError(t, err)

	var order []string
	for _, r := range results {
		order = append(order, r.UserID)
	}

	// Score descending; the u1/u3 tie keeps insertion order.
	assert.Equal(t, []string{"u2", "u1", "u3", "u4"}, order)
}

func TestService_GetStatistics(t *testing.T) {
	t.Parallel()

	s := makeService(t)

	stats, err := s.GetStatistics(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stats, "no results should yield the no-data sentinel")

	// Scores 3 and 4, times 60 and 95.
	_, err = s.Submit(context.Background(), quiz.SubmitRequest{
		UserID:    "u1",
		Username:  "u1",
		Questions: []int{1, 2, 3},
		Answers:   []int{0, 1, 2},
		TimeSpent: 60,
	})
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), quiz.SubmitRequest{
		UserID:    "u2",
		Username:  "u2",
		Questions: []int{1, 2, 3, 4},
		Answers:   []int{0, 1, 2, 3},
		TimeSpent: 95,
	})
	require.NoError(t, err)

	stats, err = s.GetStatistics(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.Equal(t, 2, stats.TotalUsers)
	assert.True(t, decimal.NewFromFloat(3.5).Equal(stats.AverageScore), "got %s", stats.AverageScore)
	assert.True(t, decimal.NewFromFloat(77.5).Equal(stats.AverageTime), "got %s", stats.AverageTime)
	assert.Equal(t, 9, stats.MaxScore)
	assert.Equal(t, "38.9%", stats.CompletionRate)
}

func TestService_GetQuestions_Sanitized(t *testing.T) {
	t.Parallel()

	s := makeService(t)

	qs := s.GetQuestions()
	require.Len(t, qs, 3)

	total := 0
	for cat, group := range qs {
		for _, q := range group {
			assert.Equal(t, cat, q.Category)
			assert.NotEmpty(t, q.Options)
			total++
		}
	}
	assert.Equal(t, 9, total)
}

func makeService(t *testing.T, opts ...option) *quiz.Service {
	t.Helper()

	cat, err := catalog.Load("testdata/questions.json")
	require.NoError(t, err)

	c := quiz.Config{
		Catalog: cat,
		Store:   memory.NewStore(),
	}

	for _, opt := range opts {
		opt(&c)
	}

	return quiz.NewService(c)
}

type option func(*quiz.Config)

func withNow(now func() time.Time) option {
	return func(c *quiz.Config) {
		c.Now = now
	}
}
