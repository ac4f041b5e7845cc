package quiz

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/telequiz/telequiz/internal/catalog"
	"github.com/telequiz/telequiz/internal/domain"
	"github.com/telequiz/telequiz/internal/errors"
	"github.com/telequiz/telequiz/internal/event"
	"github.com/telequiz/telequiz/internal/store"
)

// MaxScore is the score ceiling used for the completion rate. The catalog is
// fixed at 9 questions, so this is a constant rather than a derived value.
const MaxScore = 9

type Config struct {
	Catalog  *catalog.Catalog
	Store    store.Store
	EventBus *event.Bus

	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

type Service struct {
	catalog *catalog.Catalog
	store   store.Store
	eb      *event.Bus
	now     func() time.Time

	locks userLocks
}

func NewService(c Config) *Service {
	now := c.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		catalog: c.Catalog,
		store:   c.Store,
		eb:      c.EventBus,
		now:     now,
		locks:   userLocks{m: make(map[string]*sync.Mutex)},
	}
}

// Question is a catalog question with the correct answer stripped.
type Question struct {
	ID       int      `json:"id"`
	Text     string   `json:"text"`
	Options  []string `json:"options"`
	Category string   `json:"category"`
}

// GetQuestions returns the full catalog grouped by category, sanitized for
// clients.
func (s *Service) GetQuestions() map[string][]Question {
	out := make(map[string][]Question, len(domain.Categories))
	for _, cat := range domain.Categories {
		qs := s.catalog.Category(cat)
		sanitized := make([]Question, 0, len(qs))
		for _, q := range qs {
			sanitized = append(sanitized, Question{
				ID:       q.ID,
				Text:     q.Text,
				Options:  q.Options,
				Category: q.Category,
			})
		}
		out[cat] = sanitized
	}

	return out
}

type CheckUserResponse struct {
	Completed bool
	Timestamp time.Time
}

// CheckUser reports whether the user has already completed the quiz. A store
// read failure degrades to not-completed instead of failing the request; the
// submit path re-checks against a healthy store before writing.
func (s *Service) CheckUser(ctx context.Context, userID string) *CheckUserResponse {
	r, err := s.store.GetResult(ctx, userID)
	if errors.IsCode(err, errors.CodeNotFound) {
		return &CheckUserResponse{Completed: false}
	}
	if err != nil {
		slog.WarnContext(ctx, "quiz: check user degraded to not-completed",
			"user_id", userID,
			"error", err,
		)
		return &CheckUserResponse{Completed: false}
	}

	return &CheckUserResponse{Completed: true, Timestamp: r.Timestamp}
}

type SubmitRequest struct {
	UserID    string
	Username  string
	Answers   []int
	Questions []int
	TimeSpent int
}

type SubmitResponse struct {
	Score int
}

// Submit scores a submission and persists it as the user's single result.
// The check-then-write sequence holds a per-user mutex, so two concurrent
// submissions for the same user cannot both pass the existence check within
// one process. Backends with atomic conditional inserts reject the duplicate
// at the store as well.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	unlock := s.locks.lock(req.UserID)
	defer unlock()

	ok, err := s.store.HasResult(ctx, req.UserID)
	if err != nil {
		return nil, errors.Convert(err)
	}
	if ok {
		return nil, errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("user has already completed the quiz"))
	}

	r := &domain.Result{
		UserID:    req.UserID,
		Username:  req.Username,
		Score:     s.score(req.Questions, req.Answers),
		TimeSpent: req.TimeSpent,
		Timestamp: s.now(),
		Answers:   req.Answers,
		Questions: req.Questions,
	}

	if err := s.store.PutResult(ctx, r); err != nil {
		return nil, errors.Convert(err)
	}

	if s.eb != nil {
		s.eb.Publish(ctx, domain.EventResultSaved{Result: *r})
	}

	return &SubmitResponse{Score: r.Score}, nil
}

// score counts positions where the chosen option matches the catalog's correct
// index. Positions past the end of answers and question ids missing from the
// catalog contribute zero.
func (s *Service) score(questions, answers []int) int {
	score := 0
	for i, id := range questions {
		if i >= len(answers) {
			continue
		}
		q, ok := s.catalog.Question(id)
		if !ok {
			continue
		}
		if answers[i] == q.Correct {
			score++
		}
	}

	return score
}

// ListResults returns all results sorted by score descending. The sort is
// stable: equal scores keep the store's insertion order.
func (s *Service) ListResults(ctx context.Context) ([]domain.Result, error) {
	results, err := s.store.ListResults(ctx)
	if err != nil {
		return nil, errors.Convert(err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results, nil
}

// GetStatistics computes aggregates over all results. Returns nil with no
// error when there are no results yet.
func (s *Service) GetStatistics(ctx context.Context) (*domain.Statistics, error) {
	results, err := s.store.ListResults(ctx)
	if err != nil {
		return nil, errors.Convert(err)
	}

	if len(results) == 0 {
		return nil, nil
	}

	var totalScore, totalTime int64
	for _, r := range results {
		totalScore += int64(r.Score)
		totalTime += int64(r.TimeSpent)
	}

	n := decimal.NewFromInt(int64(len(results)))
	avgScore := decimal.NewFromInt(totalScore).Div(n).Round(2)
	avgTime := decimal.NewFromInt(totalTime).Div(n).Round(2)
	rate := avgScore.Div(decimal.NewFromInt(MaxScore)).Mul(decimal.NewFromInt(100))

	return &domain.Statistics{
		TotalUsers:     len(results),
		AverageScore:   avgScore,
		AverageTime:    avgTime,
		MaxScore:       MaxScore,
		CompletionRate: rate.StringFixed(1) + "%",
	}, nil
}

// userLocks serializes submissions per user id. Mutexes are kept for the
// process lifetime; the map is bounded by the number of distinct users.
type userLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *userLocks) lock(userID string) (unlock func()) {
	l.mu.Lock()
	m, ok := l.m[userID]
	if !ok {
		m = new(sync.Mutex)
		l.m[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
