package postgres

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telequiz/telequiz/internal/domain"
	"github.com/telequiz/telequiz/internal/errors"
	"github.com/telequiz/telequiz/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps results in a quiz_results table. The primary key on user_id
// makes the duplicate check atomic at the store: a concurrent second insert
// fails with a unique violation and is surfaced as AlreadyExists.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Provision creates the results table if it does not exist. Idempotent; safe
// to re-run at every startup.
func (s *Store) Provision(ctx context.Context) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS quiz_results (
	seq BIGSERIAL,
	user_id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	score BIGINT NOT NULL,
	time_spent BIGINT NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL,
	answers BIGINT[] NOT NULL,
	questions BIGINT[] NOT NULL
);`

	if _, err := s.db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create quiz_results: %w", err)
	}

	return nil
}

func (s *Store) GetResult(ctx context.Context, userID string) (*domain.Result, error) {
	const stmt = `
SELECT user_id, username, score, time_spent, submitted_at, answers, questions
FROM quiz_results
WHERE user_id = $1;`

	r, err := scanResult(s.db.QueryRow(ctx, stmt, userID))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no result for user %s", userID))
	}
	if err != nil {
		return nil, fmt.Errorf("select result: %w", err)
	}

	return r, nil
}

func (s *Store) HasResult(ctx context.Context, userID string) (bool, error) {
	const stmt = `SELECT EXISTS(SELECT 1 FROM quiz_results WHERE user_id = $1);`

	var exists bool
	if err := s.db.QueryRow(ctx, stmt, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("select exists: %w", err)
	}

	return exists, nil
}

func (s *Store) PutResult(ctx context.Context, r *domain.Result) error {
	const stmt = `
INSERT INTO quiz_results (user_id, username, score, time_spent, submitted_at, answers, questions)
VALUES ($1, $2, $3, $4, $5, $6, $7);`

	_, err := s.db.Exec(ctx, stmt,
		r.UserID, r.Username, r.Score, r.TimeSpent, r.Timestamp,
		toInt64s(r.Answers), toInt64s(r.Questions),
	)

	var pgErr *pgconn.PgError
	const codeUniqueViolation = "23505"
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("user %s has already completed the quiz", r.UserID),
			errors.WithCause(err),
		)
	}

	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	return nil
}

func (s *Store) ListResults(ctx context.Context) ([]domain.Result, error) {
	const stmt = `
SELECT user_id, username, score, time_spent, submitted_at, answers, questions
FROM quiz_results
ORDER BY seq;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("select results: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Result, error) {
		r, err := scanResult(row)
		if err != nil {
			return domain.Result{}, err
		}
		return *r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect results: %w", err)
	}

	return results, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanResult(row scannable) (*domain.Result, error) {
	var (
		r                  domain.Result
		answers, questions []int64
	)
	if err := row.Scan(&r.UserID, &r.Username, &r.Score, &r.TimeSpent, &r.Timestamp, &answers, &questions); err != nil {
		return nil, err
	}

	r.Answers = toInts(answers)
	r.Questions = toInts(questions)
	return &r, nil
}

func toInt64s(vs []int) []int64 {
	out := make([]int64, len(vs))
	for i, v := range vs {
		out[i] = int64(v)
	}
	return out
}

func toInts(vs []int64) []int {
	out := make([]int, len(vs))
	for i, v := range vs {
		out[i] = int(v)
	}
	return out
}
