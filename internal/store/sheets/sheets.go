package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/telequiz/telequiz/internal/domain"
	"github.com/telequiz/telequiz/internal/errors"
	"github.com/telequiz/telequiz/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps one row per result in a Google Sheets spreadsheet, columns
// A through G: User ID, Username, Score, Time Spent (sec), Timestamp,
// Answers, Questions. Rows are appended, never rewritten, so sheet order is
// insertion order. The duplicate check reads the sheet before appending and is
// not atomic across processes.
type Store struct {
	srv           *sheets.Service
	spreadsheetID string
	sheetName     string
}

var headerRow = []any{"User ID", "Username", "Score", "Time Spent (sec)", "Timestamp", "Answers", "Questions"}

type Config struct {
	CredentialsFile string
	SpreadsheetID   string
	// SheetName of the results sheet, defaults to Sheet1.
	SheetName string
}

func NewStore(ctx context.Context, c Config) (*Store, error) {
	srv, err := sheets.NewService(ctx,
		option.WithCredentialsFile(c.CredentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	name := c.SheetName
	if name == "" {
		name = "Sheet1"
	}

	return &Store{
		srv:           srv,
		spreadsheetID: c.SpreadsheetID,
		sheetName:     name,
	}, nil
}

// ProvisionHeader writes the header row if the sheet does not have one yet.
// Best-effort: callers log a failure and continue, re-running at the next
// startup is idempotent.
func (s *Store) ProvisionHeader(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A1:G1", s.sheetName)

	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	if len(resp.Values) > 0 {
		return nil
	}

	_, err = s.srv.Spreadsheets.Values.
		Update(s.spreadsheetID, rng, &sheets.ValueRange{Values: [][]any{headerRow}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	slog.InfoContext(ctx, "sheets: provisioned header row", "spreadsheet", s.spreadsheetID)
	return nil
}

func (s *Store) GetResult(ctx context.Context, userID string) (*domain.Result, error) {
	results, err := s.ListResults(ctx)
	if err != nil {
		return nil, err
	}

	for i := range results {
		if results[i].UserID == userID {
			return &results[i], nil
		}
	}

	return nil, errors.New(errors.CodeNotFound,
		errors.WithMessagef("no result for user %s", userID))
}

func (s *Store) HasResult(ctx context.Context, userID string) (bool, error) {
	_, err := s.GetResult(ctx, userID)
	if errors.IsCode(err, errors.CodeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) PutResult(ctx context.Context, r *domain.Result) error {
	ok, err := s.HasResult(ctx, r.UserID)
	if err != nil {
		return err
	}
	if ok {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("user %s has already completed the quiz", r.UserID))
	}

	row := []any{
		r.UserID,
		r.Username,
		strconv.Itoa(r.Score),
		strconv.Itoa(r.TimeSpent),
		r.Timestamp.Format(time.RFC3339Nano),
		formatIntList(r.Answers),
		formatIntList(r.Questions),
	}

	_, err = s.srv.Spreadsheets.Values.
		Append(s.spreadsheetID, s.dataRange(), &sheets.ValueRange{Values: [][]any{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return errors.New(errors.CodeUnavailable,
			errors.WithMessagef("append result row: %v", err),
			errors.WithCause(err),
		)
	}

	return nil
}

func (s *Store) ListResults(ctx context.Context) ([]domain.Result, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, s.dataRange()).Context(ctx).Do()
	if err != nil {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("read result rows: %v", err),
			errors.WithCause(err),
		)
	}

	results := make([]domain.Result, 0, len(resp.Values))
	for i, row := range resp.Values {
		r, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		results = append(results, *r)
	}

	return results, nil
}

func (s *Store) dataRange() string {
	return fmt.Sprintf("%s!A2:G", s.sheetName)
}

func parseRow(row []any) (*domain.Result, error) {
	if len(row) < 7 {
		return nil, fmt.Errorf("expected 7 columns, got %d", len(row))
	}

	cols := make([]string, 7)
	for i := range cols {
		cols[i] = fmt.Sprint(row[i])
	}

	score, err := strconv.Atoi(cols[2])
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	timeSpent, err := strconv.Atoi(cols[3])
	if err != nil {
		return nil, fmt.Errorf("time spent: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, cols[4])
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}
	answers, err := parseIntList(cols[5])
	if err != nil {
		return nil, fmt.Errorf("answers: %w", err)
	}
	questions, err := parseIntList(cols[6])
	if err != nil {
		return nil, fmt.Errorf("questions: %w", err)
	}

	return &domain.Result{
		UserID:    cols[0],
		Username:  cols[1],
		Score:     score,
		TimeSpent: timeSpent,
		Timestamp: ts,
		Answers:   answers,
		Questions: questions,
	}, nil
}

// formatIntList renders ints as their literal list representation: [1, 2, 3].
func formatIntList(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func parseIntList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		return []int{}, nil
	}

	parts := strings.Split(s, ",")
	vs := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", p, err)
		}
		vs = append(vs, v)
	}

	return vs, nil
}
