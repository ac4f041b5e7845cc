package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Question categories of the catalog, in serving order.
const (
	CategoryStatistics  = "statistics"
	CategoryProbability = "probability"
	CategoryML          = "ml"
)

// Categories lists the catalog categories in their fixed serving order.
var Categories = []string{CategoryStatistics, CategoryProbability, CategoryML}

// Question is a single multiple-choice question of the catalog.
// Correct is the index into Options and must never leave the server.
type Question struct {
	ID       int      `json:"id"`
	Text     string   `json:"text"`
	Options  []string `json:"options"`
	Correct  int      `json:"correct"`
	Category string   `json:"category"`
}

// Submission is the transient payload of one quiz attempt. Questions holds the
// ids the user was asked, Answers the chosen option index per position.
// Answers may be shorter than Questions; unanswered positions score zero.
type Submission struct {
	UserID    string
	Username  string
	Answers   []int
	Questions []int
	TimeSpent int
}

// Result is the persisted record of one completed quiz attempt.
// At most one Result exists per UserID; results are append-only.
type Result struct {
	UserID    string
	Username  string
	Score     int
	TimeSpent int
	Timestamp time.Time
	Answers   []int
	Questions []int
}

// Statistics are the aggregates over all stored results.
// Averages are rounded to 2 decimal places.
type Statistics struct {
	TotalUsers     int
	AverageScore   decimal.Decimal
	AverageTime    decimal.Decimal
	MaxScore       int
	CompletionRate string
}
