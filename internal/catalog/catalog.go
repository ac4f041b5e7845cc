package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/telequiz/telequiz/internal/domain"
	"github.com/telequiz/telequiz/internal/errors"
)

// Catalog is the static set of quiz questions, grouped by category and indexed
// by question id. Immutable once loaded.
type Catalog struct {
	categories map[string][]domain.Question
	byID       map[int]domain.Question
}

// Load reads the catalog from a JSON file of the form
// {"statistics": [...], "probability": [...], "ml": [...]}.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeNotFound,
				errors.WithMessagef("questions file not found: %s", path),
				errors.WithCause(err),
			)
		}
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var categories map[string][]domain.Question
	if err := json.Unmarshal(b, &categories); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}

	c := &Catalog{
		categories: make(map[string][]domain.Question, len(categories)),
		byID:       make(map[int]domain.Question),
	}
	for cat, qs := range categories {
		for i := range qs {
			qs[i].Category = cat
			c.byID[qs[i].ID] = qs[i]
		}
		c.categories[cat] = qs
	}

	return c, nil
}

// Question looks up a question by id.
func (c *Catalog) Question(id int) (domain.Question, bool) {
	q, ok := c.byID[id]
	return q, ok
}

// Category returns the questions of one category, in catalog order.
func (c *Catalog) Category(name string) []domain.Question {
	return c.categories[name]
}

// Len is the total number of questions across all categories.
func (c *Catalog) Len() int {
	return len(c.byID)
}
