package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telequiz/telequiz/internal/catalog"
	"github.com/telequiz/telequiz/internal/domain"
	"github.com/telequiz/telequiz/internal/errors"
)

const fixture = `{
  "statistics": [
    {"id": 1, "text": "q1", "options": ["a", "b"], "correct": 0},
    {"id": 2, "text": "q2", "options": ["a", "b"], "correct": 1}
  ],
  "probability": [
    {"id": 3, "text": "q3", "options": ["a", "b", "c"], "correct": 2}
  ],
  "ml": [
    {"id": 4, "text": "q4", "options": ["a", "b"], "correct": 0}
  ]
}`

func TestLoad(t *testing.T) {
	t.Parallel()

	c, err := catalog.Load(writeFixture(t, fixture))
	require.NoError(t, err)

	assert.Equal(t, 4, c.Len())

	q, ok := c.Question(3)
	require.True(t, ok)
	assert.Equal(t, "q3", q.Text)
	assert.Equal(t, 2, q.Correct)
	assert.Equal(t, domain.CategoryProbability, q.Category)

	_, ok = c.Question(42)
	assert.False(t, ok)

	stats := c.Category(domain.CategoryStatistics)
	require.Len(t, stats, 2)
	assert.Equal(t, []int{1, 2}, []int{stats[0].ID, stats[1].ID}, "category keeps catalog order")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := catalog.Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestLoad_MalformedFile(t *testing.T) {
	t.Parallel()

	_, err := catalog.Load(writeFixture(t, "{not json"))
	require.Error(t, err)
}

func writeFixture(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
