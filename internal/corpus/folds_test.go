package corpus

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/stylobench/pkg/errors"
)

// syntheticTable builds a table with the given number of documents per genre,
// alternating source labels so folds are computed over the full union.
func syntheticTable(t *testing.T, perGenre map[string]int) *Table {
	t.Helper()
	var docs []Document
	sources := []string{"human2", "modelX"}
	for genre, n := range perGenre {
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("%s_%03d@%s", genre, i, sources[i%2])
			docs = append(docs, doc(id, float64(i)))
		}
	}
	tab, err := NewTable("A", []string{"f1"}, docs)
	require.NoError(t, err)
	return tab
}

func TestAssignFolds_EveryDocumentExactlyOnce(t *testing.T) {
	t.Parallel()
	tab := syntheticTable(t, map[string]int{"acad": 25, "news": 17, "fic": 30})
	fa, err := AssignFolds(tab, 10, 42)
	require.NoError(t, err)

	assert.Equal(t, tab.Len(), fa.Len())
	for _, d := range tab.Documents() {
		f, ok := fa.Fold(d.ID)
		require.True(t, ok, "document %s has no fold", d.ID)
		assert.GreaterOrEqual(t, f, 1)
		assert.LessOrEqual(t, f, 10)
	}
}

func TestAssignFolds_BalancedWithinGenre(t *testing.T) {
	t.Parallel()
	tab := syntheticTable(t, map[string]int{"acad": 25, "news": 17, "fic": 40})
	fa, err := AssignFolds(tab, 10, 7)
	require.NoError(t, err)

	for genre, counts := range fa.GenreBalance(tab) {
		min, max := counts[0], counts[0]
		for _, c := range counts[1:] {
			if c < min {
				min = c
			}
			if c > max {
				max = c
			}
		}
		assert.LessOrEqual(t, max-min, 1, "genre %s folds unbalanced: %v", genre, counts)
	}
}

func TestAssignFolds_DeterministicForFixedSeed(t *testing.T) {
	t.Parallel()
	tab := syntheticTable(t, map[string]int{"acad": 33, "news": 21})

	a, err := AssignFolds(tab, 10, 99)
	require.NoError(t, err)
	b, err := AssignFolds(tab, 10, 99)
	require.NoError(t, err)

	for _, d := range tab.Documents() {
		fa, _ := a.Fold(d.ID)
		fb, _ := b.Fold(d.ID)
		assert.Equal(t, fa, fb, "document %s moved folds across runs", d.ID)
	}
}

func TestAssignFolds_DifferentSeedsDiffer(t *testing.T) {
	t.Parallel()
	tab := syntheticTable(t, map[string]int{"acad": 50})

	a, _ := AssignFolds(tab, 10, 1)
	b, _ := AssignFolds(tab, 10, 2)

	moved := 0
	for _, d := range tab.Documents() {
		fa, _ := a.Fold(d.ID)
		fb, _ := b.Fold(d.ID)
		if fa != fb {
			moved++
		}
	}
	assert.Greater(t, moved, 0)
}

func TestAssignFolds_GenreSmallerThanK(t *testing.T) {
	t.Parallel()
	tab := syntheticTable(t, map[string]int{"rare": 3, "acad": 20})
	fa, err := AssignFolds(tab, 10, 5)
	require.NoError(t, err)

	counts := fa.GenreBalance(tab)["rare"]
	total, nonEmpty := 0, 0
	for _, c := range counts {
		total += c
		if c > 0 {
			nonEmpty++
		}
	}
	// Some folds get zero documents from the small genre; that is accepted.
	assert.Equal(t, 3, total)
	assert.Equal(t, 3, nonEmpty)
}

func TestAssignFolds_RejectsTinyFoldCount(t *testing.T) {
	t.Parallel()
	tab := syntheticTable(t, map[string]int{"acad": 10})
	_, err := AssignFolds(tab, 1, 42)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFoldCountInvalid))
}
