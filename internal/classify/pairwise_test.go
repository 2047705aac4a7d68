package classify

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/stylobench/internal/corpus"
	apperrors "github.com/turtacn/stylobench/pkg/errors"
)

var testFeatureNames = []string{"ttr", "mean_word_len", "noun_ratio", "that_del", "passive_ratio", "contraction"}

// twoClassTable builds a synthetic corpus with perClass documents per source.
// Baseline rows cluster near zero on every column; candidate rows are shifted
// on the first two columns.  A zero shift makes the classes
// indistinguishable.
func twoClassTable(t *testing.T, name string, perClass int, shift float64, seed int64) *corpus.Table {
	t.Helper()

	genres := []string{"news", "fiction", "qa"}
	rng := rand.New(rand.NewSource(seed))
	counter := map[string]int{}

	var docs []corpus.Document
	for i := 0; i < perClass; i++ {
		for class, source := range []string{"human2", "modelx"} {
			g := genres[i%len(genres)]
			n := counter[g]
			counter[g]++

			features := make([]float64, len(testFeatureNames))
			for j := range features {
				features[j] = rng.NormFloat64() * 0.05
			}
			if class == 1 {
				features[0] += shift
				features[1] += shift
			}

			docs = append(docs, corpus.Document{
				ID:       fmt.Sprintf("%s_%03d@%s", g, n, source),
				Genre:    g,
				Source:   source,
				Features: features,
			})
		}
	}

	table, err := corpus.NewTable(name, testFeatureNames, docs)
	require.NoError(t, err)
	return table
}

// withExtraSource appends background-class documents to a copy of the docs of
// an existing table.
func withExtraSource(t *testing.T, base *corpus.Table, source string, count int) *corpus.Table {
	t.Helper()

	docs := append([]corpus.Document(nil), base.Documents()...)
	for i := 0; i < count; i++ {
		docs = append(docs, corpus.Document{
			ID:       fmt.Sprintf("news_%03d@%s", 900+i, source),
			Genre:    "news",
			Source:   source,
			Features: make([]float64, base.Dim()),
		})
	}
	table, err := corpus.NewTable(base.Name(), base.FeatureNames(), docs)
	require.NoError(t, err)
	return table
}

func TestBuildPairwiseTask(t *testing.T) {
	base := twoClassTable(t, "brown", 12, 2.0, 1)
	table := withExtraSource(t, base, "human1", 5)
	pair := LabelPair{Baseline: "human2", Candidate: "modelx"}

	s, err := BuildPairwiseTask(table, pair)
	require.NoError(t, err)

	assert.Equal(t, "brown", s.Corpus)
	assert.Equal(t, 24, s.Len())
	for i, d := range s.Docs {
		assert.NotEqual(t, "human1", d.Source, "background class must be excluded")
		want := 0
		if d.Source == "modelx" {
			want = 1
		}
		assert.Equal(t, want, s.Labels[i])
	}

	n0, n1 := s.ClassCounts()
	assert.Equal(t, 12, n0)
	assert.Equal(t, 12, n1)
}

func TestBuildPairwiseTaskSameLabel(t *testing.T) {
	table := twoClassTable(t, "brown", 6, 2.0, 1)

	_, err := BuildPairwiseTask(table, LabelPair{Baseline: "human2", Candidate: "human2"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfigInvalid))
}

func TestBuildPairwiseTaskAbsentLabels(t *testing.T) {
	table := twoClassTable(t, "brown", 6, 2.0, 1)

	tests := []struct {
		name string
		pair LabelPair
	}{
		{"missing baseline", LabelPair{Baseline: "human9", Candidate: "modelx"}},
		{"missing candidate", LabelPair{Baseline: "human2", Candidate: "modely"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPairwiseTask(table, tt.pair)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeLabelAbsent))
		})
	}
}

func TestRestrictFoldsForeignAssignment(t *testing.T) {
	table := twoClassTable(t, "brown", 15, 2.0, 1)
	other := twoClassTable(t, "guardian", 15, 2.0, 99)

	s, err := BuildPairwiseTask(table, LabelPair{Baseline: "human2", Candidate: "modelx"})
	require.NoError(t, err)

	// The assignment covers a different corpus whose ids only partially
	// overlap; any uncovered document is a setup error.
	folds, err := corpus.AssignFolds(other, 5, 7)
	require.NoError(t, err)

	trimmed := &Subset{
		Corpus: s.Corpus,
		Pair:   s.Pair,
		Docs: []corpus.Document{{
			ID:       "poetry_000@human2",
			Genre:    "poetry",
			Source:   "human2",
			Features: make([]float64, table.Dim()),
		}},
		Labels: []int{0},
	}
	_, err = restrictFolds(trimmed, folds)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfigInvalid))
}
