package sweep

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/stylobench/internal/classify"
	"github.com/turtacn/stylobench/internal/corpus"
	apperrors "github.com/turtacn/stylobench/pkg/errors"
)

var sweepFeatureNames = []string{"ttr", "mean_word_len", "noun_ratio", "that_del", "passive_ratio", "contraction"}

// buildCorpus makes a synthetic corpus; each source gets perSource documents
// shifted by its entry in shift on the first two columns.  The baseline
// should carry shift zero.
func buildCorpus(t *testing.T, name string, shift map[string]float64, perSource map[string]int, seed int64) *corpus.Table {
	t.Helper()

	genres := []string{"news", "fiction", "qa"}
	rng := rand.New(rand.NewSource(seed))
	counter := map[string]int{}

	var docs []corpus.Document
	for _, source := range sortedKeys(shift) {
		n := perSource[source]
		for i := 0; i < n; i++ {
			g := genres[i%len(genres)]
			idx := counter[g]
			counter[g]++

			features := make([]float64, len(sweepFeatureNames))
			for j := range features {
				features[j] = rng.NormFloat64() * 0.05
			}
			features[0] += shift[source]
			features[1] += shift[source]

			docs = append(docs, corpus.Document{
				ID:       fmt.Sprintf("%s_%03d@%s", g, idx, source),
				Genre:    g,
				Source:   source,
				Features: features,
			})
		}
	}

	table, err := corpus.NewTable(name, sweepFeatureNames, docs)
	require.NoError(t, err)
	return table
}

func sortedKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func fastTrainers(seed int64) []classify.Trainer {
	return []classify.Trainer{
		classify.NewLassoLogisticTrainer(classify.LinearConfig{}, nil),
		classify.NewForestTrainer(classify.ForestConfig{Trees: 40, Seed: seed}, nil),
	}
}

func TestAggregatorRun(t *testing.T) {
	shift := map[string]float64{
		"human2":   0,   // baseline
		"human1":   0,   // excluded background
		"modelx":   4.0, // cleanly separable
		"modely7b": 0,   // indistinguishable from the baseline
	}
	per := map[string]int{"human2": 30, "human1": 10, "modelx": 30, "modely7b": 30}

	a := buildCorpus(t, "brown", shift, per, 1)
	b := buildCorpus(t, "guardian", shift, per, 2)

	metrics := NewInMemorySweepMetrics()
	agg, err := NewAggregator(Params{
		CorpusA:   a,
		CorpusB:   b,
		Baseline:  "human2",
		Excluded:  []string{"human1"},
		FoldCount: 5,
		Seed:      7,
		Workers:   2,
		Trainers:  fastTrainers(7),
		Metrics:   metrics,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"modelx", "modely7b"}, agg.Candidates())

	table, err := agg.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, table.Rows, 4, "two candidates, two families")
	assert.NotEmpty(t, table.RunID)
	assert.Equal(t, "brown", table.CorpusA)
	assert.Equal(t, int64(7), table.Seed)

	// The separable candidate must rank above the indistinguishable one in
	// both families.
	assert.Equal(t, "modelx", table.Rows[0].Candidate)
	assert.Equal(t, "modelx", table.Rows[1].Candidate)
	for _, r := range table.Rows[:2] {
		require.True(t, r.Complete())
		assert.Equal(t, 1.0, r.TrainA.Accuracy)
		assert.Equal(t, 1.0, r.CrossAB.Accuracy)
		assert.Equal(t, 1.0, r.TrainB.Accuracy)
		assert.Equal(t, 1.0, r.CrossBA.Accuracy)
		assert.Equal(t, GroupBase, r.Group)
	}
	for _, r := range table.Rows[2:] {
		assert.Equal(t, "modely7b", r.Candidate)
		require.True(t, r.Complete())
		m, ok := r.MeanCross()
		require.True(t, ok)
		assert.InDelta(t, 0.5, m, 0.25, "no-signal candidate converges to chance")
	}

	stats := metrics.GetCurrentStats()
	assert.Equal(t, int64(4), stats.TasksTotal)
	assert.Equal(t, int64(0), stats.MissingRows)
}

func TestAggregatorCandidateMissingFromOneCorpus(t *testing.T) {
	shiftA := map[string]float64{"human2": 0, "modelx": 4.0, "onlya": 4.0}
	perA := map[string]int{"human2": 30, "modelx": 30, "onlya": 30}
	shiftB := map[string]float64{"human2": 0, "modelx": 4.0}
	perB := map[string]int{"human2": 30, "modelx": 30}

	a := buildCorpus(t, "brown", shiftA, perA, 1)
	b := buildCorpus(t, "guardian", shiftB, perB, 2)

	metrics := NewInMemorySweepMetrics()
	agg, err := NewAggregator(Params{
		CorpusA:   a,
		CorpusB:   b,
		Baseline:  "human2",
		FoldCount: 5,
		Seed:      7,
		Trainers:  fastTrainers(7),
		Metrics:   metrics,
	})
	require.NoError(t, err)

	table, err := agg.Run(context.Background())
	require.NoError(t, err, "a candidate absent from one corpus must not abort the sweep")

	var onlyaRows []Row
	for _, r := range table.Rows {
		if r.Candidate == "onlya" {
			onlyaRows = append(onlyaRows, r)
		}
	}
	require.Len(t, onlyaRows, 2)
	for _, r := range onlyaRows {
		assert.True(t, r.TrainA.OK, "training direction in the corpus that has the candidate still runs")
		assert.False(t, r.CrossAB.OK)
		assert.Equal(t, "CFG_002", r.CrossAB.Reason)
		assert.False(t, r.TrainB.OK)
		assert.False(t, r.CrossBA.OK)
		assert.False(t, r.Complete())
	}
	assert.NotEmpty(t, metrics.MissingRows())
}

func TestAggregatorTooSmallCandidate(t *testing.T) {
	shift := map[string]float64{"human2": 0, "modelx": 4.0, "tiny": 4.0}
	per := map[string]int{"human2": 30, "modelx": 30, "tiny": 3}

	a := buildCorpus(t, "brown", shift, per, 1)
	b := buildCorpus(t, "guardian", shift, per, 2)

	metrics := NewInMemorySweepMetrics()
	agg, err := NewAggregator(Params{
		CorpusA:   a,
		CorpusB:   b,
		Baseline:  "human2",
		FoldCount: 5,
		Seed:      7,
		Trainers:  fastTrainers(7),
		Metrics:   metrics,
	})
	require.NoError(t, err)

	table, err := agg.Run(context.Background())
	require.NoError(t, err, "insufficient data is task-local and must not abort the sweep")

	for _, r := range table.Rows {
		if r.Candidate != "tiny" {
			continue
		}
		assert.False(t, r.Complete())
		assert.Equal(t, "DATA_001", r.TrainA.Reason)
	}

	var reasons []string
	for _, mr := range metrics.MissingRows() {
		if mr.Candidate == "tiny" {
			reasons = append(reasons, mr.Reason)
		}
	}
	assert.Contains(t, reasons, "DATA_001")
}

func TestAggregatorRejectsBadSetup(t *testing.T) {
	shift := map[string]float64{"human2": 0, "modelx": 2.0}
	per := map[string]int{"human2": 10, "modelx": 10}
	a := buildCorpus(t, "brown", shift, per, 1)
	b := buildCorpus(t, "guardian", shift, per, 2)

	t.Run("absent baseline", func(t *testing.T) {
		_, err := NewAggregator(Params{CorpusA: a, CorpusB: b, Baseline: "human9"})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeLabelAbsent))
		assert.True(t, apperrors.IsConfiguration(err))
	})

	t.Run("schema mismatch", func(t *testing.T) {
		narrow, err := corpus.NewTable("narrow", []string{"ttr"}, []corpus.Document{
			{ID: "news_000@human2", Genre: "news", Source: "human2", Features: []float64{0.1}},
		})
		require.NoError(t, err)

		_, err = NewAggregator(Params{CorpusA: a, CorpusB: narrow, Baseline: "human2"})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSchemaMismatch))
	})

	t.Run("missing corpus", func(t *testing.T) {
		_, err := NewAggregator(Params{CorpusA: a, Baseline: "human2"})
		require.Error(t, err)
	})
}

func TestAggregatorCancelled(t *testing.T) {
	shift := map[string]float64{"human2": 0, "modelx": 4.0}
	per := map[string]int{"human2": 30, "modelx": 30}
	a := buildCorpus(t, "brown", shift, per, 1)
	b := buildCorpus(t, "guardian", shift, per, 2)

	agg, err := NewAggregator(Params{
		CorpusA:   a,
		CorpusB:   b,
		Baseline:  "human2",
		FoldCount: 5,
		Trainers:  fastTrainers(7),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = agg.Run(ctx)
	require.Error(t, err)
}

func TestAggregatorDeterministicRows(t *testing.T) {
	shift := map[string]float64{"human2": 0, "modelx": 4.0, "modely": 1.0}
	per := map[string]int{"human2": 30, "modelx": 30, "modely": 30}
	a := buildCorpus(t, "brown", shift, per, 1)
	b := buildCorpus(t, "guardian", shift, per, 2)

	run := func() []Row {
		agg, err := NewAggregator(Params{
			CorpusA:   a,
			CorpusB:   b,
			Baseline:  "human2",
			FoldCount: 5,
			Seed:      7,
			Workers:   3,
			Trainers:  fastTrainers(7),
		})
		require.NoError(t, err)
		table, err := agg.Run(context.Background())
		require.NoError(t, err)
		return table.Rows
	}

	first := run()
	second := run()
	assert.Equal(t, first, second, "same corpora and seed must reproduce the table exactly")
}
