package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/stylobench/internal/corpus"
	apperrors "github.com/turtacn/stylobench/pkg/errors"
)

func trainForest(t *testing.T, cfg ForestConfig, table *corpus.Table, k int, seed int64) BinaryClassifier {
	t.Helper()

	s, err := BuildPairwiseTask(table, LabelPair{Baseline: "human2", Candidate: "modelx"})
	require.NoError(t, err)
	folds, err := corpus.AssignFolds(table, k, seed)
	require.NoError(t, err)

	tr := NewForestTrainer(cfg, nil)
	model, err := tr.Train(context.Background(), s, folds)
	require.NoError(t, err)
	return model
}

func TestForestSeparable(t *testing.T) {
	table := twoClassTable(t, "brown", 30, 4.0, 11)
	cfg := ForestConfig{Trees: 100, Seed: 42}

	model := trainForest(t, cfg, table, 5, 7)
	assert.Equal(t, FamilyForest, model.Family())

	s, err := BuildPairwiseTask(table, model.Pair())
	require.NoError(t, err)
	ev, err := Evaluate(model, s)
	require.NoError(t, err)
	assert.Equal(t, 1.0, ev.Accuracy)

	fm := model.(*forestModel)
	assert.Less(t, fm.OOBError(), 0.2, "widely separated classes must have a small out-of-bag error")
}

func TestForestCrossCorpus(t *testing.T) {
	train := twoClassTable(t, "brown", 30, 4.0, 11)
	test := twoClassTable(t, "guardian", 30, 4.0, 23)

	model := trainForest(t, ForestConfig{Trees: 100, Seed: 42}, train, 5, 7)

	s, err := BuildPairwiseTask(test, model.Pair())
	require.NoError(t, err)
	ev, err := Evaluate(model, s)
	require.NoError(t, err)
	assert.Equal(t, 1.0, ev.Accuracy)
}

func TestForestSelectsFromGrid(t *testing.T) {
	table := twoClassTable(t, "brown", 30, 4.0, 11)
	grid := []int{1, 3, 6}

	model := trainForest(t, ForestConfig{Trees: 60, MtryGrid: grid, Seed: 42}, table, 5, 7)

	fm := model.(*forestModel)
	assert.Contains(t, grid, fm.mtry)
	assert.Equal(t, float64(fm.mtry), model.Complexity())
}

func TestForestGridOrderIrrelevant(t *testing.T) {
	tr := NewForestTrainer(ForestConfig{MtryGrid: []int{6, 1, 3}}, nil)
	assert.Equal(t, []int{1, 3, 6}, tr.cfg.MtryGrid,
		"a configured grid must be normalized to ascending order")

	table := twoClassTable(t, "brown", 30, 4.0, 11)
	a := trainForest(t, ForestConfig{Trees: 60, MtryGrid: []int{6, 1, 3}, Seed: 42}, table, 5, 7).(*forestModel)
	b := trainForest(t, ForestConfig{Trees: 60, MtryGrid: []int{1, 3, 6}, Seed: 42}, table, 5, 7).(*forestModel)

	assert.Equal(t, b.mtry, a.mtry, "selection must not depend on the listed grid order")
	assert.Equal(t, b.oobError, a.oobError)
}

func TestForestDeterministic(t *testing.T) {
	table := twoClassTable(t, "brown", 20, 1.0, 11)
	cfg := ForestConfig{Trees: 50, Seed: 123}

	a := trainForest(t, cfg, table, 5, 7).(*forestModel)
	b := trainForest(t, cfg, table, 5, 7).(*forestModel)

	assert.Equal(t, a.mtry, b.mtry)
	assert.Equal(t, a.oobError, b.oobError)

	s, err := BuildPairwiseTask(table, a.pair)
	require.NoError(t, err)
	for _, d := range s.Docs {
		assert.Equal(t, a.Predict(d.Features), b.Predict(d.Features))
	}
}

func TestForestRejectsBadGrid(t *testing.T) {
	table := twoClassTable(t, "brown", 15, 4.0, 11)
	s, err := BuildPairwiseTask(table, LabelPair{Baseline: "human2", Candidate: "modelx"})
	require.NoError(t, err)

	tr := NewForestTrainer(ForestConfig{Trees: 20, MtryGrid: []int{100}, Seed: 1}, nil)
	_, err = tr.Train(context.Background(), s, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfigInvalid))
}

func TestForestInsufficientData(t *testing.T) {
	table := twoClassTable(t, "brown", 3, 4.0, 11)
	s, err := BuildPairwiseTask(table, LabelPair{Baseline: "human2", Candidate: "modelx"})
	require.NoError(t, err)
	folds, err := corpus.AssignFolds(table, 5, 7)
	require.NoError(t, err)

	tr := NewForestTrainer(ForestConfig{Trees: 20, Seed: 1}, nil)
	_, err = tr.Train(context.Background(), s, folds)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInsufficientData))
}

func TestDefaultMtryGrid(t *testing.T) {
	tests := []struct {
		dim  int
		want []int
	}{
		{dim: 36, want: []int{3, 6, 12}},
		{dim: 6, want: []int{1, 2, 4}},
		{dim: 4, want: []int{1, 2, 4}},
		{dim: 1, want: []int{1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, defaultMtryGrid(tt.dim), "dim=%d", tt.dim)
	}
}

func TestArgmaxTieKeepsBaseline(t *testing.T) {
	assert.Equal(t, 0, argmax2([2]float64{0.5, 0.5}))
	assert.Equal(t, 1, argmax2([2]float64{0.2, 0.8}))
	assert.Equal(t, 0, argmax2([2]float64{0.8, 0.2}))
}
