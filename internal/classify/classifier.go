// Package classify implements the pairwise binary-classification engine: task
// construction, the two model families (L1-penalised logistic regression and
// a randomized tree ensemble), their family-specific model-selection rules,
// and evaluation of trained classifiers.
package classify

import (
	"context"

	"github.com/turtacn/stylobench/internal/corpus"
	"github.com/turtacn/stylobench/pkg/errors"
)

// ModelFamily enumerates the supported classifier families.
type ModelFamily int

const (
	FamilyLinear ModelFamily = iota // L1-penalised logistic regression
	FamilyForest                    // randomized tree ensemble
)

func (f ModelFamily) String() string {
	switch f {
	case FamilyLinear:
		return "regularized-linear"
	case FamilyForest:
		return "tree-ensemble"
	default:
		return "unknown"
	}
}

// LabelPair fixes the two source labels of a pairwise task and their order:
// the baseline is class 0 and the candidate is class 1.  The order is part of
// the tie-breaking contract (ties resolve to the first class).
type LabelPair struct {
	Baseline  string
	Candidate string
}

// Label maps a class index back to its source label.
func (p LabelPair) Label(class int) string {
	if class == 1 {
		return p.Candidate
	}
	return p.Baseline
}

// Subset is a two-class view over one corpus: only documents whose source is
// the baseline or the candidate, with the source collapsed to a binary label.
// Derived, never stored; construct with BuildPairwiseTask.
type Subset struct {
	Corpus string
	Pair   LabelPair
	Docs   []corpus.Document
	Labels []int // parallel to Docs; 0 = baseline, 1 = candidate
}

// Len returns the number of documents in the subset.
func (s *Subset) Len() int { return len(s.Docs) }

// Dim returns the feature dimensionality, or 0 for an empty subset.
func (s *Subset) Dim() int {
	if len(s.Docs) == 0 {
		return 0
	}
	return len(s.Docs[0].Features)
}

// ClassCounts returns the number of baseline and candidate documents.
func (s *Subset) ClassCounts() (baseline, candidate int) {
	for _, y := range s.Labels {
		if y == 1 {
			candidate++
		} else {
			baseline++
		}
	}
	return baseline, candidate
}

// BinaryClassifier is the trained-model capability shared by both families:
// read-only fitted parameters plus the chosen complexity value, bound to the
// label pair it was trained on.
type BinaryClassifier interface {
	Family() ModelFamily
	Pair() LabelPair
	Dim() int

	// Predict returns the class index (0 = baseline, 1 = candidate) for one
	// feature vector of length Dim.  Ties resolve to class 0.
	Predict(features []float64) int

	// Complexity reports the selected hyperparameter: the one-standard-error
	// penalty for the linear family, the per-split feature count for the
	// ensemble family.
	Complexity() float64
}

// Trainer trains a BinaryClassifier on a pairwise subset.  The linear family
// requires the corpus's fold assignment for cross-validated model selection;
// the ensemble family selects complexity by its internal out-of-bag estimate
// and uses the assignment only for the minimum-class-size check.
type Trainer interface {
	Family() ModelFamily
	Train(ctx context.Context, s *Subset, folds *corpus.FoldAssignment) (BinaryClassifier, error)
}

// validateForTraining enforces the shared trainer preconditions: the subset
// must carry exactly two label values, and each class must have at least
// minClass documents.
func validateForTraining(s *Subset, minClass int) error {
	if s == nil || s.Len() == 0 {
		return errors.New(errors.ErrCodeEmptySubset, "pairwise subset is empty")
	}
	n0, n1 := s.ClassCounts()
	if n0 == 0 || n1 == 0 {
		return errors.Newf(errors.ErrCodeDegenerateLabels,
			"subset does not contain exactly two label values (baseline=%d candidate=%d)", n0, n1)
	}
	if n0 < minClass || n1 < minClass {
		return errors.Newf(errors.ErrCodeInsufficientData,
			"class smaller than fold count: baseline=%d candidate=%d required=%d", n0, n1, minClass)
	}
	return nil
}

// designMatrix extracts the feature matrix and numeric response (0/1) from a
// subset.  Rows reference the documents' feature slices directly; callers
// must not mutate them.
func designMatrix(s *Subset) (x [][]float64, y []float64) {
	x = make([][]float64, s.Len())
	y = make([]float64, s.Len())
	for i, d := range s.Docs {
		x[i] = d.Features
		y[i] = float64(s.Labels[i])
	}
	return x, y
}
