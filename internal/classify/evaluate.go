package classify

import (
	"github.com/turtacn/stylobench/pkg/errors"
)

// Evaluation is the outcome of scoring a trained classifier on a labelled
// subset.  Confusion is indexed [actual][predicted] in class order, baseline
// first.
type Evaluation struct {
	Accuracy  float64
	Correct   int
	Total     int
	Confusion [2][2]int
}

// Evaluate scores a classifier over every document of the subset.  The subset
// may come from the training corpus (in-sample evaluation) or from the other
// corpus (transfer evaluation); the function does not distinguish.  The
// subset's label pair must match the classifier's and its dimensionality must
// match the training dimensionality.
func Evaluate(model BinaryClassifier, s *Subset) (*Evaluation, error) {
	if model == nil {
		return nil, errors.InvalidInput("nil classifier")
	}
	if s == nil || s.Len() == 0 {
		return nil, errors.New(errors.ErrCodeEmptySubset, "nothing to evaluate")
	}
	if s.Pair != model.Pair() {
		return nil, errors.Newf(errors.ErrCodeInvalidInput,
			"label pair mismatch: model trained on %s vs %s, subset carries %s vs %s",
			model.Pair().Baseline, model.Pair().Candidate, s.Pair.Baseline, s.Pair.Candidate)
	}
	if s.Dim() != model.Dim() {
		return nil, errors.Newf(errors.ErrCodeDimensionMismatch,
			"model expects %d features, subset carries %d", model.Dim(), s.Dim())
	}

	ev := &Evaluation{Total: s.Len()}
	for i, d := range s.Docs {
		pred := model.Predict(d.Features)
		ev.Confusion[s.Labels[i]][pred]++
		if pred == s.Labels[i] {
			ev.Correct++
		}
	}
	ev.Accuracy = float64(ev.Correct) / float64(ev.Total)
	return ev, nil
}
