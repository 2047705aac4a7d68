package classify

import (
	"github.com/turtacn/stylobench/internal/corpus"
	"github.com/turtacn/stylobench/pkg/errors"
)

// BuildPairwiseTask constructs the two-class subset of a corpus for one
// baseline-vs-candidate task.  Documents with any other source label,
// including the excluded background class, never enter the subset.  A
// requested label that is absent from the corpus is a configuration error,
// surfaced loudly rather than silently producing a one-class task.
func BuildPairwiseTask(t *corpus.Table, pair LabelPair) (*Subset, error) {
	if pair.Baseline == pair.Candidate {
		return nil, errors.Newf(errors.ErrCodeConfigInvalid,
			"baseline and candidate are the same label %q", pair.Baseline)
	}
	if !t.HasSource(pair.Baseline) {
		return nil, errors.Newf(errors.ErrCodeLabelAbsent,
			"baseline label %q not present in corpus %q", pair.Baseline, t.Name())
	}
	if !t.HasSource(pair.Candidate) {
		return nil, errors.Newf(errors.ErrCodeLabelAbsent,
			"candidate label %q not present in corpus %q", pair.Candidate, t.Name())
	}

	docs := t.SourceSubset(pair.Baseline, pair.Candidate)
	labels := make([]int, len(docs))
	for i, d := range docs {
		if d.Source == pair.Candidate {
			labels[i] = 1
		}
	}

	return &Subset{
		Corpus: t.Name(),
		Pair:   pair,
		Docs:   docs,
		Labels: labels,
	}, nil
}

// restrictFolds re-keys a corpus-level fold assignment to the rows of a
// subset.  The assignment is computed once over the whole corpus, so the same
// document is always held out with the rest of its fold in every pairwise
// task that includes it.  A document without a fold means the assignment was
// built for a different corpus: a configuration error, not a data gap.
func restrictFolds(s *Subset, folds *corpus.FoldAssignment) ([]int, error) {
	rowFold := make([]int, s.Len())
	for i, d := range s.Docs {
		f, ok := folds.Fold(d.ID)
		if !ok {
			return nil, errors.Newf(errors.ErrCodeConfigInvalid,
				"document %q has no fold in the assignment for corpus %q", d.ID, s.Corpus)
		}
		rowFold[i] = f
	}
	return rowFold, nil
}
