package sweep

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/stylobench/internal/classify"
)

// EvaluationRecord is one atomic accuracy measurement: a classifier of one
// family, trained against the baseline in one corpus, scored on one corpus.
// Four records per candidate per family make up a wide Row.
type EvaluationRecord struct {
	Candidate   string               `json:"candidate"`
	Family      classify.ModelFamily `json:"family"`
	TrainCorpus string               `json:"train_corpus"`
	TestCorpus  string               `json:"test_corpus"`
	Accuracy    float64              `json:"accuracy"`
	Complexity  float64              `json:"complexity"`
}

// Cell is one accuracy slot of a wide row.  A cell left empty by a task-local
// failure carries the reason instead of a value.
type Cell struct {
	Accuracy float64 `json:"accuracy"`
	OK       bool    `json:"ok"`
	Reason   string  `json:"reason,omitempty"`

	// Complexity is the selected hyperparameter of the classifier that
	// produced this cell: the penalty for the linear family, the per-split
	// feature count for the ensemble.
	Complexity float64 `json:"complexity,omitempty"`
}

// Row is the wide per-candidate record: in-sample accuracy on each corpus and
// cross-corpus accuracy in both directions, for one model family.  Group is a
// presentation attribute derived from the candidate name alone; it never
// feeds back into modeling.
type Row struct {
	Candidate string               `json:"candidate"`
	Group     string               `json:"group"`
	Family    classify.ModelFamily `json:"family"`

	TrainA  Cell `json:"train_a"`  // trained on A, tested on A
	CrossAB Cell `json:"cross_ab"` // trained on A, tested on B
	TrainB  Cell `json:"train_b"`  // trained on B, tested on B
	CrossBA Cell `json:"cross_ba"` // trained on B, tested on A
}

// MeanCross returns the mean of the available cross-corpus accuracies.  The
// second return is false when neither direction produced a value.
func (r Row) MeanCross() (float64, bool) {
	sum, n := 0.0, 0
	for _, c := range []Cell{r.CrossAB, r.CrossBA} {
		if c.OK {
			sum += c.Accuracy
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Complete reports whether every cell of the row holds a value.
func (r Row) Complete() bool {
	return r.TrainA.OK && r.CrossAB.OK && r.TrainB.OK && r.CrossBA.OK
}

// Table is the final sweep output: one row per (candidate, family), sorted by
// descending mean cross-corpus accuracy with incomplete rows last.
type Table struct {
	RunID     string    `json:"run_id"`
	CorpusA   string    `json:"corpus_a"`
	CorpusB   string    `json:"corpus_b"`
	Baseline  string    `json:"baseline"`
	Seed      int64     `json:"seed"`
	FoldCount int       `json:"fold_count"`
	StartedAt time.Time `json:"started_at"`
	Rows      []Row     `json:"rows"`
}

// Records flattens the wide table back into atomic evaluation records, one
// per filled cell.  The persistence layer stores this long form.
func (t *Table) Records() []EvaluationRecord {
	var out []EvaluationRecord
	for _, r := range t.Rows {
		cells := []struct {
			cell        Cell
			train, test string
		}{
			{r.TrainA, t.CorpusA, t.CorpusA},
			{r.CrossAB, t.CorpusA, t.CorpusB},
			{r.TrainB, t.CorpusB, t.CorpusB},
			{r.CrossBA, t.CorpusB, t.CorpusA},
		}
		for _, c := range cells {
			if !c.cell.OK {
				continue
			}
			out = append(out, EvaluationRecord{
				Candidate:   r.Candidate,
				Family:      r.Family,
				TrainCorpus: c.train,
				TestCorpus:  c.test,
				Accuracy:    c.cell.Accuracy,
				Complexity:  c.cell.Complexity,
			})
		}
	}
	return out
}

// sortRows orders rows by descending mean cross-corpus accuracy.  Rows with
// no cross-corpus value sort after all rows that have one; ties break on
// candidate name then family so the table is fully deterministic.
func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		mi, iok := rows[i].MeanCross()
		mj, jok := rows[j].MeanCross()
		switch {
		case iok && !jok:
			return true
		case !iok && jok:
			return false
		case iok && jok && mi != mj:
			return mi > mj
		}
		if rows[i].Candidate != rows[j].Candidate {
			return rows[i].Candidate < rows[j].Candidate
		}
		return rows[i].Family < rows[j].Family
	})
}

// Grouping labels derived from candidate source names.
const (
	GroupHuman            = "human"
	GroupInstructionTuned = "instruction-tuned"
	GroupLarge            = "large"
	GroupBase             = "base"
)

// largeSizeThresholdB is the parameter-count suffix (in billions) at or above
// which a base model is presented as a single large model.
const largeSizeThresholdB = 30

// DeriveGroup maps a candidate source name to its presentation group.  It is
// a pure function of the label string: human reference sources first, then
// instruction-tuning markers, then a parameter-size suffix such as "30b" or
// "x70b", and "base" for everything else.  Markers take precedence over size
// so an instruction-tuned 70b model groups with the tuned family.
func DeriveGroup(candidate string) string {
	l := strings.ToLower(candidate)

	if strings.HasPrefix(l, "human") {
		return GroupHuman
	}
	if strings.Contains(l, "instruct") || strings.Contains(l, "chat") {
		return GroupInstructionTuned
	}
	// "it" appears only as a standalone suffix token ("gemma-7b-it").
	for _, tok := range splitLabel(l) {
		if tok == "it" {
			return GroupInstructionTuned
		}
	}
	if size, ok := sizeSuffixB(l); ok && size >= largeSizeThresholdB {
		return GroupLarge
	}
	return GroupBase
}

// splitLabel breaks a source label on the usual separators.
func splitLabel(l string) []string {
	return strings.FieldsFunc(l, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == ':'
	})
}

// sizeSuffixB extracts the largest "<digits>b" token from a label, in
// billions of parameters.  "7b" yields 7; "8x22b" yields 22; a label without
// such a token yields false.
func sizeSuffixB(l string) (int, bool) {
	best, found := 0, false
	for _, tok := range splitLabel(l) {
		if !strings.HasSuffix(tok, "b") {
			continue
		}
		digits := strings.TrimSuffix(tok, "b")
		if i := strings.LastIndexAny(digits, "x*"); i >= 0 {
			digits = digits[i+1:]
		}
		if digits == "" {
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		if n > best {
			best, found = n, true
		}
	}
	return best, found
}
