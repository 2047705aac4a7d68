package corpus

import (
	"math/rand"
	"sort"

	"github.com/turtacn/stylobench/pkg/errors"
)

// DefaultFoldCount is the cross-validation fold count used by the reference
// evaluation.
const DefaultFoldCount = 10

// FoldAssignment maps every document id of one corpus to a fold in [1..K].
// It is computed once per corpus over the union of all documents regardless
// of source label, so the same document always lands in the same fold across
// every pairwise task that includes it.  Read-only after construction.
type FoldAssignment struct {
	k     int
	seed  int64
	folds map[string]int
}

// K returns the fold count.
func (a *FoldAssignment) K() int { return a.k }

// Seed returns the seed the assignment was built with.
func (a *FoldAssignment) Seed() int64 { return a.seed }

// Len returns the number of assigned documents.
func (a *FoldAssignment) Len() int { return len(a.folds) }

// Fold returns the fold of the given document id.
func (a *FoldAssignment) Fold(docID string) (int, bool) {
	f, ok := a.folds[docID]
	return f, ok
}

// AssignFolds produces a deterministic stratified fold assignment for every
// document in the table.  Within each genre the sequence [1..K,1..K,…]
// truncated to the genre's size is shuffled with the seeded RNG and assigned
// positionally over the genre's id-sorted documents, so fold sizes within a
// genre differ by at most one.  Independent per-document draws would not give
// that guarantee, which is why the balanced cyclic sequence is required.
//
// A genre with fewer than K documents still receives a valid assignment; some
// folds simply get zero documents from it.
func AssignFolds(t *Table, k int, seed int64) (*FoldAssignment, error) {
	if k < 2 {
		return nil, errors.Newf(errors.ErrCodeFoldCountInvalid, "fold count must be at least 2, got %d", k)
	}

	byGenre := make(map[string][]string)
	for _, d := range t.Documents() {
		byGenre[d.Genre] = append(byGenre[d.Genre], d.ID)
	}
	genres := make([]string, 0, len(byGenre))
	for g := range byGenre {
		genres = append(genres, g)
	}
	sort.Strings(genres)

	// One RNG for the whole assignment: reseeding per genre or per candidate
	// would break the reproducibility contract shared by both model families.
	rng := rand.New(rand.NewSource(seed))

	folds := make(map[string]int, t.Len())
	for _, g := range genres {
		ids := byGenre[g]
		sort.Strings(ids)

		seq := make([]int, len(ids))
		for i := range seq {
			seq[i] = i%k + 1
		}
		rng.Shuffle(len(seq), func(i, j int) { seq[i], seq[j] = seq[j], seq[i] })

		for i, id := range ids {
			folds[id] = seq[i]
		}
	}

	return &FoldAssignment{k: k, seed: seed, folds: folds}, nil
}

// GenreBalance reports, for each genre in the table, how many documents each
// fold received (index 0 = fold 1).  Used by the folds CLI subcommand to
// audit stratification.
func (a *FoldAssignment) GenreBalance(t *Table) map[string][]int {
	out := make(map[string][]int)
	for _, d := range t.Documents() {
		f, ok := a.folds[d.ID]
		if !ok {
			continue
		}
		if _, seen := out[d.Genre]; !seen {
			out[d.Genre] = make([]int, a.k)
		}
		out[d.Genre][f-1]++
	}
	return out
}
