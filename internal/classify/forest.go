package classify

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/turtacn/stylobench/internal/corpus"
	"github.com/turtacn/stylobench/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/stylobench/pkg/errors"
)

// ForestConfig holds the tunables of the tree-ensemble family.
type ForestConfig struct {
	// Trees is the ensemble size per fitted forest.
	Trees int `mapstructure:"trees"`

	// MtryGrid lists the per-split feature-subsample counts to select among
	// by out-of-bag error.  Empty means the default grid around sqrt(D).
	MtryGrid []int `mapstructure:"mtry_grid"`

	// MinLeaf is the minimum documents per leaf.
	MinLeaf int `mapstructure:"min_leaf"`

	// Seed drives bootstrap sampling and feature subsampling.  The sweep
	// derives it from the run seed once; per-candidate reseeding is the
	// caller's responsibility to avoid.
	Seed int64 `mapstructure:"seed"`
}

func (c ForestConfig) withDefaults() ForestConfig {
	if c.Trees <= 0 {
		c.Trees = 300
	}
	if c.MinLeaf <= 0 {
		c.MinLeaf = 1
	}
	if len(c.MtryGrid) > 0 {
		// Selection uses strict improvement, so ascending order is what makes
		// ties resolve to the smallest feature count.
		grid := append([]int(nil), c.MtryGrid...)
		sort.Ints(grid)
		c.MtryGrid = grid
	}
	return c
}

// defaultMtryGrid is the selection grid used when none is configured:
// half, once, and twice the square root of the dimensionality.
func defaultMtryGrid(dim int) []int {
	m := int(math.Round(math.Sqrt(float64(dim))))
	if m < 1 {
		m = 1
	}
	grid := []int{m / 2, m, 2 * m}
	out := grid[:0]
	seen := map[int]struct{}{}
	for _, g := range grid {
		if g < 1 {
			g = 1
		}
		if g > dim {
			g = dim
		}
		if _, dup := seen[g]; !dup {
			seen[g] = struct{}{}
			out = append(out, g)
		}
	}
	sort.Ints(out)
	return out
}

// ForestTrainer fits an ensemble of randomized decision trees on bootstrap
// samples with feature subsampling at each split.  Complexity (the per-split
// feature count) is selected by the ensemble's internal out-of-bag error
// estimate; this family never consults the external fold assignment, and its
// selection must not be unified with the linear family's cross-validation.
type ForestTrainer struct {
	cfg    ForestConfig
	logger logging.Logger
}

// NewForestTrainer constructs the trainer with defaults applied.
func NewForestTrainer(cfg ForestConfig, log logging.Logger) *ForestTrainer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ForestTrainer{cfg: cfg.withDefaults(), logger: log.Named("forest")}
}

// Family implements Trainer.
func (tr *ForestTrainer) Family() ModelFamily { return FamilyForest }

// Train implements Trainer.  The fold assignment is used only for the
// minimum-class-size check, keeping the aggregate table consistent across
// families: a candidate too small for the linear family is rejected here with
// the same threshold.
func (tr *ForestTrainer) Train(ctx context.Context, s *Subset, folds *corpus.FoldAssignment) (BinaryClassifier, error) {
	minClass := 2
	if folds != nil {
		minClass = folds.K()
	}
	if err := validateForTraining(s, minClass); err != nil {
		return nil, err
	}

	x := make([][]float64, s.Len())
	for i, d := range s.Docs {
		x[i] = d.Features
	}
	y := s.Labels

	grid := tr.cfg.MtryGrid
	if len(grid) == 0 {
		grid = defaultMtryGrid(s.Dim())
	}

	var (
		best    *forestModel
		bestOOB = math.Inf(1)
	)
	for gi, mtry := range grid {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "ensemble training aborted")
		}
		if mtry < 1 || mtry > s.Dim() {
			return nil, errors.Newf(errors.ErrCodeConfigInvalid,
				"mtry %d outside [1, %d]", mtry, s.Dim())
		}

		rng := rand.New(rand.NewSource(tr.cfg.Seed + int64(gi)))
		trees := growForest(x, y, tr.cfg.Trees, treeConfig{mtry: mtry, minLeaf: tr.cfg.MinLeaf}, rng)

		oob, err := outOfBagError(trees, x, y)
		if err != nil {
			return nil, err
		}
		// Strict improvement keeps the tie at the smallest feature count.
		if oob < bestOOB {
			bestOOB = oob
			best = &forestModel{
				pair:     s.Pair,
				dim:      s.Dim(),
				trees:    trees,
				mtry:     mtry,
				oobError: oob,
			}
		}
	}

	tr.logger.Debug("out-of-bag selection complete",
		logging.String("corpus", s.Corpus),
		logging.String("candidate", s.Pair.Candidate),
		logging.Int("mtry", best.mtry),
		logging.Float64("oob_error", best.oobError),
		logging.Int("trees", len(best.trees)),
	)
	return best, nil
}

// baggedTree pairs a grown tree with its bootstrap membership so out-of-bag
// rows can be identified afterwards.
type baggedTree struct {
	root  *treeNode
	inBag []bool
}

// growForest fits nTrees randomized trees, each on a bootstrap sample of the
// rows of x.
func growForest(x [][]float64, y []int, nTrees int, cfg treeConfig, rng *rand.Rand) []baggedTree {
	n := len(x)
	trees := make([]baggedTree, nTrees)
	for t := 0; t < nTrees; t++ {
		inBag := make([]bool, n)
		idx := make([]int, n)
		for i := 0; i < n; i++ {
			r := rng.Intn(n)
			idx[i] = r
			inBag[r] = true
		}
		trees[t] = baggedTree{
			root:  growTree(x, y, idx, cfg, rng),
			inBag: inBag,
		}
	}
	return trees
}

// outOfBagError estimates the ensemble's generalization error internally:
// each row is scored only by the trees whose bootstrap sample excluded it.
// Rows that every tree sampled are skipped; if no row has an out-of-bag vote
// the estimate is undefined and reported as numeric instability.
func outOfBagError(trees []baggedTree, x [][]float64, y []int) (float64, error) {
	covered, wrong := 0, 0
	for i := range x {
		var sum [2]float64
		votes := 0
		for _, bt := range trees {
			if bt.inBag[i] {
				continue
			}
			p := bt.root.proba(x[i])
			sum[0] += p[0]
			sum[1] += p[1]
			votes++
		}
		if votes == 0 {
			continue
		}
		covered++
		if argmax2(sum) != y[i] {
			wrong++
		}
	}
	if covered == 0 {
		return 0, errors.New(errors.ErrCodeNumericInstability,
			"no out-of-bag observations; ensemble too small")
	}
	return float64(wrong) / float64(covered), nil
}

// argmax2 returns the index of the larger probability mass, resolving an
// exact tie to the first class in label order.
func argmax2(p [2]float64) int {
	if p[1] > p[0] {
		return 1
	}
	return 0
}

// forestModel is the fitted ensemble at its out-of-bag-selected feature
// count.  Prediction averages per-class probability estimates over all trees
// and takes the arg-max.
type forestModel struct {
	pair     LabelPair
	dim      int
	trees    []baggedTree
	mtry     int
	oobError float64
}

func (m *forestModel) Family() ModelFamily { return FamilyForest }
func (m *forestModel) Pair() LabelPair     { return m.pair }
func (m *forestModel) Dim() int            { return m.dim }
func (m *forestModel) Complexity() float64 { return float64(m.mtry) }

// OOBError returns the selected forest's internal error estimate.
func (m *forestModel) OOBError() float64 { return m.oobError }

func (m *forestModel) Predict(features []float64) int {
	var sum [2]float64
	for _, bt := range m.trees {
		p := bt.root.proba(features)
		sum[0] += p[0]
		sum[1] += p[1]
	}
	return argmax2(sum)
}
