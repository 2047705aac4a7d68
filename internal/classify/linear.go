package classify

import (
	"context"
	"math"

	"github.com/turtacn/stylobench/internal/corpus"
	"github.com/turtacn/stylobench/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/stylobench/pkg/errors"
)

// LinearConfig holds the tunables of the L1-penalised logistic family.
type LinearConfig struct {
	// PathLength is the number of penalty values on the geometric path from
	// the smallest all-zero-coefficient penalty down to its LambdaMinRatio
	// fraction.
	PathLength int `mapstructure:"path_length"`

	// LambdaMinRatio is the ratio of the smallest to the largest penalty on
	// the path.
	LambdaMinRatio float64 `mapstructure:"lambda_min_ratio"`

	// MaxIterations bounds the coordinate-descent sweeps per penalty value.
	MaxIterations int `mapstructure:"max_iterations"`

	// Tolerance is the convergence threshold on the largest parameter change
	// within one sweep.
	Tolerance float64 `mapstructure:"tolerance"`
}

func (c LinearConfig) withDefaults() LinearConfig {
	if c.PathLength <= 0 {
		c.PathLength = 50
	}
	if c.LambdaMinRatio <= 0 || c.LambdaMinRatio >= 1 {
		c.LambdaMinRatio = 0.01
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 500
	}
	if c.Tolerance <= 0 {
		c.Tolerance = 1e-7
	}
	return c
}

// LassoLogisticTrainer fits an L1-penalised logistic regression over a path
// of penalty strengths and selects the penalty by fold-based cross-validation
// with the one-standard-error rule: the largest penalty whose mean CV error
// is within one standard error of the minimum.  The rule maximizes sparsity
// subject to near-optimal accuracy; substituting plain minimum-error
// selection changes numerical results and is deliberately not offered.
type LassoLogisticTrainer struct {
	cfg    LinearConfig
	logger logging.Logger
}

// NewLassoLogisticTrainer constructs the trainer with defaults applied.
func NewLassoLogisticTrainer(cfg LinearConfig, log logging.Logger) *LassoLogisticTrainer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &LassoLogisticTrainer{cfg: cfg.withDefaults(), logger: log.Named("linear")}
}

// Family implements Trainer.
func (tr *LassoLogisticTrainer) Family() ModelFamily { return FamilyLinear }

// Train implements Trainer.  The fold assignment is mandatory for this
// family: hyperparameter selection reuses the corpus-level folds so that the
// same document is always held out together with the rest of its fold across
// every candidate-vs-baseline fit that includes it.
func (tr *LassoLogisticTrainer) Train(ctx context.Context, s *Subset, folds *corpus.FoldAssignment) (BinaryClassifier, error) {
	if folds == nil {
		return nil, errors.InvalidInput("linear training requires a fold assignment")
	}
	if err := validateForTraining(s, folds.K()); err != nil {
		return nil, err
	}
	rowFold, err := restrictFolds(s, folds)
	if err != nil {
		return nil, err
	}

	x, y := designMatrix(s)
	lambdas := lambdaPath(x, y, tr.cfg.PathLength, tr.cfg.LambdaMinRatio)

	cvMean, cvSE, usedFolds, skipped, err := tr.crossValidate(ctx, x, y, rowFold, folds.K(), lambdas)
	if err != nil {
		return nil, err
	}
	chosen := chooseOneSE(cvMean, cvSE)

	std := standardize(x)
	path := fitPath(std.values, y, lambdas, tr.cfg)
	point := path[chosen]

	model := &linearModel{
		pair:    s.Pair,
		mean:    std.mean,
		scale:   std.scale,
		b0:      point.b0,
		beta:    point.beta,
		lambda:  lambdas[chosen],
		cvError: cvMean[chosen],
	}

	tr.logger.Debug("penalty selected",
		logging.String("corpus", s.Corpus),
		logging.String("candidate", s.Pair.Candidate),
		logging.Float64("lambda", model.lambda),
		logging.Float64("cv_error", model.cvError),
		logging.Int("nonzero", model.NonzeroCoefficients()),
		logging.Int("folds_used", usedFolds),
		logging.Int("folds_skipped", skipped),
	)
	return model, nil
}

// crossValidate refits the penalty path with each fold held out in turn and
// returns the per-penalty mean misclassification error and its standard
// error across folds.  A fold whose training or held-out side carries a
// single class cannot produce a valid fit; its contribution is excluded from
// the mean rather than propagated as a fatal error.  Only when every fold is
// degenerate does the trainer fail.
func (tr *LassoLogisticTrainer) crossValidate(
	ctx context.Context,
	x [][]float64,
	y []float64,
	rowFold []int,
	k int,
	lambdas []float64,
) (mean, se []float64, used, skipped int, err error) {
	l := len(lambdas)
	var foldErrs [][]float64

	for f := 1; f <= k; f++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, 0, 0, errors.Wrap(err, errors.ErrCodeInternal, "cross-validation aborted")
		}

		var trainIdx, testIdx []int
		for i, rf := range rowFold {
			if rf == f {
				testIdx = append(testIdx, i)
			} else {
				trainIdx = append(trainIdx, i)
			}
		}
		if degenerateSplit(y, trainIdx) || degenerateSplit(y, testIdx) {
			skipped++
			continue
		}

		xTrain := make([][]float64, len(trainIdx))
		yTrain := make([]float64, len(trainIdx))
		for i, idx := range trainIdx {
			xTrain[i] = x[idx]
			yTrain[i] = y[idx]
		}

		std := standardize(xTrain)
		path := fitPath(std.values, yTrain, lambdas, tr.cfg)

		errs := make([]float64, l)
		for j, point := range path {
			wrong := 0
			for _, idx := range testIdx {
				pred := 0
				if point.score(x[idx], std.mean, std.scale) > 0 {
					pred = 1
				}
				if float64(pred) != y[idx] {
					wrong++
				}
			}
			errs[j] = float64(wrong) / float64(len(testIdx))
		}
		foldErrs = append(foldErrs, errs)
	}

	used = len(foldErrs)
	if used == 0 {
		return nil, nil, 0, skipped, errors.New(errors.ErrCodeNumericInstability,
			"every cross-validation fold was degenerate")
	}

	mean = make([]float64, l)
	se = make([]float64, l)
	for j := 0; j < l; j++ {
		var sum float64
		for _, errs := range foldErrs {
			sum += errs[j]
		}
		mean[j] = sum / float64(used)

		var sq float64
		for _, errs := range foldErrs {
			d := errs[j] - mean[j]
			sq += d * d
		}
		if used > 1 {
			se[j] = math.Sqrt(sq/float64(used-1)) / math.Sqrt(float64(used))
		}
	}
	return mean, se, used, skipped, nil
}

// chooseOneSE applies the one-standard-error rule over a penalty path in
// descending order: find the minimum mean CV error, then return the first
// (largest-penalty) index whose mean error is within one standard error of
// that minimum.  The chosen penalty is therefore always greater than or equal
// to the minimum-error penalty.
func chooseOneSE(mean, se []float64) int {
	jmin := 0
	for j := 1; j < len(mean); j++ {
		if mean[j] < mean[jmin] {
			jmin = j
		}
	}
	threshold := mean[jmin] + se[jmin]
	for j := 0; j <= jmin; j++ {
		if mean[j] <= threshold+1e-12 {
			return j
		}
	}
	return jmin
}

// degenerateSplit reports whether the rows at idx carry fewer than two
// distinct classes.
func degenerateSplit(y []float64, idx []int) bool {
	if len(idx) == 0 {
		return true
	}
	first := y[idx[0]]
	for _, i := range idx[1:] {
		if y[i] != first {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Penalised path fitting
// ---------------------------------------------------------------------------

type standardized struct {
	values [][]float64
	mean   []float64
	scale  []float64
}

// standardize centers and scales each column to unit variance.  A constant
// column keeps scale 1 so it contributes a clean zero after centering.
func standardize(x [][]float64) *standardized {
	n := len(x)
	d := len(x[0])
	mean := make([]float64, d)
	scale := make([]float64, d)

	for j := 0; j < d; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += x[i][j]
		}
		mean[j] = sum / float64(n)

		var sq float64
		for i := 0; i < n; i++ {
			diff := x[i][j] - mean[j]
			sq += diff * diff
		}
		scale[j] = math.Sqrt(sq / float64(n))
		if scale[j] == 0 {
			scale[j] = 1
		}
	}

	values := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, d)
		for j := 0; j < d; j++ {
			row[j] = (x[i][j] - mean[j]) / scale[j]
		}
		values[i] = row
	}
	return &standardized{values: values, mean: mean, scale: scale}
}

// lambdaPath builds the descending geometric penalty sequence.  The first
// value is the smallest penalty at which every coefficient is zero, computed
// on the standardized scale.
func lambdaPath(x [][]float64, y []float64, length int, minRatio float64) []float64 {
	std := standardize(x)
	n := len(y)

	var ybar float64
	for _, v := range y {
		ybar += v
	}
	ybar /= float64(n)

	var lmax float64
	for j := 0; j < len(std.mean); j++ {
		var g float64
		for i := 0; i < n; i++ {
			g += std.values[i][j] * (y[i] - ybar)
		}
		g = math.Abs(g) / float64(n)
		if g > lmax {
			lmax = g
		}
	}
	if lmax < 1e-10 {
		// All columns uninformative; any positive path keeps the fit at the
		// intercept-only model.
		lmax = 1e-10
	}

	lambdas := make([]float64, length)
	if length == 1 {
		lambdas[0] = lmax
		return lambdas
	}
	ratio := math.Pow(minRatio, 1/float64(length-1))
	lambdas[0] = lmax
	for i := 1; i < length; i++ {
		lambdas[i] = lambdas[i-1] * ratio
	}
	return lambdas
}

type pathPoint struct {
	b0   float64
	beta []float64
}

// score returns the linear predictor for a raw feature vector given the
// training-side standardization.
func (p pathPoint) score(features, mean, scale []float64) float64 {
	z := p.b0
	for j, b := range p.beta {
		if b != 0 {
			z += b * (features[j] - mean[j]) / scale[j]
		}
	}
	return z
}

// fitPath runs warm-started coordinate descent down the penalty path on
// standardized data.  Each coordinate update minimises the quadratic
// majorization of the logistic loss with curvature bound 1/4 plus the L1
// penalty (soft-thresholding); the intercept is unpenalised.
func fitPath(xs [][]float64, y []float64, lambdas []float64, cfg LinearConfig) []pathPoint {
	const w = 0.25

	n := len(xs)
	d := len(xs[0])

	colSq := make([]float64, d)
	for j := 0; j < d; j++ {
		var sq float64
		for i := 0; i < n; i++ {
			sq += xs[i][j] * xs[i][j]
		}
		colSq[j] = sq / float64(n)
		if colSq[j] == 0 {
			colSq[j] = 1
		}
	}

	var ybar float64
	for _, v := range y {
		ybar += v
	}
	ybar /= float64(n)
	// Intercept starts at the log-odds of the base rate, clamped away from
	// the boundary for one-class safety (callers exclude that case anyway).
	b0 := math.Log(clamp(ybar, 1e-6, 1-1e-6) / (1 - clamp(ybar, 1e-6, 1-1e-6)))
	beta := make([]float64, d)
	eta := make([]float64, n)
	for i := range eta {
		eta[i] = b0
	}

	out := make([]pathPoint, len(lambdas))
	for li, lambda := range lambdas {
		for it := 0; it < cfg.MaxIterations; it++ {
			maxDelta := 0.0

			for j := 0; j < d; j++ {
				var g float64
				for i := 0; i < n; i++ {
					g += xs[i][j] * (y[i] - sigmoid(eta[i]))
				}
				g /= float64(n)

				u := w*colSq[j]*beta[j] + g
				next := softThreshold(u, lambda) / (w * colSq[j])
				delta := next - beta[j]
				if delta != 0 {
					for i := 0; i < n; i++ {
						eta[i] += delta * xs[i][j]
					}
					beta[j] = next
				}
				if a := math.Abs(delta); a > maxDelta {
					maxDelta = a
				}
			}

			var g0 float64
			for i := 0; i < n; i++ {
				g0 += y[i] - sigmoid(eta[i])
			}
			g0 /= float64(n)
			d0 := g0 / w
			if d0 != 0 {
				b0 += d0
				for i := 0; i < n; i++ {
					eta[i] += d0
				}
			}
			if a := math.Abs(d0); a > maxDelta {
				maxDelta = a
			}

			if maxDelta < cfg.Tolerance {
				break
			}
		}

		betaCopy := make([]float64, d)
		copy(betaCopy, beta)
		out[li] = pathPoint{b0: b0, beta: betaCopy}
	}
	return out
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func softThreshold(u, lambda float64) float64 {
	switch {
	case u > lambda:
		return u - lambda
	case u < -lambda:
		return u + lambda
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ---------------------------------------------------------------------------
// Trained linear model
// ---------------------------------------------------------------------------

// linearModel is the fitted L1-logistic classifier at its one-standard-error
// penalty.  Prediction uses exactly that penalty's coefficients, never the
// rest of the path.
type linearModel struct {
	pair    LabelPair
	mean    []float64
	scale   []float64
	b0      float64
	beta    []float64
	lambda  float64
	cvError float64
}

func (m *linearModel) Family() ModelFamily { return FamilyLinear }
func (m *linearModel) Pair() LabelPair     { return m.pair }
func (m *linearModel) Dim() int            { return len(m.beta) }
func (m *linearModel) Complexity() float64 { return m.lambda }

// Predict returns 1 (candidate) when the posterior exceeds one half, which on
// the linear predictor scale is z > 0.  An exact zero resolves to the
// baseline, the first class in label order.
func (m *linearModel) Predict(features []float64) int {
	z := m.b0
	for j, b := range m.beta {
		if b != 0 {
			z += b * (features[j] - m.mean[j]) / m.scale[j]
		}
	}
	if z > 0 {
		return 1
	}
	return 0
}

// NonzeroCoefficients counts the active features at the chosen penalty.
func (m *linearModel) NonzeroCoefficients() int {
	n := 0
	for _, b := range m.beta {
		if b != 0 {
			n++
		}
	}
	return n
}

// CVError returns the mean cross-validated misclassification error at the
// chosen penalty.
func (m *linearModel) CVError() float64 { return m.cvError }
