package sweep

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/stylobench/internal/classify"
	"github.com/turtacn/stylobench/internal/corpus"
	"github.com/turtacn/stylobench/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/stylobench/pkg/errors"
)

// Params configures an Aggregator run.
type Params struct {
	CorpusA *corpus.Table
	CorpusB *corpus.Table

	// Baseline is the source every candidate is discriminated against.  It
	// must be present in both corpora.
	Baseline string

	// Excluded sources never appear as candidates; they stay in the corpora
	// as background documents excluded from every pairwise subset.
	Excluded []string

	FoldCount int
	Seed      int64

	// Workers bounds the pool; zero means one worker per CPU.
	Workers int

	// Trainers lists the model families to sweep.  Empty means both built-in
	// families with default configurations.
	Trainers []classify.Trainer

	Logger  logging.Logger
	Metrics SweepMetrics
}

// Aggregator runs the full candidate sweep: every candidate source against
// the baseline, both training directions, every model family, in-sample and
// cross-corpus evaluation, merged into one wide table.
type Aggregator struct {
	corpusA  *corpus.Table
	corpusB  *corpus.Table
	baseline string
	excluded map[string]bool

	foldCount int
	seed      int64
	workers   int
	trainers  []classify.Trainer

	logger  logging.Logger
	metrics SweepMetrics
}

// NewAggregator validates the run setup and returns a ready aggregator.
// Schema mismatches between the two corpora and an absent baseline are
// configuration errors caught here, before any training starts.
func NewAggregator(p Params) (*Aggregator, error) {
	if p.CorpusA == nil || p.CorpusB == nil {
		return nil, errors.InvalidInput("two corpora are required")
	}
	if err := corpus.CheckSchema(p.CorpusA, p.CorpusB); err != nil {
		return nil, err
	}
	if p.Baseline == "" {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "baseline source is required")
	}
	for _, t := range []*corpus.Table{p.CorpusA, p.CorpusB} {
		if !t.HasSource(p.Baseline) {
			return nil, errors.Newf(errors.ErrCodeLabelAbsent,
				"baseline %q not present in corpus %q", p.Baseline, t.Name())
		}
	}
	if p.FoldCount == 0 {
		p.FoldCount = corpus.DefaultFoldCount
	}
	if p.Logger == nil {
		p.Logger = logging.NewNopLogger()
	}
	if p.Metrics == nil {
		p.Metrics = NewNoopSweepMetrics()
	}
	if len(p.Trainers) == 0 {
		p.Trainers = []classify.Trainer{
			classify.NewLassoLogisticTrainer(classify.LinearConfig{}, p.Logger),
			classify.NewForestTrainer(classify.ForestConfig{Seed: p.Seed}, p.Logger),
		}
	}

	excluded := make(map[string]bool, len(p.Excluded))
	for _, s := range p.Excluded {
		excluded[s] = true
	}

	return &Aggregator{
		corpusA:   p.CorpusA,
		corpusB:   p.CorpusB,
		baseline:  p.Baseline,
		excluded:  excluded,
		foldCount: p.FoldCount,
		seed:      p.Seed,
		workers:   p.Workers,
		trainers:  p.Trainers,
		logger:    p.Logger.Named("sweep"),
		metrics:   p.Metrics,
	}, nil
}

// Candidates returns the sorted union of the sources of both corpora, minus
// the baseline and the excluded background sources.  A candidate present in
// only one corpus is still swept; the direction it cannot serve becomes a
// missing cell.
func (a *Aggregator) Candidates() []string {
	seen := map[string]bool{}
	for _, t := range []*corpus.Table{a.corpusA, a.corpusB} {
		for _, s := range t.Sources() {
			if s == a.baseline || a.excluded[s] {
				continue
			}
			seen[s] = true
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// sweepTask is one unit of pool work: a single (candidate, family) pair.
type sweepTask struct {
	candidate string
	trainer   classify.Trainer
}

// Run executes the whole sweep.  Task-local failures (a candidate too small
// for the fold count, a degenerate subset, a candidate missing from one
// corpus) become missing cells; configuration failures abort the run.
func (a *Aggregator) Run(ctx context.Context) (*Table, error) {
	started := time.Now()

	foldsA, err := corpus.AssignFolds(a.corpusA, a.foldCount, a.seed)
	if err != nil {
		return nil, err
	}
	foldsB, err := corpus.AssignFolds(a.corpusB, a.foldCount, a.seed)
	if err != nil {
		return nil, err
	}

	candidates := a.Candidates()
	tasks := make([]sweepTask, 0, len(candidates)*len(a.trainers))
	for _, c := range candidates {
		for _, tr := range a.trainers {
			tasks = append(tasks, sweepTask{candidate: c, trainer: tr})
		}
	}

	a.logger.Info("sweep starting",
		logging.String("corpus_a", a.corpusA.Name()),
		logging.String("corpus_b", a.corpusB.Name()),
		logging.String("baseline", a.baseline),
		logging.Int("candidates", len(candidates)),
		logging.Int("tasks", len(tasks)),
		logging.Int("folds", a.foldCount),
		logging.Int64("seed", a.seed),
	)

	results := runPool(ctx, a.workers, tasks, a.metrics,
		func(ctx context.Context, t sweepTask) (Row, error) {
			return a.runTask(ctx, t, foldsA, foldsB)
		})

	rows := make([]Row, 0, len(results))
	for i, r := range results {
		family := tasks[i].trainer.Family().String()
		if r.err != nil {
			a.metrics.RecordTask(ctx, family, TaskStatusError, r.durationMs)
			return nil, r.err
		}
		status := TaskStatusOK
		if !r.value.Complete() {
			status = TaskStatusMissing
		}
		a.metrics.RecordTask(ctx, family, status, r.durationMs)
		rows = append(rows, r.value)
	}
	sortRows(rows)

	elapsed := float64(time.Since(started).Microseconds()) / 1000.0
	a.metrics.RecordSweep(ctx, len(candidates), len(rows), elapsed)
	a.logger.Info("sweep finished",
		logging.Int("rows", len(rows)),
		logging.Duration("elapsed", time.Since(started)),
	)

	return &Table{
		RunID:     uuid.NewString(),
		CorpusA:   a.corpusA.Name(),
		CorpusB:   a.corpusB.Name(),
		Baseline:  a.baseline,
		Seed:      a.seed,
		FoldCount: a.foldCount,
		StartedAt: started,
		Rows:      rows,
	}, nil
}

// runTask produces the wide row for one (candidate, family) pair: train on A
// test on A and B, then the symmetric direction.
func (a *Aggregator) runTask(ctx context.Context, t sweepTask, foldsA, foldsB *corpus.FoldAssignment) (Row, error) {
	row := Row{
		Candidate: t.candidate,
		Group:     DeriveGroup(t.candidate),
		Family:    t.trainer.Family(),
	}

	var err error
	row.TrainA, row.CrossAB, err = a.runDirection(ctx, t, a.corpusA, foldsA, a.corpusB)
	if err != nil {
		return Row{}, err
	}
	row.TrainB, row.CrossBA, err = a.runDirection(ctx, t, a.corpusB, foldsB, a.corpusA)
	if err != nil {
		return Row{}, err
	}
	return row, nil
}

// runDirection trains one classifier in the train corpus and scores it both
// in-sample and on the other corpus.  Recoverable failures fill the cells
// with a reason; anything else propagates and aborts the sweep.
func (a *Aggregator) runDirection(
	ctx context.Context,
	t sweepTask,
	train *corpus.Table,
	folds *corpus.FoldAssignment,
	test *corpus.Table,
) (inSample, cross Cell, err error) {
	pair := classify.LabelPair{Baseline: a.baseline, Candidate: t.candidate}
	family := t.trainer.Family().String()

	subset, err := classify.BuildPairwiseTask(train, pair)
	if err != nil {
		if reason, ok := a.recoverable(err); ok {
			a.missing(ctx, t, train.Name(), reason)
			return Cell{Reason: reason}, Cell{Reason: reason}, nil
		}
		return Cell{}, Cell{}, err
	}

	model, err := t.trainer.Train(ctx, subset, folds)
	if err != nil {
		if reason, ok := a.recoverable(err); ok {
			a.missing(ctx, t, train.Name(), reason)
			return Cell{Reason: reason}, Cell{Reason: reason}, nil
		}
		return Cell{}, Cell{}, err
	}

	ev, err := classify.Evaluate(model, subset)
	if err != nil {
		return Cell{}, Cell{}, err
	}
	inSample = Cell{Accuracy: ev.Accuracy, OK: true, Complexity: model.Complexity()}

	testSubset, err := classify.BuildPairwiseTask(test, pair)
	if err != nil {
		if reason, ok := a.recoverable(err); ok {
			a.missing(ctx, t, test.Name(), reason)
			return inSample, Cell{Reason: reason}, nil
		}
		return Cell{}, Cell{}, err
	}
	ev, err = classify.Evaluate(model, testSubset)
	if err != nil {
		return Cell{}, Cell{}, err
	}
	cross = Cell{Accuracy: ev.Accuracy, OK: true, Complexity: model.Complexity()}

	a.logger.Debug("direction evaluated",
		logging.String("candidate", t.candidate),
		logging.String("family", family),
		logging.String("train", train.Name()),
		logging.Float64("in_sample", inSample.Accuracy),
		logging.Float64("cross", cross.Accuracy),
		logging.Float64("complexity", model.Complexity()),
	)
	return inSample, cross, nil
}

// recoverable reports whether an error costs only this task's cells.  A
// candidate missing from one corpus is a label-absence error at task level
// rather than run level: the aggregator has already verified the baseline, so
// the absence names the candidate.
func (a *Aggregator) recoverable(err error) (string, bool) {
	if errors.IsTaskLocal(err) || errors.IsCode(err, errors.ErrCodeLabelAbsent) {
		return string(errors.GetCode(err)), true
	}
	return "", false
}

func (a *Aggregator) missing(ctx context.Context, t sweepTask, corpusName, reason string) {
	a.metrics.RecordMissingRow(ctx, t.candidate, t.trainer.Family().String(), reason)
	a.logger.Warn("task produced no accuracy cell",
		logging.String("candidate", t.candidate),
		logging.String("family", t.trainer.Family().String()),
		logging.String("corpus", corpusName),
		logging.String("reason", reason),
	)
}
