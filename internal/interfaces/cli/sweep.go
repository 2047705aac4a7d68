package cli

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/turtacn/stylobench/internal/classify"
	"github.com/turtacn/stylobench/internal/config"
	"github.com/turtacn/stylobench/internal/corpus"
	"github.com/turtacn/stylobench/internal/infrastructure/database/postgres"
	"github.com/turtacn/stylobench/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/stylobench/internal/sweep"
)

// newSweepCmd builds the sweep subcommand: the full candidate-by-family
// evaluation over both corpora.
func newSweepCmd() *cobra.Command {
	var noStore bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the full candidate evaluation sweep and print the result table",
		Long: "Loads both corpus feature tables, assigns stratified folds, trains a\n" +
			"pairwise classifier per candidate, direction, and model family, and\n" +
			"prints the accuracy table ranked by mean cross-corpus accuracy.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runSweep(cmd, cliCtx, noStore)
		},
	}

	cmd.Flags().BoolVar(&noStore, "no-store", false, "skip persisting results even when the store is enabled")
	return cmd
}

func runSweep(cmd *cobra.Command, cliCtx *CLIContext, noStore bool) error {
	cfg := cliCtx.Config
	log := cliCtx.Logger.Named("sweep")

	schema := corpus.IDSchema{
		GenreSep:  cfg.Schema.GenreSep,
		SourceSep: cfg.Schema.SourceSep,
	}

	tableA, err := corpus.LoadCSV(cfg.CorpusA.Path, cfg.CorpusA.Name, schema)
	if err != nil {
		return err
	}
	tableB, err := corpus.LoadCSV(cfg.CorpusB.Path, cfg.CorpusB.Name, schema)
	if err != nil {
		return err
	}
	log.Info("corpora loaded",
		logging.String("corpus_a", tableA.Name()),
		logging.Int("docs_a", tableA.Len()),
		logging.String("corpus_b", tableB.Name()),
		logging.Int("docs_b", tableB.Len()),
	)

	metrics := sweep.NewNoopSweepMetrics()
	if cfg.Metrics.Enabled {
		metrics, err = sweep.NewPrometheusSweepMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
	}

	agg, err := sweep.NewAggregator(sweep.Params{
		CorpusA:   tableA,
		CorpusB:   tableB,
		Baseline:  cfg.Labels.Baseline,
		Excluded:  cfg.Labels.Excluded,
		FoldCount: cfg.Folds.Count,
		Seed:      cfg.Folds.Seed,
		Workers:   cfg.Sweep.Workers,
		Trainers:  buildTrainers(cfg, log),
		Logger:    log,
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}

	result, err := agg.Run(cmd.Context())
	if err != nil {
		return err
	}

	if cfg.Store.Enabled && !noStore {
		if err := persistRun(cmd, cfg, log, result); err != nil {
			return err
		}
	}

	return printResult(cmd, cliCtx.OutputFormat, &sweepTableView{result})
}

// buildTrainers translates the configured family list into Trainer instances.
// An empty list means both families.
func buildTrainers(cfg *config.Config, log logging.Logger) []classify.Trainer {
	families := cfg.Sweep.Families
	if len(families) == 0 {
		families = []string{"linear", "forest"}
	}

	var trainers []classify.Trainer
	for _, f := range families {
		switch f {
		case "linear":
			trainers = append(trainers, classify.NewLassoLogisticTrainer(classify.LinearConfig{
				PathLength:     cfg.Linear.PathLength,
				LambdaMinRatio: cfg.Linear.LambdaMinRatio,
				MaxIterations:  cfg.Linear.MaxIterations,
				Tolerance:      cfg.Linear.Tolerance,
			}, log))
		case "forest":
			trainers = append(trainers, classify.NewForestTrainer(classify.ForestConfig{
				Trees:    cfg.Forest.Trees,
				MtryGrid: cfg.Forest.MtryGrid,
				MinLeaf:  cfg.Forest.MinLeaf,
				Seed:     cfg.Folds.Seed,
			}, log))
		}
	}
	return trainers
}

func persistRun(cmd *cobra.Command, cfg *config.Config, log logging.Logger, result *sweep.Table) error {
	conn, err := postgres.NewConnection(postgres.Config{
		Host:            cfg.Store.Host,
		Port:            cfg.Store.Port,
		User:            cfg.Store.User,
		Password:        cfg.Store.Password,
		DBName:          cfg.Store.DBName,
		SSLMode:         cfg.Store.SSLMode,
		MaxConns:        cfg.Store.MaxConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	}, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.RunMigrations(cfg.Store.MigrationPath); err != nil {
		return err
	}
	if err := postgres.NewRunStore(conn, log).SaveRun(cmd.Context(), result); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Run %s persisted\n", result.RunID)
	return nil
}

// sweepTableView renders a sweep.Table for terminal output.
type sweepTableView struct {
	*sweep.Table
}

func (v *sweepTableView) TableHeaders() []string {
	return []string{
		"CANDIDATE", "GROUP", "FAMILY",
		"TRAIN " + v.CorpusA, "CROSS A>B",
		"TRAIN " + v.CorpusB, "CROSS B>A",
		"MEAN CROSS",
	}
}

func (v *sweepTableView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Rows))
	for _, r := range v.Rows {
		meanCell := "-"
		if m, ok := r.MeanCross(); ok {
			meanCell = strconv.FormatFloat(m, 'f', 3, 64)
		}
		rows = append(rows, []string{
			r.Candidate,
			r.Group,
			r.Family.String(),
			formatCell(r.TrainA),
			formatCell(r.CrossAB),
			formatCell(r.TrainB),
			formatCell(r.CrossBA),
			meanCell,
		})
	}
	return rows
}

func formatCell(c sweep.Cell) string {
	if !c.OK {
		if c.Reason != "" {
			return "[" + c.Reason + "]"
		}
		return "-"
	}
	return strconv.FormatFloat(c.Accuracy, 'f', 3, 64)
}
