package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/stylobench/internal/config"
	"github.com/turtacn/stylobench/internal/infrastructure/database/postgres"
	"github.com/turtacn/stylobench/pkg/errors"
)

// newRunsCmd builds the runs subcommand group for browsing persisted sweep
// results.  All of its subcommands require the store to be enabled.
func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse persisted sweep runs",
	}

	cmd.AddCommand(newRunsListCmd(), newRunsShowCmd())
	return cmd
}

func newRunsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted sweep runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			store, cleanup, err := openStore(cliCtx)
			if err != nil {
				return err
			}
			defer cleanup()

			summaries, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printResult(cmd, cliCtx.OutputFormat, runListView(summaries))
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the full result table of one persisted run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			store, cleanup, err := openStore(cliCtx)
			if err != nil {
				return err
			}
			defer cleanup()

			table, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, cliCtx.OutputFormat, &sweepTableView{table})
		},
	}
}

// openStore connects to the results store, returning the repository and a
// cleanup function closing the connection.
func openStore(cliCtx *CLIContext) (*postgres.RunStore, func(), error) {
	cfg := cliCtx.Config
	if !cfg.Store.Enabled {
		return nil, nil, errors.New(errors.ErrCodeConfigInvalid,
			"the results store is disabled; set store.enabled to use this command")
	}

	conn, err := postgres.NewConnection(storeConfig(cfg.Store), cliCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	store := postgres.NewRunStore(conn, cliCtx.Logger)
	return store, func() { _ = conn.Close() }, nil
}

func storeConfig(sc config.StoreConfig) postgres.Config {
	return postgres.Config{
		Host:            sc.Host,
		Port:            sc.Port,
		User:            sc.User,
		Password:        sc.Password,
		DBName:          sc.DBName,
		SSLMode:         sc.SSLMode,
		MaxConns:        sc.MaxConns,
		ConnMaxLifetime: sc.ConnMaxLifetime,
	}
}

// runListView renders run summaries for terminal output.
type runListView []postgres.RunSummary

func (v runListView) TableHeaders() []string {
	return []string{"RUN ID", "CORPUS A", "CORPUS B", "BASELINE", "SEED", "FOLDS", "ROWS", "STARTED"}
}

func (v runListView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, s := range v {
		rows = append(rows, []string{
			s.ID,
			s.CorpusA,
			s.CorpusB,
			s.Baseline,
			strconv.FormatInt(s.Seed, 10),
			strconv.Itoa(s.FoldCount),
			strconv.Itoa(s.RowCount),
			s.StartedAt.Format(time.RFC3339),
		})
	}
	return rows
}
