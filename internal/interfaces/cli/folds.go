package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/stylobench/internal/corpus"
	"github.com/turtacn/stylobench/pkg/errors"
)

// newFoldsCmd builds the folds subcommand: assigns stratified folds to one
// corpus and prints the per-genre fold occupancy so stratification can be
// audited before a sweep.
func newFoldsCmd() *cobra.Command {
	var which string

	cmd := &cobra.Command{
		Use:   "folds",
		Short: "Audit the stratified fold assignment of a corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runFolds(cmd, cliCtx, which)
		},
	}

	cmd.Flags().StringVar(&which, "corpus", "a", "which corpus to audit (a or b)")
	return cmd
}

func runFolds(cmd *cobra.Command, cliCtx *CLIContext, which string) error {
	cfg := cliCtx.Config

	var cc = cfg.CorpusA
	switch which {
	case "a", "A":
	case "b", "B":
		cc = cfg.CorpusB
	default:
		return errors.InvalidInput(fmt.Sprintf("unknown corpus %q; expected a or b", which))
	}

	schema := corpus.IDSchema{
		GenreSep:  cfg.Schema.GenreSep,
		SourceSep: cfg.Schema.SourceSep,
	}
	table, err := corpus.LoadCSV(cc.Path, cc.Name, schema)
	if err != nil {
		return err
	}

	folds, err := corpus.AssignFolds(table, cfg.Folds.Count, cfg.Folds.Seed)
	if err != nil {
		return err
	}

	return printResult(cmd, cliCtx.OutputFormat, &foldBalanceView{
		Corpus:  table.Name(),
		K:       folds.K(),
		Seed:    folds.Seed(),
		Docs:    table.Len(),
		Balance: folds.GenreBalance(table),
	})
}

// foldBalanceView renders per-genre fold occupancy.
type foldBalanceView struct {
	Corpus  string           `json:"corpus"`
	K       int              `json:"folds"`
	Seed    int64            `json:"seed"`
	Docs    int              `json:"documents"`
	Balance map[string][]int `json:"balance"`
}

func (v *foldBalanceView) TableHeaders() []string {
	headers := make([]string, 0, v.K+2)
	headers = append(headers, "GENRE")
	for i := 1; i <= v.K; i++ {
		headers = append(headers, "F"+strconv.Itoa(i))
	}
	headers = append(headers, "TOTAL")
	return headers
}

func (v *foldBalanceView) TableRows() [][]string {
	genres := make([]string, 0, len(v.Balance))
	for g := range v.Balance {
		genres = append(genres, g)
	}
	sort.Strings(genres)

	rows := make([][]string, 0, len(genres))
	for _, g := range genres {
		counts := v.Balance[g]
		row := make([]string, 0, v.K+2)
		row = append(row, g)
		total := 0
		for _, n := range counts {
			row = append(row, strconv.Itoa(n))
			total += n
		}
		row = append(row, strconv.Itoa(total))
		rows = append(rows, row)
	}
	return rows
}
