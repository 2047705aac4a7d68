package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/turtacn/stylobench/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/stylobench/internal/sweep"
	"github.com/turtacn/stylobench/pkg/errors"
)

// RunSummary is the list-view projection of a persisted sweep run.
type RunSummary struct {
	ID        string
	CorpusA   string
	CorpusB   string
	Baseline  string
	Seed      int64
	FoldCount int
	StartedAt time.Time
	RowCount  int
}

// RunStore persists sweep results.  Each run is stored twice: the wide table
// as a JSON document for exact reconstruction, and the filled cells as long-
// form evaluation rows for SQL analysis.
type RunStore struct {
	conn   *Connection
	logger logging.Logger
}

// NewRunStore creates a repository over an open connection.
func NewRunStore(conn *Connection, log logging.Logger) *RunStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &RunStore{conn: conn, logger: log.Named("runstore")}
}

// SaveRun writes a completed sweep table and its flattened evaluation records
// in one transaction.
func (s *RunStore) SaveRun(ctx context.Context, table *sweep.Table) error {
	if table == nil || table.RunID == "" {
		return errors.InvalidInput("table with a run id is required")
	}

	rowsJSON, err := json.Marshal(table.Rows)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreQuery, "failed to encode result rows")
	}

	tx, err := s.conn.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreQuery, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, corpus_a, corpus_b, baseline, seed, fold_count, started_at, result_rows)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		table.RunID, table.CorpusA, table.CorpusB, table.Baseline,
		table.Seed, table.FoldCount, table.StartedAt, rowsJSON,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreQuery, "failed to insert run")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO evaluations (run_id, candidate, family, train_corpus, test_corpus, accuracy, complexity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreQuery, "failed to prepare evaluation insert")
	}
	defer stmt.Close()

	records := table.Records()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			table.RunID, r.Candidate, r.Family.String(),
			r.TrainCorpus, r.TestCorpus, r.Accuracy, r.Complexity,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeStoreQuery, "failed to insert evaluation")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreQuery, "failed to commit run")
	}

	s.logger.Info("sweep run persisted",
		logging.String("run_id", table.RunID),
		logging.Int("rows", len(table.Rows)),
		logging.Int("evaluations", len(records)),
	)
	return nil
}

// GetRun reconstructs a persisted sweep table by run id.
func (s *RunStore) GetRun(ctx context.Context, runID string) (*sweep.Table, error) {
	var (
		table    sweep.Table
		rowsJSON []byte
	)
	err := s.conn.db.QueryRowContext(ctx, `
		SELECT id, corpus_a, corpus_b, baseline, seed, fold_count, started_at, result_rows
		FROM runs WHERE id = $1`, runID,
	).Scan(&table.RunID, &table.CorpusA, &table.CorpusB, &table.Baseline,
		&table.Seed, &table.FoldCount, &table.StartedAt, &rowsJSON)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("run " + runID + " not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreQuery, "failed to load run")
	}

	if err := json.Unmarshal(rowsJSON, &table.Rows); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreQuery, "failed to decode result rows")
	}
	return &table, nil
}

// ListRuns returns summaries of the most recent runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.db.QueryContext(ctx, `
		SELECT id, corpus_a, corpus_b, baseline, seed, fold_count, started_at,
		       jsonb_array_length(result_rows)
		FROM runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreQuery, "failed to list runs")
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.CorpusA, &r.CorpusB, &r.Baseline,
			&r.Seed, &r.FoldCount, &r.StartedAt, &r.RowCount); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStoreQuery, "failed to scan run summary")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreQuery, "failed to iterate runs")
	}
	return out, nil
}

// DeleteRun removes a run and its evaluations.
func (s *RunStore) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.conn.db.ExecContext(ctx, `DELETE FROM runs WHERE id = $1`, runID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreQuery, "failed to delete run")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFound("run " + runID + " not found")
	}
	return nil
}
