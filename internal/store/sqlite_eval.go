package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/ctxhq/ctx/internal/errorkit"
)

func (s *SQLiteStore) InsertEvalRun(ctx context.Context, run *EvalRun) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	agg, _ := json.Marshal(run.AggregateMetrics)
	cfg, _ := json.Marshal(run.Config)
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = "running"
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO eval_runs
		(id, project_id, timestamp, dataset_version, query_count, aggregate_metrics, config, notes, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ProjectID, run.Timestamp, run.DatasetVersion, run.QueryCount, string(agg), string(cfg), run.Notes, run.Status)
	if err != nil {
		return errorkit.Storage("failed to insert eval run", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateEvalRun(ctx context.Context, runID string, aggregate map[string]float64, notes string) error {
	return s.updateEvalRun(ctx, runID, aggregate, notes, "completed")
}

// UpdateEvalRunStatus sets only the status column, used to mark a run
// failed mid-execution without touching partially-computed aggregates.
func (s *SQLiteStore) UpdateEvalRunStatus(ctx context.Context, runID string, status string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.ExecContext(ctx, "UPDATE eval_runs SET status = ? WHERE id = ?", status, runID)
	if err != nil {
		return errorkit.Storage("failed to update eval run status", err)
	}
	return nil
}

func (s *SQLiteStore) updateEvalRun(ctx context.Context, runID string, aggregate map[string]float64, notes string, status string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	agg, _ := json.Marshal(aggregate)
	_, err := s.db.ExecContext(ctx, "UPDATE eval_runs SET aggregate_metrics = ?, notes = ?, status = ? WHERE id = ?", string(agg), notes, status, runID)
	if err != nil {
		return errorkit.Storage("failed to update eval run", err)
	}
	return nil
}

func (s *SQLiteStore) GetLatestEvalRun(ctx context.Context, projectID string, before time.Time) (*EvalRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, project_id, timestamp, dataset_version, query_count, aggregate_metrics, config, notes, status
		FROM eval_runs WHERE project_id = ? AND timestamp < ? ORDER BY timestamp DESC LIMIT 1`, projectID, before)

	var run EvalRun
	var ts sql.NullTime
	var agg, cfg string
	if err := row.Scan(&run.ID, &run.ProjectID, &ts, &run.DatasetVersion, &run.QueryCount, &agg, &cfg, &run.Notes, &run.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errorkit.Storage("failed to read previous eval run", err)
	}
	run.Timestamp = ts.Time
	_ = json.Unmarshal([]byte(agg), &run.AggregateMetrics)
	_ = json.Unmarshal([]byte(cfg), &run.Config)
	return &run, nil
}

func (s *SQLiteStore) InsertEvalResults(ctx context.Context, rows []*EvalResult) error {
	if len(rows) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errorkit.Storage("failed to begin eval result transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert, err := tx.PrepareContext(ctx, `INSERT INTO eval_results
		(id, eval_run_id, query, expected_files, retrieved_files, latency_ms, per_query_metrics, passed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errorkit.Storage("failed to prepare eval result insert", err)
	}
	defer insert.Close()

	for _, r := range rows {
		expected, _ := json.Marshal(r.ExpectedFiles)
		retrieved, _ := json.Marshal(r.RetrievedFiles)
		metrics, _ := json.Marshal(r.PerQueryMetrics)
		passed := 0
		if r.Passed {
			passed = 1
		}
		if _, err := insert.ExecContext(ctx, r.ID, r.EvalRunID, r.Query, string(expected), string(retrieved), r.LatencyMS, string(metrics), passed); err != nil {
			return errorkit.Storage("failed to insert eval result", err)
		}
	}

	return tx.Commit()
}
