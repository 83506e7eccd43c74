package store

import "database/sql"

// CurrentSchemaVersion is the current on-disk schema version. Open()
// applies any migration whose version is greater than what's recorded in
// schema_version, in order, inside its own transaction (spec.md §4.1).
const CurrentSchemaVersion = 1

var migrations = []func(tx *sql.Tx) error{
	migrateV1,
}

func migrateV1(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			path TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			ignore_patterns TEXT NOT NULL DEFAULT '[]',
			embedding_model TEXT NOT NULL DEFAULT '',
			dimensions INTEGER NOT NULL DEFAULT 0,
			file_count INTEGER NOT NULL DEFAULT 0,
			chunk_count INTEGER NOT NULL DEFAULT 0,
			indexed_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			file_path TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding BLOB NOT NULL,
			file_type TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			start_line INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			content_hash TEXT NOT NULL,
			created_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_project ON chunks(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_project_file ON chunks(project_id, file_path)`,
		`CREATE TABLE IF NOT EXISTS file_hashes (
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			file_path TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			indexed_at DATETIME,
			PRIMARY KEY (project_id, file_path)
		)`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			project_id TEXT PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
			stage TEXT NOT NULL,
			total INTEGER NOT NULL DEFAULT 0,
			embedded INTEGER NOT NULL DEFAULT 0,
			embedder_model TEXT NOT NULL DEFAULT '',
			updated_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS eval_runs (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			timestamp DATETIME,
			dataset_version TEXT NOT NULL,
			query_count INTEGER NOT NULL DEFAULT 0,
			aggregate_metrics TEXT NOT NULL DEFAULT '{}',
			config TEXT NOT NULL DEFAULT '{}',
			notes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'running'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_eval_runs_project_ts ON eval_runs(project_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS eval_results (
			id TEXT PRIMARY KEY,
			eval_run_id TEXT NOT NULL REFERENCES eval_runs(id) ON DELETE CASCADE,
			query TEXT NOT NULL,
			expected_files TEXT NOT NULL DEFAULT '[]',
			retrieved_files TEXT NOT NULL DEFAULT '[]',
			latency_ms INTEGER NOT NULL DEFAULT 0,
			per_query_metrics TEXT NOT NULL DEFAULT '{}',
			passed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_eval_results_run ON eval_results(eval_run_id)`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
