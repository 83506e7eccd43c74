package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // pure-Go driver, no cgo

	"github.com/ctxhq/ctx/internal/errorkit"
)

// SQLiteStore implements Store on a single sqlite database file. Writes are
// serialized through writeMu (spec.md §5 "single writer"); reads go through
// the same *sql.DB, whose pool is capped at one connection, so they also
// run one at a time.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	writeMu sync.Mutex
	logger  *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// Open opens or creates the store at path, applying any pending schema
// migrations. A corrupt schema fails with a *errorkit.CtxError(KindStorage).
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errorkit.Storage("failed to create store directory", err)
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errorkit.Storage("failed to open store", err)
	}
	db.SetMaxOpenConns(1) // single connection: serializes with SQLite's own locking
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA cache_size = -65536",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, errorkit.Storage("failed to set pragma "+p, err)
		}
	}

	s := &SQLiteStore{db: db, path: path, logger: slog.Default()}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return errorkit.Storage("failed to initialize schema_version table", err)
	}

	var current int
	row := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&current); err != nil {
		return errorkit.Storage("failed to read schema version", err)
	}

	for i := current; i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return errorkit.Storage("failed to begin migration transaction", err)
		}
		if err := migrations[i](tx); err != nil {
			_ = tx.Rollback()
			return errorkit.Storage(fmt.Sprintf("migration %d failed", i+1), err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version(version) VALUES (?)`, i+1); err != nil {
			_ = tx.Rollback()
			return errorkit.Storage("failed to record schema version", err)
		}
		if err := tx.Commit(); err != nil {
			return errorkit.Storage("failed to commit migration", err)
		}
		s.logger.Info("store_migrated", slog.Int("version", i+1))
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

func (s *SQLiteStore) SizeOnDisk() (int64, error) {
	if s.path == ":memory:" {
		return 0, nil
	}
	var total int64
	for _, suffix := range []string{"", "-wal", "-shm"} {
		info, err := os.Stat(s.path + suffix)
		if err == nil {
			total += info.Size()
		}
	}
	return total, nil
}

// --- Projects ---------------------------------------------------------

func (s *SQLiteStore) UpsertProject(ctx context.Context, p *Project) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if p.Dimensions < 1 {
		return errorkit.Validation("project dimensions must be >= 1", nil)
	}

	tags, _ := json.Marshal(p.Tags)
	ignore, _ := json.Marshal(p.IgnorePatterns)
	now := time.Now().UTC()
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	query, args, err := sq.Insert("projects").
		Columns("id", "name", "path", "description", "tags", "ignore_patterns",
			"embedding_model", "dimensions", "file_count", "chunk_count", "indexed_at", "updated_at").
		Values(p.ID, p.Name, p.Path, p.Description, string(tags), string(ignore),
			p.EmbeddingModel, p.Dimensions, p.FileCount, p.ChunkCount, p.IndexedAt, p.UpdatedAt).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, path=excluded.path, description=excluded.description,
			tags=excluded.tags, ignore_patterns=excluded.ignore_patterns,
			embedding_model=excluded.embedding_model, dimensions=excluded.dimensions,
			file_count=excluded.file_count, chunk_count=excluded.chunk_count,
			indexed_at=excluded.indexed_at, updated_at=excluded.updated_at`).
		ToSql()
	if err != nil {
		return errorkit.Storage("failed to build project upsert", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errorkit.Storage("failed to upsert project", err)
	}
	return nil
}

func (s *SQLiteStore) scanProject(row interface{ Scan(...any) error }) (*Project, error) {
	var p Project
	var tags, ignore string
	var indexedAt, updatedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.Name, &p.Path, &p.Description, &tags, &ignore,
		&p.EmbeddingModel, &p.Dimensions, &p.FileCount, &p.ChunkCount, &indexedAt, &updatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(tags), &p.Tags)
	_ = json.Unmarshal([]byte(ignore), &p.IgnorePatterns)
	p.IndexedAt = indexedAt.Time
	p.UpdatedAt = updatedAt.Time
	return &p, nil
}

const projectColumns = "id, name, path, description, tags, ignore_patterns, embedding_model, dimensions, file_count, chunk_count, indexed_at, updated_at"

func (s *SQLiteStore) GetProjectByName(ctx context.Context, name string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE name = ?", name)
	p, err := s.scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errorkit.Storage("failed to read project by name", err)
	}
	return p, nil
}

func (s *SQLiteStore) GetProjectByID(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	p, err := s.scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errorkit.Storage("failed to read project by id", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*Project, error) {
	query, args, err := sq.Select(projectColumns).From("projects").OrderBy("updated_at DESC").ToSql()
	if err != nil {
		return nil, errorkit.Storage("failed to build project list query", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errorkit.Storage("failed to list projects", err)
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		p, err := s.scanProject(rows)
		if err != nil {
			return nil, errorkit.Storage("failed to scan project row", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	// chunks, file_hashes, checkpoints, eval_runs (and eval_results via their
	// own FK) all cascade off projects(id).
	if _, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id); err != nil {
		return errorkit.Storage("failed to delete project", err)
	}
	return nil
}
