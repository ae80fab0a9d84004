package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// historySchemaVersion is bumped whenever historySchema changes
const historySchemaVersion = 1

// ErrHistorySchemaMismatch indicates the history database was created by a different schema version
var ErrHistorySchemaMismatch = errors.New("history schema version mismatch")

const historySchema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS stage_executions (
    id          TEXT PRIMARY KEY,
    document_id TEXT NOT NULL,
    job_id      TEXT NOT NULL,
    stage       TEXT NOT NULL,
    status      TEXT NOT NULL,
    started_at  TEXT NOT NULL,
    ended_at    TEXT,
    error       TEXT NOT NULL DEFAULT '',
    input_ref   TEXT NOT NULL DEFAULT '',
    output_ref  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_stage_executions_document ON stage_executions(document_id, started_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_stage_executions_job ON stage_executions(job_id);
`

// OpenHistoryDB opens (or creates) the SQLite database holding stage execution history.
// Use ":memory:" for an ephemeral database.
func OpenHistoryDB(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create history dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// a single writer keeps :memory: databases shared and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if err := initHistorySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func initHistorySchema(ctx context.Context, db *sql.DB) error {
	var tableExists int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := db.ExecContext(ctx, historySchema); err != nil {
			return fmt.Errorf("create history schema: %w", err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", historySchemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	}

	var version int
	if err := db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != historySchemaVersion {
		return fmt.Errorf("%w: database has %d, expected %d", ErrHistorySchemaMismatch, version, historySchemaVersion)
	}
	return nil
}
