package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"edtrack/internal/log"
)

// Migration is one schema step
type Migration struct {
	ID          int
	Description string
	SQL         string
}

// migrations contains all schema migrations in order
var migrations = []Migration{
	{
		ID:          1,
		Description: "Runs and mission history",
		SQL: `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS mission_history (
	fid TEXT NOT NULL,
	mission_id TEXT NOT NULL,
	faction TEXT NOT NULL,
	target_faction TEXT NOT NULL,
	kills INTEGER NOT NULL,
	reward INTEGER NOT NULL,
	completed_at TEXT NOT NULL,
	run_id TEXT NOT NULL,
	PRIMARY KEY (fid, mission_id)
);`,
	},
	{
		ID:          2,
		Description: "Mining sessions",
		SQL: `
CREATE TABLE IF NOT EXISTS mining_sessions (
	fid TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at TEXT NOT NULL,
	system TEXT NOT NULL,
	ring TEXT NOT NULL,
	refined INTEGER NOT NULL,
	prospected INTEGER NOT NULL,
	run_id TEXT NOT NULL,
	PRIMARY KEY (fid, started_at, ring)
);
CREATE TABLE IF NOT EXISTS mining_minerals (
	fid TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ring TEXT NOT NULL,
	mineral TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY (fid, started_at, ring, mineral)
);`,
	},
	{
		ID:          3,
		Description: "Exploration sales",
		SQL: `
CREATE TABLE IF NOT EXISTS exploration_sales (
	fid TEXT NOT NULL,
	flushed_at TEXT NOT NULL,
	systems INTEGER NOT NULL,
	base_value INTEGER NOT NULL,
	bonus INTEGER NOT NULL,
	total_earnings INTEGER NOT NULL,
	run_id TEXT NOT NULL,
	PRIMARY KEY (fid, flushed_at)
);`,
	},
}

// runMigrations executes all pending migrations
func (a *Archive) runMigrations(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	if err := a.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version;`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.ID <= current {
			continue
		}
		log.Debug("applying archive migration", "id", m.ID, "description", m.Description)
		if err := a.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.ID, err)
		}
	}
	return nil
}

// applyMigration runs one migration in a transaction
func (a *Archive) applyMigration(ctx context.Context, m Migration) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range strings.Split(m.SQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute statement: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?);`, m.ID); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return commit(tx)
}

func commit(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
