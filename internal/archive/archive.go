// Package archive exports completed history (missions, mining sessions,
// exploration sales) to a SQLite file. It only ever writes; state is always
// rebuilt from the journal, never from the archive.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"edtrack/internal/ingest"
	"edtrack/internal/log"
)

// Stats counts rows newly written by one export
type Stats struct {
	Missions       int64
	MiningSessions int64
	Sales          int64
}

// Archive is an open SQLite history file
type Archive struct {
	db    *sql.DB
	path  string
	runID string
	sq    squirrel.StatementBuilderType
}

// Open opens or creates the archive at path and brings its schema up to date
func Open(ctx context.Context, path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	// SQLite allows one writer; keep database/sql from opening more.
	db.SetMaxOpenConns(1)

	a := &Archive{
		db:    db,
		path:  path,
		runID: uuid.NewString(),
		sq:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
	if err := a.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	query, args, err := a.sq.Insert("runs").
		Columns("id", "started_at").
		Values(a.runID, formatTime(time.Now())).
		ToSql()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("build run insert: %w", err)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("record run: %w", err)
	}

	log.Info("archive opened", "path", path, "run", a.runID)
	return a, nil
}

// RunID identifies this process in the archive
func (a *Archive) RunID() string {
	return a.runID
}

// Close closes the database
func (a *Archive) Close() error {
	return a.db.Close()
}

// Export writes every completed history entry of st not yet in the archive.
// Rows are keyed on journal data, so exporting the same state twice adds
// nothing. st must come from a single snapshot, or rows of one profile can
// land under another's FID.
func (a *Archive) Export(ctx context.Context, st ingest.State) (Stats, error) {
	fid := st.Profile.FID
	if fid == "" {
		return Stats{}, nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("start export: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var stats Stats
	for _, m := range st.MissionHistory {
		n, err := a.insert(ctx, tx, a.sq.Insert("mission_history").
			Options("OR IGNORE").
			Columns("fid", "mission_id", "faction", "target_faction", "kills", "reward", "completed_at", "run_id").
			Values(fid, m.MissionID, m.Faction, m.TargetFaction, m.Kills, m.Reward, formatTime(m.CompletedAt), a.runID))
		if err != nil {
			return Stats{}, fmt.Errorf("export mission %s: %w", m.MissionID, err)
		}
		stats.Missions += n
	}

	for _, s := range st.MiningHistory {
		started := formatTime(s.StartTime)
		n, err := a.insert(ctx, tx, a.sq.Insert("mining_sessions").
			Options("OR IGNORE").
			Columns("fid", "started_at", "ended_at", "system", "ring", "refined", "prospected", "run_id").
			Values(fid, started, formatTime(s.EndTime), s.System, s.Ring, s.TotalRefined(), s.Prospected, a.runID))
		if err != nil {
			return Stats{}, fmt.Errorf("export mining session %s: %w", started, err)
		}
		stats.MiningSessions += n
		if n == 0 {
			continue
		}
		for _, mineral := range s.Minerals() {
			if _, err := a.insert(ctx, tx, a.sq.Insert("mining_minerals").
				Options("OR IGNORE").
				Columns("fid", "started_at", "ring", "mineral", "count").
				Values(fid, started, s.Ring, mineral, s.Refined[mineral])); err != nil {
				return Stats{}, fmt.Errorf("export mineral %s: %w", mineral, err)
			}
		}
	}

	for _, sale := range st.Sales {
		n, err := a.insert(ctx, tx, a.sq.Insert("exploration_sales").
			Options("OR IGNORE").
			Columns("fid", "flushed_at", "systems", "base_value", "bonus", "total_earnings", "run_id").
			Values(fid, formatTime(sale.FlushedAt), len(sale.Systems), sale.BaseValue, sale.Bonus, sale.TotalEarnings, a.runID))
		if err != nil {
			return Stats{}, fmt.Errorf("export sale: %w", err)
		}
		stats.Sales += n
	}

	if err := commit(tx); err != nil {
		return Stats{}, err
	}
	if stats != (Stats{}) {
		log.Debug("history archived", "missions", stats.Missions, "mining", stats.MiningSessions, "sales", stats.Sales)
	}
	return stats, nil
}

// Count returns the number of rows in table
func (a *Archive) Count(ctx context.Context, table string) (int, error) {
	query, args, err := a.sq.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := a.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (a *Archive) insert(ctx context.Context, tx *sql.Tx, b squirrel.InsertBuilder) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
