package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"TaiexCache/internal/logger"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the audit trail to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while the server writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", logger.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS refresh_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			instrument  TEXT NOT NULL,
			kind        TEXT NOT NULL,
			reason      TEXT,
			source      TEXT,
			rows        INTEGER,
			dropped     INTEGER,
			duration_ms INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_inst_ts ON refresh_events(instrument, timestamp)`,

		`CREATE TABLE IF NOT EXISTS prewarm_runs (
			run_id      TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			failed      INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS prewarm_results (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL REFERENCES prewarm_runs(run_id),
			instrument  TEXT NOT NULL,
			ok          INTEGER NOT NULL,
			stale       INTEGER NOT NULL,
			rows        INTEGER,
			duration_ms INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prewarm_results_run ON prewarm_results(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRefresh(evt *RefreshEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := evt.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO refresh_events
		(timestamp, instrument, kind, reason, source, rows, dropped, duration_ms, error)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		at.UnixMilli(), evt.Instrument, evt.Kind, evt.Reason, evt.Source,
		evt.Rows, evt.Dropped, evt.Duration.Milliseconds(), evt.Err,
	)
	return err
}

// RecordPrewarm stores the run and its per-instrument results in one
// transaction.
func (r *SQLiteRecorder) RecordPrewarm(run *PrewarmRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO prewarm_runs (run_id, started_at, finished_at, failed) VALUES (?,?,?,?)`,
		run.RunID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Failed(),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, res := range run.Results {
		if _, err := tx.Exec(`INSERT INTO prewarm_results
			(run_id, instrument, ok, stale, rows, duration_ms, error)
			VALUES (?,?,?,?,?,?,?)`,
			run.RunID, res.Instrument, res.OK, res.Stale, res.Rows, res.Duration.Milliseconds(), res.Err,
		); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
	}
	return tx.Commit()
}

// RecentRefreshes returns the latest events for instrument, newest first.
func (r *SQLiteRecorder) RecentRefreshes(instrument string, limit int) ([]RefreshEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT timestamp, instrument, kind, reason, source, rows, dropped, duration_ms, error
		FROM refresh_events WHERE instrument = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, instrument, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RefreshEvent
	for rows.Next() {
		var (
			evt    RefreshEvent
			ts, ms int64
		)
		if err := rows.Scan(&ts, &evt.Instrument, &evt.Kind, &evt.Reason, &evt.Source,
			&evt.Rows, &evt.Dropped, &ms, &evt.Err); err != nil {
			return nil, err
		}
		evt.At = time.UnixMilli(ts)
		evt.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	logger.Info("closing sqlite recorder")
	return r.db.Close()
}
