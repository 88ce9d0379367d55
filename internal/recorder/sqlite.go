package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/vaskrneup/NepseTools/internal/model"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so ad hoc reads don't block the run's writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scrape_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			run_id      TEXT NOT NULL,
			rows_added  INTEGER,
			last_date   TEXT,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scrape_ts ON scrape_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS crossover_events (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			run_id        TEXT NOT NULL,
			job           TEXT,
			symbol        TEXT NOT NULL,
			session_date  TEXT,
			direction     TEXT,
			big_window    INTEGER,
			small_window  INTEGER,
			prev_big      REAL,
			prev_small    REAL,
			current_big   REAL,
			current_small REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_symbol ON crossover_events(symbol, session_date)`,

		`CREATE TABLE IF NOT EXISTS dispatches (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			run_id    TEXT NOT NULL,
			recipient TEXT NOT NULL,
			subject   TEXT,
			messages  INTEGER,
			sent      INTEGER,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dispatch_ts ON dispatches(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordScrape(run *ScrapeRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO scrape_runs
		(timestamp, run_id, rows_added, last_date, duration_ms)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), run.RunID, run.RowsAdded, run.LastDate, run.DurationMS,
	)
	return err
}

func (r *SQLiteRecorder) RecordEvent(runID, job string, event model.CrossoverEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO crossover_events
		(timestamp, run_id, job, symbol, session_date, direction,
		 big_window, small_window, prev_big, prev_small, current_big, current_small)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), runID, job, event.Symbol, event.Date, string(event.Direction),
		event.BigWindow, event.SmallWindow,
		event.PrevBig, event.PrevSmall, event.CurrentBig, event.CurrentSmall,
	)
	return err
}

func (r *SQLiteRecorder) RecordDispatch(res *DispatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sent := 0
	if res.Sent {
		sent = 1
	}
	_, err := r.db.Exec(`INSERT INTO dispatches
		(timestamp, run_id, recipient, subject, messages, sent, error)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), res.RunID, res.Recipient, res.Subject, res.Messages, sent, res.Error,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
