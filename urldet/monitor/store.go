package monitor

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// RunStore provides SQLite-based storage for training runs and their
// per-epoch metrics, so runs can be compared after the process exits.
type RunStore struct {
	db     *sql.DB
	dbPath string
}

// StoreOptions configures RunStore behavior.
type StoreOptions struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging. Recommended.
	EnableWAL bool
}

// DefaultStoreOptions returns the default store options.
func DefaultStoreOptions() StoreOptions {
	return StoreOptions{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Run is one training run's metadata.
type Run struct {
	ID           string
	Architecture string
	VocabSize    int
	MaxLength    int
	Epochs       int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Metric is one recorded scalar of a run.
type Metric struct {
	RunID string
	Epoch int
	Split string
	Name  string
	Value float64
}

// OpenStore opens or creates the run database at dbPath.
func OpenStore(dbPath string, opts StoreOptions) (*RunStore, error) {
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("monitor: run database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("monitor: check run database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("monitor: create database directory: %w", err)
		}
	}

	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("monitor: open run database: %w", err)
	}

	// SQLite supports only one writer; keep the pool at a single
	// connection and let readers share it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &RunStore{db: db, dbPath: dbPath}
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("monitor: enable WAL: %w", err)
		}
	}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *RunStore) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	architecture TEXT NOT NULL,
	vocab_size   INTEGER NOT NULL,
	max_length   INTEGER NOT NULL,
	epochs       INTEGER NOT NULL,
	started_at   TIMESTAMP NOT NULL,
	finished_at  TIMESTAMP
);
CREATE TABLE IF NOT EXISTS metrics (
	run_id TEXT NOT NULL REFERENCES runs(id),
	epoch  INTEGER NOT NULL,
	split  TEXT NOT NULL,
	name   TEXT NOT NULL,
	value  REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_metrics_run ON metrics(run_id, epoch);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("monitor: init schema: %w", err)
	}
	return nil
}

// CreateRun registers a new run before training starts.
func (s *RunStore) CreateRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, architecture, vocab_size, max_length, epochs, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Architecture, run.VocabSize, run.MaxLength, run.Epochs, run.StartedAt)
	if err != nil {
		return fmt.Errorf("monitor: create run: %w", err)
	}
	return nil
}

// FinishRun stamps the run's completion time.
func (s *RunStore) FinishRun(ctx context.Context, runID string, finishedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ? WHERE id = ?`, finishedAt, runID)
	if err != nil {
		return fmt.Errorf("monitor: finish run: %w", err)
	}
	return nil
}

// RecordMetric stores one scalar for a run epoch.
func (s *RunStore) RecordMetric(ctx context.Context, m Metric) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metrics (run_id, epoch, split, name, value) VALUES (?, ?, ?, ?, ?)`,
		m.RunID, m.Epoch, m.Split, m.Name, m.Value)
	if err != nil {
		return fmt.Errorf("monitor: record metric: %w", err)
	}
	return nil
}

// Metrics returns every scalar recorded for the run, epoch order.
func (s *RunStore) Metrics(ctx context.Context, runID string) ([]Metric, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, epoch, split, name, value FROM metrics
		 WHERE run_id = ? ORDER BY epoch, split, name`, runID)
	if err != nil {
		return nil, fmt.Errorf("monitor: query metrics: %w", err)
	}
	defer rows.Close()

	var out []Metric
	for rows.Next() {
		var m Metric
		if err := rows.Scan(&m.RunID, &m.Epoch, &m.Split, &m.Name, &m.Value); err != nil {
			return nil, fmt.Errorf("monitor: scan metric: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Runs lists all registered runs, most recent first.
func (s *RunStore) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, architecture, vocab_size, max_length, epochs, started_at,
		        COALESCE(finished_at, started_at)
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("monitor: query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Architecture, &r.VocabSize, &r.MaxLength,
			&r.Epochs, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("monitor: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *RunStore) Close() error { return s.db.Close() }
