package recorder

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"CatalogSync/internal/logger"
	"CatalogSync/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logger.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *logger.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With("recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sync_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL UNIQUE,
			timestamp   INTEGER NOT NULL,
			stage       TEXT NOT NULL,
			status      TEXT NOT NULL,
			item_count  INTEGER NOT NULL,
			location    TEXT,
			storage_key TEXT,
			failures    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_runs_ts ON sync_runs(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(res *model.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	failures, err := json.Marshal(res.Failures)
	if err != nil {
		return fmt.Errorf("encode failures: %w", err)
	}

	_, err = r.db.Exec(`INSERT INTO sync_runs
		(run_id, timestamp, stage, status, item_count, location, storage_key, failures)
		VALUES (?,?,?,?,?,?,?,?)`,
		res.RunID, res.Timestamp.UnixMilli(), string(res.Stage), string(res.Status),
		res.Count, nullable(res.Location), nullable(res.StorageKey), string(failures),
	)
	return err
}

func (r *SQLiteRecorder) LastRun() (*model.RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		res        model.RunResult
		ts         int64
		stage      string
		status     string
		location   sql.NullString
		storageKey sql.NullString
		failures   sql.NullString
	)
	err := r.db.QueryRow(`SELECT run_id, timestamp, stage, status, item_count, location, storage_key, failures
		FROM sync_runs ORDER BY id DESC LIMIT 1`).
		Scan(&res.RunID, &ts, &stage, &status, &res.Count, &location, &storageKey, &failures)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}

	res.Timestamp = time.UnixMilli(ts).UTC()
	res.Stage = model.Stage(stage)
	res.Status = model.RunStatus(status)
	if location.Valid {
		res.Location = &location.String
	}
	if storageKey.Valid {
		res.StorageKey = &storageKey.String
	}
	if failures.Valid && failures.String != "" && failures.String != "null" {
		if err := json.Unmarshal([]byte(failures.String), &res.Failures); err != nil {
			return nil, fmt.Errorf("decode failures: %w", err)
		}
	}
	return &res, nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
