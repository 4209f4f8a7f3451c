// Package history persists run transcripts in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/thomasrohde/scoper/pkg/evaluator"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5

	// DefaultLimit bounds List when no limit is given.
	DefaultLimit = 20
)

// Run is one stored script execution.
type Run struct {
	ID        string             `json:"id" yaml:"id"`
	File      string             `json:"file" yaml:"file"`
	Started   time.Time          `json:"started" yaml:"started"`
	Duration  time.Duration      `json:"durationNs" yaml:"duration_ns"`
	OK        bool               `json:"ok" yaml:"ok"`
	ErrorCode string             `json:"errorCode,omitempty" yaml:"error_code,omitempty"`
	Commands  int                `json:"commands" yaml:"commands"`
	MaxDepth  int                `json:"maxDepth" yaml:"max_depth"`
	Records   []evaluator.Record `json:"records" yaml:"records"`
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open creates the database file and its directory when missing.
func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// watch mode writes a row per save
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Save inserts run, replacing an existing row with the same ID.
func (s *Store) Save(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("save run: empty id")
	}
	if run.Started.IsZero() {
		run.Started = time.Now().UTC()
	}
	records := run.Records
	if records == nil {
		records = []evaluator.Record{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	const query = `
INSERT INTO runs (id, file, started_utc, duration_ns, ok, error_code, commands, max_depth, records_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  file=excluded.file,
  started_utc=excluded.started_utc,
  duration_ns=excluded.duration_ns,
  ok=excluded.ok,
  error_code=excluded.error_code,
  commands=excluded.commands,
  max_depth=excluded.max_depth,
  records_json=excluded.records_json
`
	return s.withRetry("save run", func() error {
		_, err := s.db.ExecContext(ctx, query,
			run.ID,
			run.File,
			run.Started.UTC().Format(time.RFC3339Nano),
			int64(run.Duration),
			boolToInt(run.OK),
			run.ErrorCode,
			run.Commands,
			run.MaxDepth,
			string(payload),
		)
		return err
	})
}

// List returns the newest runs first. A limit below one means DefaultLimit.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = DefaultLimit
	}

	const query = `
SELECT id, file, started_utc, duration_ns, ok, error_code, commands, max_depth, records_json
FROM runs
ORDER BY started_utc DESC, id ASC
LIMIT ?
`
	var rows *sql.Rows
	err := s.withRetry("list runs", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run        Run
			startedRaw string
			durationNs int64
			ok         int
			payload    string
		)
		if err := rows.Scan(
			&run.ID,
			&run.File,
			&startedRaw,
			&durationNs,
			&ok,
			&run.ErrorCode,
			&run.Commands,
			&run.MaxDepth,
			&payload,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}

		started, err := time.Parse(time.RFC3339Nano, startedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", startedRaw, err)
		}
		run.Started = started.UTC()
		run.Duration = time.Duration(durationNs)
		run.OK = ok != 0
		if err := json.Unmarshal([]byte(payload), &run.Records); err != nil {
			return nil, fmt.Errorf("decode records of run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
