// Package metrics provides SQLite-backed persistence for run records.
// Accumulated records back the read-only metrics query at the HTTP
// boundary; they are not part of the orchestration core's live state.
package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/paramind/paramind/pkg/models"
)

// Record is one completed run as stored for reporting.
type Record struct {
	// ID is the unique identifier for this run.
	ID string
	// Prompt is the original user prompt.
	Prompt string
	// Mode is the execution mode the controller chose.
	Mode models.Mode
	// AgentCount is how many agent slots the plan contained.
	AgentCount int
	// FailedCount is how many tasks ended with a recorded error.
	FailedCount int
	// SequentialSeconds is the sequential baseline for the run.
	SequentialSeconds float64
	// ParallelSeconds is the measured parallel duration.
	ParallelSeconds float64
	// Speedup is the run's speedup ratio.
	Speedup float64
	// CreatedAt is when the run completed.
	CreatedAt time.Time
}

// Summary aggregates all stored runs for the metrics query.
type Summary struct {
	// TotalPrompts is the number of recorded runs.
	TotalPrompts int `json:"total_prompts"`
	// SuccessRate is the percentage of runs with no failed tasks.
	SuccessRate float64 `json:"success_rate"`
	// AvgSpeedup is the mean speedup across runs.
	AvgSpeedup float64 `json:"avg_speedup"`
	// AvgLatencySeconds is the mean parallel duration across runs.
	AvgLatencySeconds float64 `json:"avg_latency_seconds"`
}

// Store wraps a SQLite database holding run records.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens the run-record database at the given path, creating parent
// directories and the schema as needed. WAL mode is enabled so the HTTP
// metrics query can read while a run is being recorded.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	prompt TEXT NOT NULL,
	mode TEXT NOT NULL,
	agent_count INTEGER NOT NULL,
	failed_count INTEGER NOT NULL,
	sequential_seconds REAL NOT NULL,
	parallel_seconds REAL NOT NULL,
	speedup REAL NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the path to the database file.
func (s *Store) Path() string {
	return s.path
}

// Record stores one completed run. A missing ID or timestamp is filled in.
func (s *Store) Record(rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(
		`INSERT INTO runs (id, prompt, mode, agent_count, failed_count,
			sequential_seconds, parallel_seconds, speedup, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Prompt, string(rec.Mode), rec.AgentCount, rec.FailedCount,
		rec.SequentialSeconds, rec.ParallelSeconds, rec.Speedup, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

// Summarize computes the aggregate metrics over all stored runs.
func (s *Store) Summarize() (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.conn.QueryRow(
		`SELECT COUNT(*),
			COALESCE(AVG(CASE WHEN failed_count = 0 THEN 100.0 ELSE 0.0 END), 0),
			COALESCE(AVG(speedup), 0),
			COALESCE(AVG(parallel_seconds), 0)
		 FROM runs`,
	)

	var sum Summary
	if err := row.Scan(&sum.TotalPrompts, &sum.SuccessRate, &sum.AvgSpeedup, &sum.AvgLatencySeconds); err != nil {
		return nil, fmt.Errorf("summarize runs: %w", err)
	}
	return &sum, nil
}

// Recent returns the most recent runs, newest first, up to limit.
func (s *Store) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query(
		`SELECT id, prompt, mode, agent_count, failed_count,
			sequential_seconds, parallel_seconds, speedup, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var mode string
		if err := rows.Scan(&rec.ID, &rec.Prompt, &mode, &rec.AgentCount, &rec.FailedCount,
			&rec.SequentialSeconds, &rec.ParallelSeconds, &rec.Speedup, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		rec.Mode = models.Mode(mode)
		records = append(records, rec)
	}
	return records, rows.Err()
}
