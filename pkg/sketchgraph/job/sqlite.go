package job

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore keeps job status in SQLite so status polls survive a
// process restart. Only the current value per job is stored, no history.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewSQLiteStore creates a SQLite job store. The path should be a file
// path (e.g. "./jobs.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS job_status (
			job_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			updated TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(id string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", false, ErrStoreClosed
	}

	var status string
	err := s.db.QueryRow(`SELECT status FROM job_status WHERE job_id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get status: %w", err)
	}
	return status, true, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO job_status (job_id, status, updated) VALUES (?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			status = excluded.status,
			updated = excluded.updated
	`, id, status, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// CompareAndSet implements Store. The read-check-write runs inside one
// transaction under the store mutex, so the swap is atomic per key.
func (s *SQLiteStore) CompareAndSet(id, next string, allow func(current string, exists bool) bool) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", false, ErrStoreClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	exists := true
	err = tx.QueryRow(`SELECT status FROM job_status WHERE job_id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		exists = false
	} else if err != nil {
		return "", false, fmt.Errorf("read status: %w", err)
	}

	if !allow(current, exists) {
		return current, false, nil
	}

	if _, err := tx.Exec(`
		INSERT INTO job_status (job_id, status, updated) VALUES (?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			status = excluded.status,
			updated = excluded.updated
	`, id, next, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return "", false, fmt.Errorf("write status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("commit: %w", err)
	}
	return current, true, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
