// Package history is an optional SQLite audit log of session lifecycle
// events and cell executions. It is purely observational: every write is
// fire-and-forget from the manager's point of view, and failures are logged
// rather than surfaced to clients.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the audit database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// SessionEvent is one lifecycle entry.
type SessionEvent struct {
	SessionID string
	Event     string
	Detail    string
	CreatedAt time.Time
}

// Execution is one recorded cell run.
type Execution struct {
	SessionID   string
	CellID      string
	Success     bool
	DurationMS  int64
	OutputCount int
	Error       string
	CreatedAt   time.Time
}

// Open creates (or reopens) the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		event TEXT NOT NULL,
		detail TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_events_session ON session_events(session_id);

	CREATE TABLE IF NOT EXISTS cell_executions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		cell_id TEXT NOT NULL,
		success INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		output_count INTEGER NOT NULL,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_executions_session ON cell_executions(session_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return nil
}

// RecordSessionEvent stores one lifecycle event.
func (s *Store) RecordSessionEvent(sessionID, event, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO session_events (session_id, event, detail) VALUES (?, ?, ?)`,
		sessionID, event, detail)
	if err != nil {
		return fmt.Errorf("failed to record session event: %w", err)
	}
	return nil
}

// RecordExecution stores one cell run.
func (s *Store) RecordExecution(e Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO cell_executions (session_id, cell_id, success, duration_ms, output_count, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.CellID, e.Success, e.DurationMS, e.OutputCount, e.Error)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

// RecentExecutions returns the newest executions of a session, newest
// first.
func (s *Store) RecentExecutions(sessionID string, limit int) ([]Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT session_id, cell_id, success, duration_ms, output_count, COALESCE(error, ''), created_at
		 FROM cell_executions WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	var out []Execution
	for rows.Next() {
		var e Execution
		if err := rows.Scan(&e.SessionID, &e.CellID, &e.Success, &e.DurationMS,
			&e.OutputCount, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SessionEvents returns a session's lifecycle events, newest first.
func (s *Store) SessionEvents(sessionID string, limit int) ([]SessionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT session_id, event, COALESCE(detail, ''), created_at
		 FROM session_events WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query session events: %w", err)
	}
	defer rows.Close()

	var out []SessionEvent
	for rows.Next() {
		var e SessionEvent
		if err := rows.Scan(&e.SessionID, &e.Event, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
