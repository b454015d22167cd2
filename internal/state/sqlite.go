package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists the processed set in a SQLite database so it
// survives restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at dbPath, creating the
// schema and any missing parent directories.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create state schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS processed_files (
		path TEXT PRIMARY KEY,
		processed_at TEXT NOT NULL
	)`)
	return err
}

// Contains reports whether the path was already processed.
func (s *SQLiteStore) Contains(ctx context.Context, path string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM processed_files WHERE path = ?`, path,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query processed files: %w", err)
	}
	return count > 0, nil
}

// Add marks the path as processed.
func (s *SQLiteStore) Add(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_files (path, processed_at) VALUES (?, ?)`,
		path, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record processed file: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*SQLiteStore)(nil)
