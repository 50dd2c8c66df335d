// Package store persists conversation history, rule suggestions, and
// attention items in a local sqlite database. All stores share one
// connection guarded by a mutex; this is a single-user tool and write
// contention is not a concern.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"dataassist/internal/logging"
)

// DB wraps the shared sqlite handle.
type DB struct {
	mu   sync.Mutex
	conn *sql.DB
	now  func() time.Time
}

// Open opens (creating if needed) the database at path and applies
// migrations.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	logging.Boot("opened database at %s", path)
	return db, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}
