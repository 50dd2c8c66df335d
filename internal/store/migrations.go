package store

import (
	"fmt"

	"dataassist/internal/logging"
)

// migrations run in order; each entry is one schema version. New schema
// changes append entries, never edit old ones.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS conversation_turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scope_key TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_scope ON conversation_turns(scope_key, id);`,

	`CREATE TABLE IF NOT EXISTS rule_suggestions (
		id TEXT PRIMARY KEY,
		account TEXT NOT NULL,
		pattern_type TEXT NOT NULL,
		pattern_value TEXT NOT NULL,
		suggested_label TEXT NOT NULL,
		email_count INTEGER NOT NULL,
		confidence REAL NOT NULL,
		examples TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_suggestions_pattern
		ON rule_suggestions(account, pattern_type, pattern_value);`,

	`CREATE TABLE IF NOT EXISTS attention_items (
		id TEXT PRIMARY KEY,
		account TEXT NOT NULL,
		email_id TEXT NOT NULL,
		from_address TEXT NOT NULL,
		subject TEXT NOT NULL,
		reason TEXT NOT NULL,
		evidence TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attention_status ON attention_items(account, status);`,
}

func (d *DB) migrate() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	var version int
	row := d.conn.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		if _, err := d.conn.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := d.conn.Exec(`INSERT INTO schema_version(version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
		logging.StoreDebug("applied migration %d", i+1)
	}
	return nil
}
