package store

import (
	"context"
	"fmt"
)

// migration is one schema version step. Statements run inside a single
// transaction; user_version is bumped on success.
type migration struct {
	version    int
	statements []string
}

// Schema history. Versions are additive with one documented exception:
// version 3 rebuilds the orders table keyed by id, which drops any
// pre-existing orders rows. Orders are a replace-on-sync cache, so the
// next successful fetch repopulates them.
var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS contacts (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL DEFAULT '',
				company TEXT NOT NULL DEFAULT '',
				city TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT '',
				followup_on TEXT,
				last_notes TEXT NOT NULL DEFAULT '',
				phone TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				profile TEXT NOT NULL DEFAULT '',
				score INTEGER NOT NULL DEFAULT 0,
				starred INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS interactions (
				id TEXT PRIMARY KEY,
				server_id TEXT,
				contact_id TEXT NOT NULL DEFAULT '',
				date TEXT NOT NULL DEFAULT '',
				type TEXT NOT NULL DEFAULT '',
				notes TEXT NOT NULL DEFAULT '',
				followup_on TEXT,
				dirty INTEGER NOT NULL DEFAULT 1,
				sync_status TEXT NOT NULL DEFAULT 'local'
			)`,
			`CREATE INDEX IF NOT EXISTS idx_interactions_contact
				ON interactions(contact_id)`,
			`CREATE TABLE IF NOT EXISTS metadata (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL DEFAULT ''
			)`,
			// Original orders layout: keyed by rowid only. Replaced in v3.
			`CREATE TABLE IF NOT EXISTS orders (
				id TEXT,
				fields TEXT NOT NULL DEFAULT '{}'
			)`,
		},
	},
	{
		version: 2,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS tickets (
				id INTEGER NOT NULL,
				id_kind TEXT NOT NULL,
				ticket_id TEXT NOT NULL DEFAULT '',
				contact_id TEXT NOT NULL DEFAULT '',
				reported_date TEXT NOT NULL DEFAULT '',
				target_date TEXT NOT NULL DEFAULT '',
				close_date TEXT,
				issue_type TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'OPEN',
				description TEXT NOT NULL DEFAULT '',
				remarks TEXT,
				root_cause TEXT,
				screenshots TEXT NOT NULL DEFAULT '[]',
				photo TEXT NOT NULL DEFAULT '[]',
				priority INTEGER NOT NULL DEFAULT 0,
				effort_minutes INTEGER NOT NULL DEFAULT 0,
				assigned_to TEXT,
				sync_status TEXT NOT NULL DEFAULT 'pending',
				PRIMARY KEY (id_kind, id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_tickets_contact
				ON tickets(contact_id)`,
			`CREATE INDEX IF NOT EXISTS idx_tickets_status
				ON tickets(status)`,
		},
	},
	{
		// Breaking change: orders re-keyed by id. Pre-existing rows of
		// this table only are dropped.
		version: 3,
		statements: []string{
			`DROP TABLE IF EXISTS orders`,
			`CREATE TABLE orders (
				id TEXT PRIMARY KEY,
				fields TEXT NOT NULL DEFAULT '{}'
			)`,
		},
	},
}

// migrate brings the database to the latest schema version. Opening an
// older database applies only the missing steps; opening a current one is
// a no-op.
func (db *DB) migrate(ctx context.Context) error {
	var current int
	if err := db.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}

		for _, stmt := range m.statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
		}

		// PRAGMA does not take bind parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
	}

	return nil
}

// SchemaVersion reports the store's current schema version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := db.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}
