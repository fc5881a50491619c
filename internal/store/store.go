// Package store provides the persistent local copy of CRM entities.
//
// The store is an embedded SQLite database (ncruces/go-sqlite3) with one
// table per entity type plus a small metadata table for engine
// bookkeeping. It runs in WAL mode so the dashboard and CLI can read
// while a sync pass writes.
//
// The store owns the engine's cache-invalidation boundary: when the
// active identity or remote endpoint differs from the values recorded at
// the previous run, every entity table is wiped before any data is
// surfaced to callers. This prevents one identity's data leaking into
// another's view.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rnistala/pocket-sync/internal/schema"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Metadata keys used for engine bookkeeping.
const (
	MetaLastSync   = "lastSync"
	MetaAPIRoot    = "apiRoot"
	MetaLastUserID = "lastUserId"
)

// Store is the persistence contract the sync orchestrator depends on.
// The production implementation is *DB; tests may substitute their own.
type Store interface {
	// Contacts returns every contact in the store.
	Contacts(ctx context.Context) ([]schema.Contact, error)
	// ReplaceContacts atomically clears and repopulates the contacts table.
	ReplaceContacts(ctx context.Context, contacts []schema.Contact) error
	// UpsertContact inserts or overwrites a contact by id.
	UpsertContact(ctx context.Context, c schema.Contact) error

	// Interactions returns every interaction in the store.
	Interactions(ctx context.Context) ([]schema.Interaction, error)
	// DirtyInteractions returns interactions awaiting server confirmation.
	DirtyInteractions(ctx context.Context) ([]schema.Interaction, error)
	// InsertInteraction adds a new interaction; it fails if the id exists.
	InsertInteraction(ctx context.Context, i schema.Interaction) error
	// UpsertInteraction inserts or overwrites an interaction by id.
	UpsertInteraction(ctx context.Context, i schema.Interaction) error
	// InteractionCounts returns the interaction count per contact id.
	InteractionCounts(ctx context.Context) (map[string]int, error)

	// Tickets returns every ticket in the store.
	Tickets(ctx context.Context) ([]schema.Ticket, error)
	// ReplaceTickets atomically clears and repopulates the tickets table.
	ReplaceTickets(ctx context.Context, tickets []schema.Ticket) error
	// InsertTicket adds a new ticket; it fails if the identity exists.
	InsertTicket(ctx context.Context, t schema.Ticket) error
	// UpsertTicket inserts or overwrites a ticket by identity.
	UpsertTicket(ctx context.Context, t schema.Ticket) error
	// SwapTicketIdentity replaces a ticket stored under old with t, in one
	// transaction. Used when the server assigns a permanent id to a
	// locally created ticket.
	SwapTicketIdentity(ctx context.Context, old schema.TicketIdentity, t schema.Ticket) error

	// Orders returns every cached order.
	Orders(ctx context.Context) ([]schema.Order, error)
	// ReplaceOrders atomically clears and repopulates the orders table.
	ReplaceOrders(ctx context.Context, orders []schema.Order) error

	// Meta returns the metadata value for key, or "" when absent.
	Meta(ctx context.Context, key string) (string, error)
	// SetMeta stores a metadata value.
	SetMeta(ctx context.Context, key, value string) error

	Close() error
}

// DB is the SQLite-backed Store implementation.
type DB struct {
	conn *sql.DB
	path string
}

var _ Store = (*DB)(nil)

// Open creates or opens the local store at path and brings its schema up
// to the current version. Safe to call against an existing database;
// schema initialization is idempotent and migrations are applied as
// needed.
//
// The caller MUST call Close() when done.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	// Single-writer engine; a small pool covers dashboard reads.
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.conn.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := db.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the store, checkpointing the WAL first.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	db.conn = nil
	return nil
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// EnsureIdentity enforces the cache-invalidation boundary. If the stored
// identity or endpoint differs from the values passed in, all entity
// tables are wiped and the metadata reset. It must be called after Open
// and before any table is read.
//
// Returns true when a wipe occurred.
func (db *DB) EnsureIdentity(ctx context.Context, userID, apiRoot string) (bool, error) {
	lastUser, err := db.Meta(ctx, MetaLastUserID)
	if err != nil {
		return false, err
	}
	lastRoot, err := db.Meta(ctx, MetaAPIRoot)
	if err != nil {
		return false, err
	}

	changed := (lastUser != "" && lastUser != userID) ||
		(lastRoot != "" && lastRoot != apiRoot)

	if changed {
		if err := db.wipe(ctx); err != nil {
			return false, err
		}
	}

	if err := db.SetMeta(ctx, MetaLastUserID, userID); err != nil {
		return changed, err
	}
	if err := db.SetMeta(ctx, MetaAPIRoot, apiRoot); err != nil {
		return changed, err
	}
	return changed, nil
}

// wipe clears every entity table and resets metadata in one transaction.
func (db *DB) wipe(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin wipe: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"contacts", "interactions", "orders", "tickets", "metadata"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to wipe %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit wipe: %w", err)
	}
	return nil
}

// replaceAll clears a table and repopulates it inside one transaction.
// insert is called once per record with the open transaction.
func (db *DB) replaceAll(ctx context.Context, table string, n int, insert func(tx *sql.Tx, i int) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin replace of %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	for i := 0; i < n; i++ {
		if err := insert(tx, i); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace of %s: %w", table, err)
	}
	return nil
}

// Meta implements Store.Meta.
func (db *DB) Meta(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.QueryRowContext(ctx,
		"SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read metadata %s: %w", key, err)
	}
	return value, nil
}

// SetMeta implements Store.SetMeta.
func (db *DB) SetMeta(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write metadata %s: %w", key, err)
	}
	return nil
}
