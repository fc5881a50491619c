package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rnistala/pocket-sync/internal/schema"
)

const interactionColumns = `id, server_id, contact_id, date, type, notes,
	followup_on, dirty, sync_status`

// Interactions implements Store.Interactions.
func (db *DB) Interactions(ctx context.Context) ([]schema.Interaction, error) {
	return db.queryInteractions(ctx,
		"SELECT "+interactionColumns+" FROM interactions ORDER BY date ASC")
}

// DirtyInteractions implements Store.DirtyInteractions. Results are
// ordered by contact then date so batch uploads group naturally.
func (db *DB) DirtyInteractions(ctx context.Context) ([]schema.Interaction, error) {
	return db.queryInteractions(ctx,
		"SELECT "+interactionColumns+" FROM interactions WHERE dirty = 1 ORDER BY contact_id ASC, date ASC")
}

func (db *DB) queryInteractions(ctx context.Context, query string, args ...any) ([]schema.Interaction, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var interactions []schema.Interaction
	for rows.Next() {
		var i schema.Interaction
		var serverID, followup sql.NullString
		var dirty int
		err := rows.Scan(
			&i.ID, &serverID, &i.ContactID, &i.Date, &i.Type,
			&i.Notes, &followup, &dirty, &i.SyncStatus,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		i.ServerID = serverID.String
		i.FollowupOn = followup.String
		i.Dirty = dirty != 0
		interactions = append(interactions, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interactions: %w", err)
	}
	return interactions, nil
}

// InsertInteraction implements Store.InsertInteraction.
func (db *DB) InsertInteraction(ctx context.Context, i schema.Interaction) error {
	if err := i.Validate(); err != nil {
		return fmt.Errorf("invalid interaction: %w", err)
	}
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO interactions ("+interactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		interactionArgs(i)...)
	if err != nil {
		return fmt.Errorf("failed to insert interaction %s: %w", i.ID, err)
	}
	return nil
}

// UpsertInteraction implements Store.UpsertInteraction.
func (db *DB) UpsertInteraction(ctx context.Context, i schema.Interaction) error {
	if err := i.Validate(); err != nil {
		return fmt.Errorf("invalid interaction: %w", err)
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO interactions (`+interactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			server_id = excluded.server_id,
			contact_id = excluded.contact_id,
			date = excluded.date,
			type = excluded.type,
			notes = excluded.notes,
			followup_on = excluded.followup_on,
			dirty = excluded.dirty,
			sync_status = excluded.sync_status`,
		interactionArgs(i)...)
	if err != nil {
		return fmt.Errorf("failed to upsert interaction %s: %w", i.ID, err)
	}
	return nil
}

// InteractionCounts implements Store.InteractionCounts.
func (db *DB) InteractionCounts(ctx context.Context) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT contact_id, COUNT(*) FROM interactions GROUP BY contact_id")
	if err != nil {
		return nil, fmt.Errorf("failed to count interactions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var contactID string
		var n int
		if err := rows.Scan(&contactID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan interaction count: %w", err)
		}
		counts[contactID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interaction counts: %w", err)
	}
	return counts, nil
}

func interactionArgs(i schema.Interaction) []any {
	return []any{
		i.ID, nullIfEmpty(i.ServerID), i.ContactID, i.Date, string(i.Type),
		i.Notes, nullIfEmpty(i.FollowupOn), boolToInt(i.Dirty), string(i.SyncStatus),
	}
}
