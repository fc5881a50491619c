package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rnistala/pocket-sync/internal/schema"
)

const contactColumns = `id, name, company, city, status, followup_on,
	last_notes, phone, email, profile, score, starred`

// Contacts implements Store.Contacts.
func (db *DB) Contacts(ctx context.Context) ([]schema.Contact, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+contactColumns+" FROM contacts ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []schema.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}
	return contacts, nil
}

// ReplaceContacts implements Store.ReplaceContacts.
func (db *DB) ReplaceContacts(ctx context.Context, contacts []schema.Contact) error {
	return db.replaceAll(ctx, "contacts", len(contacts), func(tx *sql.Tx, i int) error {
		return insertContact(ctx, tx, contacts[i])
	})
}

// UpsertContact implements Store.UpsertContact.
func (db *DB) UpsertContact(ctx context.Context, c schema.Contact) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid contact: %w", err)
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO contacts (`+contactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			company = excluded.company,
			city = excluded.city,
			status = excluded.status,
			followup_on = excluded.followup_on,
			last_notes = excluded.last_notes,
			phone = excluded.phone,
			email = excluded.email,
			profile = excluded.profile,
			score = excluded.score,
			starred = excluded.starred`,
		contactArgs(c)...)
	if err != nil {
		return fmt.Errorf("failed to upsert contact %s: %w", c.ID, err)
	}
	return nil
}

func insertContact(ctx context.Context, tx *sql.Tx, c schema.Contact) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid contact: %w", err)
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO contacts ("+contactColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		contactArgs(c)...)
	if err != nil {
		return fmt.Errorf("failed to insert contact %s: %w", c.ID, err)
	}
	return nil
}

func contactArgs(c schema.Contact) []any {
	return []any{
		c.ID, c.Name, c.Company, c.City, c.Status,
		nullIfEmpty(c.FollowupOn), c.LastNotes, c.Phone, c.Email,
		c.Profile, c.Score, boolToInt(c.Starred),
	}
}

func scanContact(rows *sql.Rows) (schema.Contact, error) {
	var c schema.Contact
	var followup sql.NullString
	var starred int
	err := rows.Scan(
		&c.ID, &c.Name, &c.Company, &c.City, &c.Status,
		&followup, &c.LastNotes, &c.Phone, &c.Email,
		&c.Profile, &c.Score, &starred,
	)
	if err != nil {
		return schema.Contact{}, fmt.Errorf("failed to scan contact: %w", err)
	}
	c.FollowupOn = followup.String
	c.Starred = starred != 0
	return c, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
