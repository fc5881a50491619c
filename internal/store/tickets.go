package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rnistala/pocket-sync/internal/schema"
)

const ticketColumns = `id, id_kind, ticket_id, contact_id, reported_date,
	target_date, close_date, issue_type, status, description, remarks,
	root_cause, screenshots, photo, priority, effort_minutes, assigned_to,
	sync_status`

// Tickets implements Store.Tickets.
func (db *DB) Tickets(ctx context.Context) ([]schema.Ticket, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets ORDER BY reported_date ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []schema.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}
	return tickets, nil
}

// ReplaceTickets implements Store.ReplaceTickets.
func (db *DB) ReplaceTickets(ctx context.Context, tickets []schema.Ticket) error {
	return db.replaceAll(ctx, "tickets", len(tickets), func(tx *sql.Tx, i int) error {
		return insertTicketTx(ctx, tx, tickets[i])
	})
}

// InsertTicket implements Store.InsertTicket.
func (db *DB) InsertTicket(ctx context.Context, t schema.Ticket) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid ticket: %w", err)
	}
	args, err := ticketArgs(t)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx,
		"INSERT INTO tickets ("+ticketColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		args...)
	if err != nil {
		return fmt.Errorf("failed to insert ticket %s: %w", t.Identity, err)
	}
	return nil
}

// UpsertTicket implements Store.UpsertTicket.
func (db *DB) UpsertTicket(ctx context.Context, t schema.Ticket) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid ticket: %w", err)
	}
	args, err := ticketArgs(t)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO tickets (`+ticketColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id_kind, id) DO UPDATE SET
			ticket_id = excluded.ticket_id,
			contact_id = excluded.contact_id,
			reported_date = excluded.reported_date,
			target_date = excluded.target_date,
			close_date = excluded.close_date,
			issue_type = excluded.issue_type,
			status = excluded.status,
			description = excluded.description,
			remarks = excluded.remarks,
			root_cause = excluded.root_cause,
			screenshots = excluded.screenshots,
			photo = excluded.photo,
			priority = excluded.priority,
			effort_minutes = excluded.effort_minutes,
			assigned_to = excluded.assigned_to,
			sync_status = excluded.sync_status`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to upsert ticket %s: %w", t.Identity, err)
	}
	return nil
}

// SwapTicketIdentity implements Store.SwapTicketIdentity.
func (db *DB) SwapTicketIdentity(ctx context.Context, old schema.TicketIdentity, t schema.Ticket) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid ticket: %w", err)
	}
	args, err := ticketArgs(t)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin identity swap: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM tickets WHERE id_kind = ? AND id = ?",
		string(old.Kind), old.ID); err != nil {
		return fmt.Errorf("failed to remove ticket %s: %w", old, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO tickets ("+ticketColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		args...); err != nil {
		return fmt.Errorf("failed to insert ticket %s: %w", t.Identity, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit identity swap: %w", err)
	}
	return nil
}

func insertTicketTx(ctx context.Context, tx *sql.Tx, t schema.Ticket) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid ticket: %w", err)
	}
	args, err := ticketArgs(t)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO tickets ("+ticketColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		args...)
	if err != nil {
		return fmt.Errorf("failed to insert ticket %s: %w", t.Identity, err)
	}
	return nil
}

func ticketArgs(t schema.Ticket) ([]any, error) {
	screenshots, err := json.Marshal(t.Screenshots)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal screenshots: %w", err)
	}
	photo, err := json.Marshal(t.Photo)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal photo: %w", err)
	}
	return []any{
		t.Identity.ID, string(t.Identity.Kind), t.TicketID, t.ContactID,
		t.ReportedDate, t.TargetDate, nullIfEmpty(t.ClosedDate),
		t.IssueType, string(t.Status), t.Description,
		nullIfEmpty(t.Remarks), nullIfEmpty(t.RootCause),
		string(screenshots), string(photo), boolToInt(t.Priority),
		t.EffortMinutes, nullIfEmpty(t.AssignedTo), string(t.SyncStatus),
	}, nil
}

func scanTicket(rows *sql.Rows) (schema.Ticket, error) {
	var t schema.Ticket
	var kind string
	var closeDate, remarks, rootCause, assignedTo sql.NullString
	var screenshots, photo string
	var priority int

	err := rows.Scan(
		&t.Identity.ID, &kind, &t.TicketID, &t.ContactID,
		&t.ReportedDate, &t.TargetDate, &closeDate,
		&t.IssueType, &t.Status, &t.Description,
		&remarks, &rootCause, &screenshots, &photo,
		&priority, &t.EffortMinutes, &assignedTo, &t.SyncStatus,
	)
	if err != nil {
		return schema.Ticket{}, fmt.Errorf("failed to scan ticket: %w", err)
	}

	t.Identity.Kind = schema.IdentityKind(kind)
	t.ClosedDate = closeDate.String
	t.Remarks = remarks.String
	t.RootCause = rootCause.String
	t.AssignedTo = assignedTo.String
	t.Priority = priority != 0

	if screenshots != "" && screenshots != "null" {
		if err := json.Unmarshal([]byte(screenshots), &t.Screenshots); err != nil {
			return schema.Ticket{}, fmt.Errorf("failed to unmarshal screenshots: %w", err)
		}
	}
	if photo != "" && photo != "null" {
		if err := json.Unmarshal([]byte(photo), &t.Photo); err != nil {
			return schema.Ticket{}, fmt.Errorf("failed to unmarshal photo: %w", err)
		}
	}
	return t, nil
}
