package sync

import (
	"context"
	"fmt"

	"github.com/rnistala/pocket-sync/internal/schema"
)

// syncTickets runs the two-phase ticket sync: upload, then download and
// merge. The phases always run in this order so a freshly created ticket
// has its server identity before the download tries to match it.
func (s *syncer) syncTickets(ctx context.Context) error {
	s.uploadTickets(ctx)
	return s.downloadTickets(ctx)
}

// uploadTickets pushes every not-yet-synced ticket. Each upload is
// independent: one ticket's failure is logged and does not block the
// others, and the local copy is never reverted.
func (s *syncer) uploadTickets(ctx context.Context) {
	tickets, err := s.store.Tickets(ctx)
	if err != nil {
		s.logger.Printf("WARNING: failed to load tickets for upload: %v", err)
		return
	}

	var uploaded, failed int
	for _, t := range tickets {
		if t.SyncStatus == schema.SyncStatusSynced {
			continue
		}
		if err := s.uploadTicket(ctx, t); err != nil {
			s.logger.Printf("WARNING: failed to upload ticket %s: %v", t.Identity, err)
			failed++
			continue
		}
		uploaded++
	}

	if uploaded+failed > 0 {
		s.logger.Printf("Ticket upload phase: %d uploaded, %d still dirty", uploaded, failed)
	}
}

// uploadTicket pushes one ticket: pending screenshots first, then a
// create or update depending on whether the server has seen it.
func (s *syncer) uploadTicket(ctx context.Context, t schema.Ticket) error {
	if len(t.Screenshots) > 0 && s.attach != nil {
		attachments := s.attach.Upload(ctx, s.cfg.Identity.UserID, t.Screenshots)
		if len(attachments) > 0 {
			t.Photo = append(t.Photo, attachments...)
			t.Screenshots = nil
			// Persist the confirmed metadata now so a failed write
			// below cannot lose it.
			if err := s.store.UpsertTicket(ctx, t); err != nil {
				return fmt.Errorf("failed to persist attachments: %w", err)
			}
		}
	}

	if t.Identity.IsLocal() {
		return s.createTicket(ctx, t)
	}
	return s.updateTicket(ctx, t)
}

// createTicket issues the first upload for a locally created ticket. On
// success the temporary identity is replaced by the server-issued one and
// the human-facing ticket identifier is captured.
func (s *syncer) createTicket(ctx context.Context, t schema.Ticket) error {
	result, err := s.remote.Write(ctx, ticketWriteMeta, s.ticketBody(t, false))
	if err != nil {
		return err
	}

	old := t.Identity
	t.Identity = schema.RemoteIdentity(result.ID)
	t.TicketID = result.TicketID
	t.SyncStatus = schema.SyncStatusSynced

	if err := s.store.SwapTicketIdentity(ctx, old, t); err != nil {
		return fmt.Errorf("failed to adopt server identity: %w", err)
	}
	s.logger.Printf("Created ticket %s (%s)", t.TicketID, t.Identity)
	return nil
}

// updateTicket re-uploads the full field set of a server-known ticket.
func (s *syncer) updateTicket(ctx context.Context, t schema.Ticket) error {
	if _, err := s.remote.Write(ctx, ticketWriteMeta, s.ticketBody(t, true)); err != nil {
		return err
	}

	t.SyncStatus = schema.SyncStatusSynced
	if err := s.store.UpsertTicket(ctx, t); err != nil {
		return fmt.Errorf("failed to persist synced ticket: %w", err)
	}
	s.logger.Printf("Updated ticket %s (%s)", t.TicketID, t.Identity)
	return nil
}

// ticketBody flattens a ticket for the write envelope. The close
// timestamp travels only when the ticket is CLOSED.
func (s *syncer) ticketBody(t schema.Ticket, update bool) map[string]any {
	body := map[string]any{
		"contact_id":     t.ContactID,
		"reported_date":  t.ReportedDate,
		"target_date":    t.TargetDate,
		"issue_type":     t.IssueType,
		"status":         string(t.Status),
		"description":    t.Description,
		"remarks":        t.Remarks,
		"root_cause":     t.RootCause,
		"photo":          t.Photo,
		"priority":       t.Priority,
		"effort_minutes": t.EffortMinutes,
		"assigned_to":    t.AssignedTo,
		"user_id":        s.cfg.Identity.UserID,
	}
	if t.Status == schema.StatusClosed {
		body["close_date"] = t.ClosedDate
	}
	if update {
		body["id"] = t.Identity.ID
		body["ticket_id"] = t.TicketID
	}
	return body
}

// downloadTickets fetches the authoritative ticket set and merges it into
// the local store.
func (s *syncer) downloadTickets(ctx context.Context) error {
	records, err := s.fetchAllPages(ctx, s.cfg.API.TicketsView, s.scopeFilter("tickets"))
	if err != nil {
		// Local data stays untouched on a failed or malformed fetch.
		return fmt.Errorf("ticket fetch failed: %w", err)
	}

	var fetched []schema.Ticket
	for _, rec := range records {
		if !hasServerID(rec) {
			// Cannot be merged safely without a server identity.
			s.logger.Printf("WARNING: discarding ticket record with no server id")
			continue
		}
		fetched = append(fetched, schema.TicketFromServer(rec))
	}

	// Load fresh from the store, not from any in-memory copy, to avoid
	// racing concurrent local mutations.
	local, err := s.store.Tickets(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local tickets: %w", err)
	}

	merged := mergeTickets(local, fetched)
	if err := s.store.ReplaceTickets(ctx, merged); err != nil {
		return fmt.Errorf("failed to store merged tickets: %w", err)
	}

	s.logger.Printf("Ticket download phase: %d fetched, %d after merge", len(fetched), len(merged))
	return nil
}

// mergeTickets applies the server's ticket set over the local one.
//
// Rules, in order:
//   - A server record matching a local ticket by TicketID overwrites it,
//     except a local copy not yet confirmed as synced keeps its local
//     identity (preserving the create-phase handoff ordering).
//   - A server record with no local match is net-new and appended.
//   - A local ticket absent from the server set is dropped unless its
//     sync status is "pending" — this propagates server-side deletion
//     while always retaining records still awaiting upload.
func mergeTickets(local, fetched []schema.Ticket) []schema.Ticket {
	matched := make(map[string]bool, len(fetched))
	localByTicketID := make(map[string]schema.Ticket, len(local))
	for _, l := range local {
		if l.TicketID != "" {
			localByTicketID[l.TicketID] = l
		}
	}

	merged := make([]schema.Ticket, 0, len(fetched))
	for _, sv := range fetched {
		if l, ok := localByTicketID[sv.TicketID]; ok && sv.TicketID != "" {
			matched[sv.TicketID] = true
			if l.SyncStatus != schema.SyncStatusSynced {
				sv.Identity = l.Identity
			}
			merged = append(merged, sv)
			continue
		}
		merged = append(merged, sv)
	}

	for _, l := range local {
		if l.TicketID != "" && matched[l.TicketID] {
			continue
		}
		// The server no longer returns this ticket. Retain it only while
		// it still awaits upload; a previously synced record missing from
		// the server set was deleted server-side.
		if l.SyncStatus == schema.SyncStatusPending {
			merged = append(merged, l)
		}
	}
	return merged
}

// hasServerID reports whether a fetched record carries a usable numeric
// server identity.
func hasServerID(rec map[string]any) bool {
	switch id := rec["id"].(type) {
	case float64:
		return id != 0
	case string:
		return id != "" && id != "0"
	default:
		return false
	}
}
