package sync

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rnistala/pocket-sync/internal/remote"
	"github.com/rnistala/pocket-sync/internal/schema"
)

// RecordInteraction implements Orchestrator.RecordInteraction.
//
// The record is persisted dirty first, so nothing is lost if the
// immediate upload fails or the process dies mid-flight.
func (s *syncer) RecordInteraction(ctx context.Context, in schema.Interaction) (schema.Interaction, error) {
	in.Dirty = true
	in.SyncStatus = schema.SyncStatusLocal

	if err := s.store.InsertInteraction(ctx, in); err != nil {
		return in, fmt.Errorf("failed to persist interaction: %w", err)
	}

	if !s.online() || !s.ready() {
		return in, nil
	}

	if err := s.uploadInteraction(ctx, &in); err != nil {
		// Stays dirty; the periodic flush or the next online
		// transition retries it.
		s.logger.Printf("WARNING: immediate upload of interaction %s failed: %v", in.ID, err)
		return in, nil
	}
	return in, nil
}

// uploadInteraction sends one interaction to the server and, on success,
// marks it synced with the server-assigned identity. The upload is
// enriched with best-effort coordinates; an empty result never blocks it.
//
// A successful upload schedules a short-delay refresh of the owning
// contact, picking up any server-computed fields the write triggered.
func (s *syncer) uploadInteraction(ctx context.Context, in *schema.Interaction) error {
	body := map[string]any{
		"id":          in.ID,
		"contact_id":  in.ContactID,
		"date":        in.Date,
		"type":        string(in.Type),
		"notes":       in.Notes,
		"followup_on": in.FollowupOn,
		"user_id":     s.cfg.Identity.UserID,
	}
	if coords, ok := s.enrich(ctx); ok {
		body["lat"] = coords.Lat
		body["lon"] = coords.Lon
	}

	result, err := s.remote.Write(ctx, interactionWriteMeta, body)
	if err != nil {
		return err
	}

	in.MarkSynced(strconv.FormatInt(result.ID, 10))
	if err := s.store.UpsertInteraction(ctx, *in); err != nil {
		return fmt.Errorf("failed to persist synced interaction: %w", err)
	}

	s.scheduleContactRefresh(in.ContactID)
	return nil
}

// scheduleContactRefresh fetches the owning contact's authoritative
// fields after a short delay.
func (s *syncer) scheduleContactRefresh(contactID string) {
	delay := s.cfg.Sync.FollowupDelay
	if delay <= 0 {
		delay = 3 * time.Second
	}

	s.followups.Add(1)
	time.AfterFunc(delay, func() {
		defer s.followups.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.refreshContact(ctx, contactID); err != nil {
			s.logger.Printf("WARNING: follow-up fetch for contact %s failed: %v", contactID, err)
		}
	})
}

// refreshContact fetches a single contact's server state and upserts it.
func (s *syncer) refreshContact(ctx context.Context, contactID string) error {
	filter := []remote.Filter{remote.EqualsFilter("contacts", "id", contactID)}
	page, err := s.remote.FetchPage(ctx, s.cfg.API.ContactsView, 0, 1, filter)
	if err != nil {
		return err
	}
	if len(page) == 0 {
		return nil
	}
	c := schema.ContactFromServer(page[0])
	if c.ID == "" {
		return nil
	}
	return s.store.UpsertContact(ctx, c)
}

// flushInteractions batch-uploads every dirty interaction, grouped by
// owning contact, sequentially per group. The first failure aborts the
// pass; everything not yet uploaded stays dirty for the next one.
func (s *syncer) flushInteractions(ctx context.Context) error {
	dirty, err := s.store.DirtyInteractions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load dirty interactions: %w", err)
	}
	if len(dirty) == 0 {
		return nil
	}

	groups := make(map[string][]schema.Interaction)
	for _, in := range dirty {
		groups[in.ContactID] = append(groups[in.ContactID], in)
	}
	contactIDs := make([]string, 0, len(groups))
	for id := range groups {
		contactIDs = append(contactIDs, id)
	}
	sort.Strings(contactIDs)

	var uploaded int
	for _, contactID := range contactIDs {
		for _, in := range groups[contactID] {
			in := in
			if err := s.uploadInteraction(ctx, &in); err != nil {
				s.logger.Printf("WARNING: flush stopped at interaction %s (%d/%d uploaded): %v",
					in.ID, uploaded, len(dirty), err)
				return err
			}
			uploaded++
		}
	}

	s.logger.Printf("Flushed %d dirty interactions", uploaded)
	return nil
}

// syncInteractions flushes dirty records, merges the server's interaction
// set, and recomputes contact scores.
//
// The merge is append/merge: server records are matched to local ones by
// server id; locally dirty records are never overwritten and nothing is
// ever deleted (interactions are an append-only log).
func (s *syncer) syncInteractions(ctx context.Context) error {
	if err := s.flushInteractions(ctx); err != nil {
		s.logger.Printf("WARNING: continuing to download with records still dirty: %v", err)
	}

	records, err := s.fetchAllPages(ctx, s.cfg.API.InteractionsView, s.scopeFilter("interactions"))
	if err != nil {
		// Malformed or failed fetch: keep local data untouched.
		return fmt.Errorf("interaction fetch failed: %w", err)
	}

	local, err := s.store.Interactions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local interactions: %w", err)
	}
	byServerID := make(map[string]schema.Interaction, len(local))
	for _, in := range local {
		if in.ServerID != "" {
			byServerID[in.ServerID] = in
		}
	}

	for _, rec := range records {
		serverID := interactionServerID(rec)
		if serverID == "" {
			continue
		}

		if existing, ok := byServerID[serverID]; ok {
			if existing.Dirty {
				continue
			}
			merged := interactionFromServer(rec, existing.ID, serverID)
			if err := s.store.UpsertInteraction(ctx, merged); err != nil {
				return err
			}
			continue
		}

		merged := interactionFromServer(rec, "", serverID)
		if err := s.store.UpsertInteraction(ctx, merged); err != nil {
			return err
		}
	}

	return s.recomputeScores(ctx)
}

// recomputeScores re-derives every contact's score from the interaction
// counts. Runs whenever interactions merge.
func (s *syncer) recomputeScores(ctx context.Context) error {
	counts, err := s.store.InteractionCounts(ctx)
	if err != nil {
		return err
	}
	contacts, err := s.store.Contacts(ctx)
	if err != nil {
		return err
	}
	for _, c := range contacts {
		if n := counts[c.ID]; n != c.Score {
			c.Score = n
			if err := s.store.UpsertContact(ctx, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// interactionServerID extracts the server identity from a fetched record.
func interactionServerID(rec map[string]any) string {
	switch id := rec["id"].(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	default:
		return ""
	}
}

// interactionFromServer normalizes a fetched record. localID is reused
// when the record already exists locally; otherwise the server-scoped id
// doubles as the local key.
func interactionFromServer(rec map[string]any, localID, serverID string) schema.Interaction {
	if localID == "" {
		if lid, ok := rec["local_id"].(string); ok && lid != "" {
			localID = lid
		} else {
			localID = "srv-" + serverID
		}
	}
	typ := schema.InteractionType(stringOr(rec, "type", string(schema.InteractionCall)))
	if !schema.ValidInteractionType(typ) {
		typ = schema.InteractionCall
	}
	return schema.Interaction{
		ID:         localID,
		ServerID:   serverID,
		ContactID:  stringOr(rec, "contact_id", ""),
		Date:       stringOr(rec, "date", ""),
		Type:       typ,
		Notes:      stringOr(rec, "notes", ""),
		FollowupOn: stringOr(rec, "followup_on", ""),
		Dirty:      false,
		SyncStatus: schema.SyncStatusSynced,
	}
}

func stringOr(rec map[string]any, key, fallback string) string {
	if v, ok := rec[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
