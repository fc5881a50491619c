package sync

import (
	"context"
	"time"

	"github.com/rnistala/pocket-sync/internal/schema"
)

// Orchestrator is the engine's public surface.
//
// All operations tolerate being called without connectivity or without an
// active identity: they leave local state dirty, or do nothing, and
// return without a hard error. Callers must expect sync methods to be
// silent no-ops when not authenticated.
type Orchestrator interface {
	// RecordInteraction persists a new interaction locally (dirty, sync
	// status "local") and, when online with an active identity, attempts
	// an immediate upload of just that record. Upload failure is not an
	// error: the record stays dirty for a later pass.
	//
	// The returned interaction reflects the post-upload state (server id
	// and sync status when the upload succeeded).
	RecordInteraction(ctx context.Context, in schema.Interaction) (schema.Interaction, error)

	// FlushInteractions batch-uploads every currently dirty interaction,
	// grouped by owning contact, sequentially per group. A failure
	// partway through leaves the remaining records dirty for the next
	// pass; there is no per-item rollback.
	//
	// Returns ErrSyncInFlight when another pass is already running.
	FlushInteractions(ctx context.Context) error

	// SyncInteractions flushes dirty interactions and then merges the
	// server's interaction set (append/merge: locally dirty records are
	// never overwritten or removed).
	SyncInteractions(ctx context.Context) error

	// SyncTickets runs the two-phase ticket sync: upload every
	// not-yet-synced ticket (screenshots first, then create or update
	// depending on identity), then fetch the authoritative set in pages
	// and merge by ticket id.
	SyncTickets(ctx context.Context) error

	// SyncContacts fetches contacts in pages and performs a replace
	// merge: the server value wins for every field. A restricted
	// identity that sees zero contacts gets a single synthesized
	// fallback contact.
	SyncContacts(ctx context.Context) error

	// SyncOrders replaces the orders cache with the server's set.
	SyncOrders(ctx context.Context) error

	// FullSync runs every entity sync in order and records the sync
	// timestamp. Returns ErrSyncInFlight when another pass is running.
	FullSync(ctx context.Context) error

	// Stats summarizes sync state for status displays.
	Stats(ctx context.Context) (Stats, error)
}

// Stats is a lightweight snapshot of the engine's sync state.
type Stats struct {
	Contacts          int
	Interactions      int
	DirtyInteractions int
	Tickets           int
	PendingTickets    int
	Orders            int
	LastSync          time.Time
}
