package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/rnistala/pocket-sync/internal/attach"
	"github.com/rnistala/pocket-sync/internal/config"
	"github.com/rnistala/pocket-sync/internal/geo"
	"github.com/rnistala/pocket-sync/internal/remote"
	"github.com/rnistala/pocket-sync/internal/schema"
	"github.com/rnistala/pocket-sync/internal/store"
)

// ErrSyncInFlight is returned when a sync trigger arrives while another
// pass is still running. The trigger is dropped; the periodic timer will
// pick the work up within one interval.
var ErrSyncInFlight = errors.New("sync pass already in flight")

// Write routing for the two uploadable entity types.
var (
	interactionWriteMeta = remote.WriteMeta{Btable: "interaction_b", Htable: "interaction_h", Draftid: "0"}
	ticketWriteMeta      = remote.WriteMeta{Btable: "ticket_b", Htable: "ticket_h", Draftid: "0"}
)

// Options wires the orchestrator's collaborators. Store and Remote are
// required; the rest default to inert implementations.
type Options struct {
	Store  store.Store
	Remote *remote.Client
	Config config.Config

	// Enrich supplies best-effort coordinates for interaction uploads.
	// Defaults to geo.None.
	Enrich geo.Enricher

	// Attach uploads pending ticket screenshots. Nil disables
	// attachment upload (screenshots stay queued).
	Attach attach.Uploader

	// Online reports current connectivity. Defaults to always-online;
	// an offline report suppresses the immediate-upload path.
	Online func() bool

	// Logger for sync activity. Nil gets a stderr default.
	Logger *log.Logger
}

// syncer implements Orchestrator.
type syncer struct {
	store  store.Store
	remote *remote.Client
	cfg    config.Config
	enrich geo.Enricher
	attach attach.Uploader
	online func() bool
	logger *log.Logger

	// inFlight serializes orchestrator passes; overlapping triggers are
	// dropped rather than queued.
	inFlight sync.Mutex

	// followups tracks scheduled contact refreshes so tests can wait on
	// them and shutdown doesn't leak timers.
	followups sync.WaitGroup
}

// New creates an Orchestrator.
func New(opts Options) (Orchestrator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Remote == nil {
		return nil, fmt.Errorf("remote client is required")
	}
	if opts.Enrich == nil {
		opts.Enrich = geo.None
	}
	if opts.Online == nil {
		opts.Online = func() bool { return true }
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &syncer{
		store:  opts.Store,
		remote: opts.Remote,
		cfg:    opts.Config,
		enrich: opts.Enrich,
		attach: opts.Attach,
		online: opts.Online,
		logger: opts.Logger,
	}, nil
}

// ready reports whether sync operations can proceed at all. Without an
// identity or endpoint, every sync function is a silent no-op.
func (s *syncer) ready() bool {
	return s.cfg.Identity.Active() && s.remote.Endpoint() != ""
}

// FullSync implements Orchestrator.FullSync.
func (s *syncer) FullSync(ctx context.Context) error {
	if !s.inFlight.TryLock() {
		return ErrSyncInFlight
	}
	defer s.inFlight.Unlock()

	if !s.ready() {
		return nil
	}

	s.logger.Printf("Starting full sync")
	start := time.Now()

	// Entity failures are independent: one entity's sync failing must
	// not stop the others.
	var failed int
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"interactions", s.syncInteractions},
		{"tickets", s.syncTickets},
		{"contacts", s.syncContacts},
		{"orders", s.syncOrders},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			s.logger.Printf("WARNING: %s sync failed: %v", step.name, err)
			failed++
		}
	}

	if err := s.store.SetMeta(ctx, store.MetaLastSync, time.Now().Format(time.RFC3339)); err != nil {
		s.logger.Printf("WARNING: failed to record sync time: %v", err)
	}

	s.logger.Printf("Full sync complete in %s (%d/%d entities failed)",
		time.Since(start).Round(time.Millisecond), failed, len(steps))
	return nil
}

// FlushInteractions implements Orchestrator.FlushInteractions.
func (s *syncer) FlushInteractions(ctx context.Context) error {
	if !s.inFlight.TryLock() {
		return ErrSyncInFlight
	}
	defer s.inFlight.Unlock()

	if !s.ready() {
		return nil
	}
	return s.flushInteractions(ctx)
}

// SyncInteractions implements Orchestrator.SyncInteractions.
func (s *syncer) SyncInteractions(ctx context.Context) error {
	if !s.inFlight.TryLock() {
		return ErrSyncInFlight
	}
	defer s.inFlight.Unlock()

	if !s.ready() {
		return nil
	}
	return s.syncInteractions(ctx)
}

// SyncTickets implements Orchestrator.SyncTickets.
func (s *syncer) SyncTickets(ctx context.Context) error {
	if !s.inFlight.TryLock() {
		return ErrSyncInFlight
	}
	defer s.inFlight.Unlock()

	if !s.ready() {
		return nil
	}
	return s.syncTickets(ctx)
}

// SyncContacts implements Orchestrator.SyncContacts.
func (s *syncer) SyncContacts(ctx context.Context) error {
	if !s.inFlight.TryLock() {
		return ErrSyncInFlight
	}
	defer s.inFlight.Unlock()

	if !s.ready() {
		return nil
	}
	return s.syncContacts(ctx)
}

// SyncOrders implements Orchestrator.SyncOrders.
func (s *syncer) SyncOrders(ctx context.Context) error {
	if !s.inFlight.TryLock() {
		return ErrSyncInFlight
	}
	defer s.inFlight.Unlock()

	if !s.ready() {
		return nil
	}
	return s.syncOrders(ctx)
}

// Stats implements Orchestrator.Stats.
func (s *syncer) Stats(ctx context.Context) (Stats, error) {
	var st Stats

	contacts, err := s.store.Contacts(ctx)
	if err != nil {
		return st, err
	}
	st.Contacts = len(contacts)

	interactions, err := s.store.Interactions(ctx)
	if err != nil {
		return st, err
	}
	st.Interactions = len(interactions)
	for _, i := range interactions {
		if i.Dirty {
			st.DirtyInteractions++
		}
	}

	tickets, err := s.store.Tickets(ctx)
	if err != nil {
		return st, err
	}
	st.Tickets = len(tickets)
	for _, t := range tickets {
		if t.SyncStatus != schema.SyncStatusSynced {
			st.PendingTickets++
		}
	}

	orders, err := s.store.Orders(ctx)
	if err != nil {
		return st, err
	}
	st.Orders = len(orders)

	lastSync, err := s.store.Meta(ctx, store.MetaLastSync)
	if err != nil {
		return st, err
	}
	if lastSync != "" {
		if ts, err := time.Parse(time.RFC3339, lastSync); err == nil {
			st.LastSync = ts
		}
	}
	return st, nil
}

// fetchAllPages walks a server view with offset/limit pagination until a
// short or empty page signals the end of data.
func (s *syncer) fetchAllPages(ctx context.Context, viewID int, extra []remote.Filter) ([]map[string]any, error) {
	pageSize := s.cfg.Sync.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}

	var all []map[string]any
	for offset := 0; ; offset += pageSize {
		page, err := s.remote.FetchPage(ctx, viewID, offset, pageSize, extra)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			break
		}
	}
	return all, nil
}
