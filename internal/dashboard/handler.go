package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/rnistala/pocket-sync/internal/sync"
)

// Handler bridges engine state to dashboard broadcasts. It polls the
// orchestrator's stats on an interval and exposes event hooks for sync
// completions and connectivity transitions.
type Handler struct {
	server *Server
	engine sync.Orchestrator
	online func() bool
	logger *log.Logger
}

// NewHandler creates an event handler connected to a dashboard server.
func NewHandler(server *Server, engine sync.Orchestrator, online func() bool, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	if online == nil {
		online = func() bool { return true }
	}
	return &Handler{
		server: server,
		engine: engine,
		online: online,
		logger: logger,
	}
}

// Run polls and broadcasts stats until ctx is cancelled.
func (h *Handler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.broadcastStats(ctx)
		}
	}
}

// OnSyncComplete broadcasts a finished sync pass.
func (h *Handler) OnSyncComplete(ctx context.Context, trigger string, duration time.Duration) {
	data, err := json.Marshal(SyncCompleteData{Trigger: trigger, Duration: duration})
	if err != nil {
		h.logger.Printf("Failed to marshal sync completion: %v", err)
		return
	}
	h.server.Broadcast(Message{Type: MessageTypeSyncComplete, Data: data})
	h.broadcastStats(ctx)
}

// OnConnectivity broadcasts an online/offline transition.
func (h *Handler) OnConnectivity(online bool) {
	data, err := json.Marshal(ConnectivityData{Online: online})
	if err != nil {
		h.logger.Printf("Failed to marshal connectivity change: %v", err)
		return
	}
	h.server.Broadcast(Message{Type: MessageTypeConnectivity, Data: data})
}

func (h *Handler) broadcastStats(ctx context.Context) {
	st, err := h.engine.Stats(ctx)
	if err != nil {
		h.logger.Printf("Failed to read stats: %v", err)
		return
	}

	data, err := json.Marshal(StatsData{
		Contacts:          st.Contacts,
		Interactions:      st.Interactions,
		DirtyInteractions: st.DirtyInteractions,
		Tickets:           st.Tickets,
		PendingTickets:    st.PendingTickets,
		Orders:            st.Orders,
		LastSync:          st.LastSync,
		Online:            h.online(),
	})
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
		return
	}
	h.server.Broadcast(Message{Type: MessageTypeStats, Data: data})
}
