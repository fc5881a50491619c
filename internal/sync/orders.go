package sync

import (
	"context"
	"fmt"

	"github.com/rnistala/pocket-sync/internal/schema"
)

// syncOrders replaces the orders cache with the server's set. Orders are
// never created or edited locally, so there is no upload phase and no
// dirty tracking — just a paged fetch and a wholesale replace.
func (s *syncer) syncOrders(ctx context.Context) error {
	records, err := s.fetchAllPages(ctx, s.cfg.API.OrdersView, s.scopeFilter("orders"))
	if err != nil {
		return fmt.Errorf("order fetch failed: %w", err)
	}

	orders := make([]schema.Order, 0, len(records))
	for _, rec := range records {
		o, err := schema.OrderFromServer(rec)
		if err != nil {
			s.logger.Printf("WARNING: discarding order record: %v", err)
			continue
		}
		orders = append(orders, o)
	}

	if err := s.store.ReplaceOrders(ctx, orders); err != nil {
		return fmt.Errorf("failed to store orders: %w", err)
	}

	s.logger.Printf("Order sync: %d orders", len(orders))
	return nil
}
