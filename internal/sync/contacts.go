package sync

import (
	"context"
	"fmt"

	"github.com/rnistala/pocket-sync/internal/remote"
	"github.com/rnistala/pocket-sync/internal/schema"
)

// scopeFilter returns the company scope for a restricted identity, or
// nil when the identity sees everything.
func (s *syncer) scopeFilter(table string) []remote.Filter {
	if !s.cfg.Identity.Restricted || s.cfg.Identity.Company == "" {
		return nil
	}
	return []remote.Filter{remote.EqualsFilter(table, "company", s.cfg.Identity.Company)}
}

// syncContacts fetches the authoritative contact set in pages and
// performs a replace merge: the server value wins for every field,
// Starred included. Contacts carry no local-only creation path through
// this engine, so no local record survives unless the server returned it.
func (s *syncer) syncContacts(ctx context.Context) error {
	records, err := s.fetchAllPages(ctx, s.cfg.API.ContactsView, s.scopeFilter("contacts"))
	if err != nil {
		// Local data stays untouched on a failed or malformed fetch.
		return fmt.Errorf("contact fetch failed: %w", err)
	}

	fetched := make([]schema.Contact, 0, len(records))
	for _, rec := range records {
		c := schema.ContactFromServer(rec)
		if c.ID == "" {
			s.logger.Printf("WARNING: discarding contact record with no id")
			continue
		}
		fetched = append(fetched, c)
	}

	// A restricted identity with nothing visible still needs one
	// addressable contact: synthesize it from the identity itself.
	if len(fetched) == 0 && s.cfg.Identity.Restricted {
		fetched = append(fetched, s.fallbackContact())
		s.logger.Printf("No contacts visible; synthesized fallback contact for %s", s.cfg.Identity.Company)
	}

	// Derived state: score is the local interaction count, recomputed on
	// every merge that can change it.
	counts, err := s.store.InteractionCounts(ctx)
	if err != nil {
		return err
	}
	for i := range fetched {
		if n, ok := counts[fetched[i].ID]; ok {
			fetched[i].Score = n
		}
	}

	if err := s.store.ReplaceContacts(ctx, fetched); err != nil {
		return fmt.Errorf("failed to store merged contacts: %w", err)
	}

	s.logger.Printf("Contact sync: %d contacts", len(fetched))
	return nil
}

// fallbackContact represents the restricted identity's own company.
func (s *syncer) fallbackContact() schema.Contact {
	id := s.cfg.Identity.UserID
	if id == "" {
		id = "self"
	}
	return schema.Contact{
		ID:      id,
		Name:    s.cfg.Identity.Company,
		Company: s.cfg.Identity.Company,
		City:    s.cfg.Identity.City,
		Email:   s.cfg.Identity.Email,
		Status:  "Customer",
	}
}
