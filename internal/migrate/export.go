// Package migrate exports and imports the local store as flat files,
// for backup and for moving a workspace between machines.
//
// The default format is JSONL: one line per record, each wrapped in an
// envelope naming its table. A YAML snapshot format is also available
// for human inspection.
package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rnistala/pocket-sync/internal/schema"
	"github.com/rnistala/pocket-sync/internal/store"
	"gopkg.in/yaml.v3"
)

// Line is the JSONL envelope: the table name plus the raw record.
type Line struct {
	Table  string          `json:"table"`
	Record json.RawMessage `json:"record"`
}

// Snapshot is the YAML export shape.
type Snapshot struct {
	Contacts     []schema.Contact     `yaml:"contacts"`
	Interactions []schema.Interaction `yaml:"interactions"`
	Tickets      []schema.Ticket      `yaml:"tickets"`
	Orders       []schema.Order       `yaml:"orders"`
}

// loadSnapshot reads every table into a Snapshot.
func loadSnapshot(ctx context.Context, st store.Store) (*Snapshot, error) {
	contacts, err := st.Contacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read contacts: %w", err)
	}
	interactions, err := st.Interactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read interactions: %w", err)
	}
	tickets, err := st.Tickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read tickets: %w", err)
	}
	orders, err := st.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	return &Snapshot{
		Contacts:     contacts,
		Interactions: interactions,
		Tickets:      tickets,
		Orders:       orders,
	}, nil
}

// ToJSONL writes every record in the store to w, one envelope per line.
func ToJSONL(ctx context.Context, st store.Store, w io.Writer) error {
	snap, err := loadSnapshot(ctx, st)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	write := func(table string, record any) error {
		raw, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal %s record: %w", table, err)
		}
		return enc.Encode(Line{Table: table, Record: raw})
	}

	for _, c := range snap.Contacts {
		if err := write("contacts", c); err != nil {
			return err
		}
	}
	for _, i := range snap.Interactions {
		if err := write("interactions", i); err != nil {
			return err
		}
	}
	for _, t := range snap.Tickets {
		if err := write("tickets", t); err != nil {
			return err
		}
	}
	for _, o := range snap.Orders {
		if err := write("orders", o); err != nil {
			return err
		}
	}
	return nil
}

// ToYAML writes the whole store as one YAML document.
func ToYAML(ctx context.Context, st store.Store, w io.Writer) error {
	snap, err := loadSnapshot(ctx, st)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}
