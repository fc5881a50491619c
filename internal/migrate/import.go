package migrate

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rnistala/pocket-sync/internal/schema"
	"github.com/rnistala/pocket-sync/internal/store"
)

// Result contains statistics about an import.
type Result struct {
	Contacts     int
	Interactions int
	Tickets      int
	Orders       int
	Errors       []string
}

// FromJSONL reads a JSONL export and upserts every record into the
// store. Individual bad lines are collected in the result rather than
// aborting the import.
func FromJSONL(ctx context.Context, st store.Store, r io.Reader) (*Result, error) {
	result := &Result{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var line Line
		if err := json.Unmarshal(raw, &line); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: invalid JSON: %v", lineNum, err))
			continue
		}

		if err := importLine(ctx, st, line, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", lineNum, err))
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("failed to read export: %w", err)
	}
	return result, nil
}

func importLine(ctx context.Context, st store.Store, line Line, result *Result) error {
	switch line.Table {
	case "contacts":
		var c schema.Contact
		if err := json.Unmarshal(line.Record, &c); err != nil {
			return fmt.Errorf("bad contact: %w", err)
		}
		if err := st.UpsertContact(ctx, c); err != nil {
			return err
		}
		result.Contacts++
	case "interactions":
		var i schema.Interaction
		if err := json.Unmarshal(line.Record, &i); err != nil {
			return fmt.Errorf("bad interaction: %w", err)
		}
		if err := st.UpsertInteraction(ctx, i); err != nil {
			return err
		}
		result.Interactions++
	case "tickets":
		var t schema.Ticket
		if err := json.Unmarshal(line.Record, &t); err != nil {
			return fmt.Errorf("bad ticket: %w", err)
		}
		if err := st.UpsertTicket(ctx, t); err != nil {
			return err
		}
		result.Tickets++
	case "orders":
		var o schema.Order
		if err := json.Unmarshal(line.Record, &o); err != nil {
			return fmt.Errorf("bad order: %w", err)
		}
		// Orders have no upsert path; accumulate and replace at the end
		// would drop existing rows, so import them one table write at a
		// time via replace of the merged set.
		orders, err := st.Orders(ctx)
		if err != nil {
			return err
		}
		replaced := false
		for idx := range orders {
			if orders[idx].ID == o.ID {
				orders[idx] = o
				replaced = true
				break
			}
		}
		if !replaced {
			orders = append(orders, o)
		}
		if err := st.ReplaceOrders(ctx, orders); err != nil {
			return err
		}
		result.Orders++
	default:
		return fmt.Errorf("unknown table %q", line.Table)
	}
	return nil
}
