package migrate

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rnistala/pocket-sync/internal/schema"
	"github.com/rnistala/pocket-sync/internal/store"
)

func seededStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "pocket.db"))
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	if err := db.UpsertContact(ctx, schema.Contact{ID: "C-1", Name: "Acme", Score: 2}); err != nil {
		t.Fatalf("UpsertContact() = %v", err)
	}
	if err := db.InsertInteraction(ctx, schema.NewInteraction("C-1", schema.InteractionCall, "hello")); err != nil {
		t.Fatalf("InsertInteraction() = %v", err)
	}
	tk := schema.NewTicket("C-1", "HW", "printer jammed")
	if err := db.InsertTicket(ctx, tk); err != nil {
		t.Fatalf("InsertTicket() = %v", err)
	}
	if err := db.ReplaceOrders(ctx, []schema.Order{{ID: "O-1", Fields: map[string]any{"id": "O-1"}}}); err != nil {
		t.Fatalf("ReplaceOrders() = %v", err)
	}
	return db
}

func emptyStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "pocket.db"))
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestJSONLRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := seededStore(t)

	var buf bytes.Buffer
	if err := ToJSONL(ctx, src, &buf); err != nil {
		t.Fatalf("ToJSONL() = %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 4 {
		t.Errorf("export lines = %d, want 4 (one per record)", got)
	}

	dst := emptyStore(t)
	result, err := FromJSONL(ctx, dst, &buf)
	if err != nil {
		t.Fatalf("FromJSONL() = %v", err)
	}
	if len(result.Errors) != 0 {
		t.Errorf("import errors = %v, want none", result.Errors)
	}
	if result.Contacts != 1 || result.Interactions != 1 || result.Tickets != 1 || result.Orders != 1 {
		t.Errorf("result = %+v, want one of each", result)
	}

	contacts, _ := dst.Contacts(ctx)
	if len(contacts) != 1 || contacts[0].Name != "Acme" || contacts[0].Score != 2 {
		t.Errorf("imported contacts = %v, want Acme with score 2", contacts)
	}
	tickets, _ := dst.Tickets(ctx)
	if len(tickets) != 1 || tickets[0].Description != "printer jammed" {
		t.Errorf("imported tickets = %v, want the seeded ticket", tickets)
	}
}

func TestFromJSONLCollectsBadLines(t *testing.T) {
	ctx := context.Background()
	dst := emptyStore(t)

	input := strings.Join([]string{
		`{"table":"contacts","record":{"id":"C-1","name":"Acme"}}`,
		`this is not json`,
		`{"table":"spaceships","record":{}}`,
		`{"table":"contacts","record":{"id":"C-2","name":"Globex"}}`,
	}, "\n")

	result, err := FromJSONL(ctx, dst, strings.NewReader(input))
	if err != nil {
		t.Fatalf("FromJSONL() = %v", err)
	}
	if result.Contacts != 2 {
		t.Errorf("contacts imported = %d, want 2 despite bad lines", result.Contacts)
	}
	if len(result.Errors) != 2 {
		t.Errorf("errors = %v, want 2 entries", result.Errors)
	}
}

func TestToYAML(t *testing.T) {
	ctx := context.Background()
	src := seededStore(t)

	var buf bytes.Buffer
	if err := ToYAML(ctx, src, &buf); err != nil {
		t.Fatalf("ToYAML() = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"contacts:", "interactions:", "tickets:", "orders:", "Acme"} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML output missing %q", want)
		}
	}
}
