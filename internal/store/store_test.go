package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rnistala/pocket-sync/internal/schema"
)

// openTestStore creates a store in a temp directory and registers cleanup.
func openTestStore(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "pocket.db"))
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	})
	return db
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pocket.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() = %v", err)
	}
	if err := db.UpsertContact(context.Background(), schema.Contact{ID: "C-1", Name: "Acme"}); err != nil {
		t.Fatalf("UpsertContact() = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	// Reopening must not re-run migrations destructively.
	db, err = Open(path)
	if err != nil {
		t.Fatalf("second Open() = %v", err)
	}
	defer db.Close()

	contacts, err := db.Contacts(context.Background())
	if err != nil {
		t.Fatalf("Contacts() = %v", err)
	}
	if len(contacts) != 1 || contacts[0].Name != "Acme" {
		t.Errorf("contacts after reopen = %v, want the one stored before close", contacts)
	}

	v, err := db.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion() = %v", err)
	}
	if v < 3 {
		t.Errorf("schema version = %d, want >= 3", v)
	}
}

func TestContactReplaceAndUpsert(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()

	if err := db.ReplaceContacts(ctx, []schema.Contact{
		{ID: "C-1", Name: "Acme", Score: 3, Starred: true},
		{ID: "C-2", Name: "Globex"},
	}); err != nil {
		t.Fatalf("ReplaceContacts() = %v", err)
	}

	// Replace is wholesale: the old set must not survive.
	if err := db.ReplaceContacts(ctx, []schema.Contact{{ID: "C-3", Name: "Initech"}}); err != nil {
		t.Fatalf("second ReplaceContacts() = %v", err)
	}
	contacts, err := db.Contacts(ctx)
	if err != nil {
		t.Fatalf("Contacts() = %v", err)
	}
	if len(contacts) != 1 || contacts[0].ID != "C-3" {
		t.Fatalf("contacts = %v, want just C-3", contacts)
	}

	// Upsert overwrites in place.
	if err := db.UpsertContact(ctx, schema.Contact{ID: "C-3", Name: "Initech", Score: 9}); err != nil {
		t.Fatalf("UpsertContact() = %v", err)
	}
	contacts, _ = db.Contacts(ctx)
	if contacts[0].Score != 9 {
		t.Errorf("score after upsert = %d, want 9", contacts[0].Score)
	}
}

func TestInteractionLifecycle(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()

	in := schema.NewInteraction("C-1", schema.InteractionCall, "first call")
	if err := db.InsertInteraction(ctx, in); err != nil {
		t.Fatalf("InsertInteraction() = %v", err)
	}

	// Insert refuses duplicate ids.
	if err := db.InsertInteraction(ctx, in); err == nil {
		t.Error("duplicate InsertInteraction() = nil, want error")
	}

	dirty, err := db.DirtyInteractions(ctx)
	if err != nil {
		t.Fatalf("DirtyInteractions() = %v", err)
	}
	if len(dirty) != 1 || dirty[0].ID != in.ID {
		t.Fatalf("dirty = %v, want the inserted record", dirty)
	}

	in.MarkSynced("555")
	if err := db.UpsertInteraction(ctx, in); err != nil {
		t.Fatalf("UpsertInteraction() = %v", err)
	}
	dirty, _ = db.DirtyInteractions(ctx)
	if len(dirty) != 0 {
		t.Errorf("dirty after sync = %v, want empty", dirty)
	}

	all, err := db.Interactions(ctx)
	if err != nil {
		t.Fatalf("Interactions() = %v", err)
	}
	if len(all) != 1 || all[0].ServerID != "555" {
		t.Errorf("interactions = %v, want one synced record with server id 555", all)
	}
}

func TestInteractionCounts(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := db.InsertInteraction(ctx, schema.NewInteraction("C-1", schema.InteractionCall, "n")); err != nil {
			t.Fatalf("InsertInteraction() = %v", err)
		}
	}
	if err := db.InsertInteraction(ctx, schema.NewInteraction("C-2", schema.InteractionEmail, "n")); err != nil {
		t.Fatalf("InsertInteraction() = %v", err)
	}

	counts, err := db.InteractionCounts(ctx)
	if err != nil {
		t.Fatalf("InteractionCounts() = %v", err)
	}
	if counts["C-1"] != 3 || counts["C-2"] != 1 {
		t.Errorf("counts = %v, want C-1:3 C-2:1", counts)
	}
}

func TestSwapTicketIdentity(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()

	local := schema.NewTicket("C-1", "HW", "printer jammed")
	if err := db.InsertTicket(ctx, local); err != nil {
		t.Fatalf("InsertTicket() = %v", err)
	}

	promoted := local
	promoted.Identity = schema.RemoteIdentity(900)
	promoted.TicketID = "TKT-900"
	promoted.SyncStatus = schema.SyncStatusSynced

	if err := db.SwapTicketIdentity(ctx, local.Identity, promoted); err != nil {
		t.Fatalf("SwapTicketIdentity() = %v", err)
	}

	tickets, err := db.Tickets(ctx)
	if err != nil {
		t.Fatalf("Tickets() = %v", err)
	}
	if len(tickets) != 1 {
		t.Fatalf("tickets = %d records, want 1 (old identity must be gone)", len(tickets))
	}
	got := tickets[0]
	if got.Identity != schema.RemoteIdentity(900) {
		t.Errorf("identity = %v, want remote:900", got.Identity)
	}
	if got.TicketID != "TKT-900" {
		t.Errorf("ticket id = %q, want TKT-900", got.TicketID)
	}
}

func TestTicketRoundTripPreservesAttachments(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()

	tk := schema.NewTicket("C-1", "SW", "login broken")
	tk.Screenshots = []string{"payload-one", "payload-two"}
	tk.Photo = []schema.Attachment{{Path: "/img/a.png", Name: "a.png", Size: 1024}}
	if err := db.InsertTicket(ctx, tk); err != nil {
		t.Fatalf("InsertTicket() = %v", err)
	}

	tickets, err := db.Tickets(ctx)
	if err != nil {
		t.Fatalf("Tickets() = %v", err)
	}
	got := tickets[0]
	if len(got.Screenshots) != 2 || got.Screenshots[0] != "payload-one" {
		t.Errorf("screenshots = %v, want the two stored payloads", got.Screenshots)
	}
	if len(got.Photo) != 1 || got.Photo[0].Path != "/img/a.png" {
		t.Errorf("photo = %v, want the stored attachment", got.Photo)
	}
}

func TestEnsureIdentityWipesOnChange(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()

	// First run records the identity without wiping.
	wiped, err := db.EnsureIdentity(ctx, "user-a", "https://api.example.com")
	if err != nil {
		t.Fatalf("EnsureIdentity() = %v", err)
	}
	if wiped {
		t.Error("first EnsureIdentity() wiped a fresh store")
	}

	if err := db.UpsertContact(ctx, schema.Contact{ID: "C-1", Name: "Acme"}); err != nil {
		t.Fatalf("UpsertContact() = %v", err)
	}
	if err := db.InsertInteraction(ctx, schema.NewInteraction("C-1", schema.InteractionCall, "n")); err != nil {
		t.Fatalf("InsertInteraction() = %v", err)
	}
	if err := db.SetMeta(ctx, MetaLastSync, "2025-06-01T00:00:00Z"); err != nil {
		t.Fatalf("SetMeta() = %v", err)
	}

	// Same identity: nothing happens.
	wiped, err = db.EnsureIdentity(ctx, "user-a", "https://api.example.com")
	if err != nil {
		t.Fatalf("EnsureIdentity() = %v", err)
	}
	if wiped {
		t.Error("unchanged EnsureIdentity() wiped the store")
	}

	// Different user: everything goes, including sync metadata.
	wiped, err = db.EnsureIdentity(ctx, "user-b", "https://api.example.com")
	if err != nil {
		t.Fatalf("EnsureIdentity() = %v", err)
	}
	if !wiped {
		t.Fatal("identity change did not wipe the store")
	}

	contacts, _ := db.Contacts(ctx)
	interactions, _ := db.Interactions(ctx)
	if len(contacts) != 0 || len(interactions) != 0 {
		t.Errorf("after wipe: %d contacts, %d interactions, want 0/0", len(contacts), len(interactions))
	}
	lastSync, _ := db.Meta(ctx, MetaLastSync)
	if lastSync != "" {
		t.Errorf("lastSync after wipe = %q, want empty", lastSync)
	}

	// The new identity is now recorded.
	lastUser, _ := db.Meta(ctx, MetaLastUserID)
	if lastUser != "user-b" {
		t.Errorf("lastUserId = %q, want user-b", lastUser)
	}
}

func TestEnsureIdentityWipesOnEndpointChange(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()

	if _, err := db.EnsureIdentity(ctx, "user-a", "https://one.example.com"); err != nil {
		t.Fatalf("EnsureIdentity() = %v", err)
	}
	if err := db.UpsertContact(ctx, schema.Contact{ID: "C-1"}); err != nil {
		t.Fatalf("UpsertContact() = %v", err)
	}

	wiped, err := db.EnsureIdentity(ctx, "user-a", "https://two.example.com")
	if err != nil {
		t.Fatalf("EnsureIdentity() = %v", err)
	}
	if !wiped {
		t.Fatal("endpoint change did not wipe the store")
	}
	contacts, _ := db.Contacts(ctx)
	if len(contacts) != 0 {
		t.Errorf("contacts after wipe = %d, want 0", len(contacts))
	}
}

func TestMetaRoundTrip(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()

	v, err := db.Meta(ctx, "missing")
	if err != nil {
		t.Fatalf("Meta(missing) = %v", err)
	}
	if v != "" {
		t.Errorf("Meta(missing) = %q, want empty", v)
	}

	if err := db.SetMeta(ctx, "k", "v1"); err != nil {
		t.Fatalf("SetMeta() = %v", err)
	}
	if err := db.SetMeta(ctx, "k", "v2"); err != nil {
		t.Fatalf("second SetMeta() = %v", err)
	}
	v, _ = db.Meta(ctx, "k")
	if v != "v2" {
		t.Errorf("Meta(k) = %q, want v2", v)
	}
}

func TestOrdersReplace(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()

	if err := db.ReplaceOrders(ctx, []schema.Order{
		{ID: "O-1", Fields: map[string]any{"id": "O-1", "total": 99.5}},
		{ID: "O-2", Fields: map[string]any{"id": "O-2"}},
	}); err != nil {
		t.Fatalf("ReplaceOrders() = %v", err)
	}

	orders, err := db.Orders(ctx)
	if err != nil {
		t.Fatalf("Orders() = %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("orders = %d, want 2", len(orders))
	}

	if err := db.ReplaceOrders(ctx, nil); err != nil {
		t.Fatalf("ReplaceOrders(nil) = %v", err)
	}
	orders, _ = db.Orders(ctx)
	if len(orders) != 0 {
		t.Errorf("orders after empty replace = %d, want 0", len(orders))
	}
}
