package schema

import (
	"testing"
	"time"
)

func TestNewTicketDefaults(t *testing.T) {
	tk := NewTicket("C-1", "HW", "printer jammed")

	if !tk.Identity.IsLocal() {
		t.Errorf("new ticket identity = %v, want local", tk.Identity)
	}
	if tk.Identity.ID == 0 {
		t.Error("new ticket has zero identity id")
	}
	if tk.Status != StatusOpen {
		t.Errorf("status = %q, want %q", tk.Status, StatusOpen)
	}
	if tk.SyncStatus != SyncStatusPending {
		t.Errorf("sync status = %q, want %q", tk.SyncStatus, SyncStatusPending)
	}
	if err := tk.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestTicketIdentity(t *testing.T) {
	local := NewLocalIdentity(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	if !local.IsLocal() {
		t.Error("local identity reports IsLocal() = false")
	}
	if local.ID != time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli() {
		t.Errorf("local id = %d, want creation timestamp millis", local.ID)
	}

	remote := RemoteIdentity(4711)
	if remote.IsLocal() {
		t.Error("remote identity reports IsLocal() = true")
	}
	if got, want := remote.String(), "remote:4711"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to TicketStatus
		want     bool
	}{
		{StatusOpen, StatusInProgress, true},
		{StatusOpen, StatusClosed, true},
		{StatusOpen, StatusClientQuery, true},
		{StatusInProgress, StatusClosed, true},
		{StatusInProgress, StatusClientQuery, true},
		{StatusInProgress, StatusOpen, false},
		{StatusClientQuery, StatusOpen, true},
		{StatusClientQuery, StatusInProgress, true},
		{StatusClientQuery, StatusClosed, false},
		{StatusClosed, StatusOpen, false},
		{StatusClosed, StatusInProgress, false},
		{StatusOpen, StatusOpen, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTransitionToClosedRequiresDate(t *testing.T) {
	tk := NewTicket("C-1", "GEN", "desc")

	if err := tk.Transition(StatusClosed, ""); err == nil {
		t.Fatal("Transition(CLOSED, \"\") succeeded, want error")
	}
	if tk.Status != StatusOpen {
		t.Errorf("failed transition mutated status to %q", tk.Status)
	}

	if err := tk.Transition(StatusClosed, "2025-06-01T00:00:00Z"); err != nil {
		t.Fatalf("Transition(CLOSED) = %v", err)
	}
	if tk.ClosedDate == "" {
		t.Error("closed ticket has empty ClosedDate")
	}
	if tk.SyncStatus != SyncStatusLocal {
		t.Errorf("transitioned ticket sync status = %q, want %q", tk.SyncStatus, SyncStatusLocal)
	}
}

func TestValidateClosedRequiresClosedDate(t *testing.T) {
	tk := NewTicket("C-1", "GEN", "desc")
	tk.Status = StatusClosed
	if err := tk.Validate(); err == nil {
		t.Error("Validate() = nil for closed ticket without closedDate")
	}
}

func TestTicketFromServerDefaults(t *testing.T) {
	tk := TicketFromServer(map[string]any{
		"id":         float64(99),
		"ticket_id":  "TKT-99",
		"contact_id": "C-1",
	})

	if tk.Identity.Kind != IdentityRemote || tk.Identity.ID != 99 {
		t.Errorf("identity = %v, want remote:99", tk.Identity)
	}
	if tk.Status != StatusOpen {
		t.Errorf("defaulted status = %q, want %q", tk.Status, StatusOpen)
	}
	if tk.IssueType != DefaultIssueType {
		t.Errorf("defaulted issue type = %q, want %q", tk.IssueType, DefaultIssueType)
	}
	if tk.RootCause != "Not Known" {
		t.Errorf("defaulted root cause = %q, want %q", tk.RootCause, "Not Known")
	}
	if tk.SyncStatus != SyncStatusSynced {
		t.Errorf("sync status = %q, want %q", tk.SyncStatus, SyncStatusSynced)
	}
}

func TestParsePhoto(t *testing.T) {
	// JSON-encoded string variant.
	got := parsePhoto(`[{"path":"/img/a.png","name":"a.png"}]`)
	if len(got) != 1 || got[0].Path != "/img/a.png" {
		t.Errorf("parsePhoto(string) = %v, want one attachment at /img/a.png", got)
	}

	// Native array variant.
	got = parsePhoto([]any{map[string]any{"path": "/img/b.png"}})
	if len(got) != 1 || got[0].Path != "/img/b.png" {
		t.Errorf("parsePhoto([]any) = %v, want one attachment at /img/b.png", got)
	}

	// Unparsable values yield nil rather than an error.
	for _, v := range []any{nil, "", "not json", 42} {
		if got := parsePhoto(v); got != nil {
			t.Errorf("parsePhoto(%v) = %v, want nil", v, got)
		}
	}
}
