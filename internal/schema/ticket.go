package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// IdentityKind tags the origin of a ticket's numeric identity.
type IdentityKind string

const (
	// IdentityLocal marks a ticket that exists only locally, carrying a
	// temporary id until its first successful upload.
	IdentityLocal IdentityKind = "local"
	// IdentityRemote marks a ticket whose id was assigned by the server.
	IdentityRemote IdentityKind = "remote"
)

// TicketIdentity is the primary identity of a ticket as an explicit
// tagged variant: either a temporary local id (derived from the creation
// timestamp) or a server-assigned id.
type TicketIdentity struct {
	Kind IdentityKind `json:"kind"`
	ID   int64        `json:"id"`
}

// NewLocalIdentity derives a temporary identity from a creation timestamp.
func NewLocalIdentity(createdAt time.Time) TicketIdentity {
	return TicketIdentity{Kind: IdentityLocal, ID: createdAt.UnixMilli()}
}

// RemoteIdentity wraps a server-assigned numeric id.
func RemoteIdentity(id int64) TicketIdentity {
	return TicketIdentity{Kind: IdentityRemote, ID: id}
}

// IsLocal reports whether the ticket has not yet been assigned a server id.
func (ti TicketIdentity) IsLocal() bool {
	return ti.Kind == IdentityLocal || ti.ID == 0
}

// String renders the identity for logs.
func (ti TicketIdentity) String() string {
	return fmt.Sprintf("%s:%d", ti.Kind, ti.ID)
}

// TicketStatus enumerates the ticket workflow states.
type TicketStatus string

const (
	StatusOpen        TicketStatus = "OPEN"
	StatusInProgress  TicketStatus = "IN PROGRESS"
	StatusClosed      TicketStatus = "CLOSED"
	StatusClientQuery TicketStatus = "CLIENT QUERY"
)

// CanTransition reports whether a ticket may move from one status to
// another. The workflow is OPEN -> IN PROGRESS -> CLOSED, with
// CLIENT QUERY reachable from any open state and returning to OPEN or
// IN PROGRESS.
func CanTransition(from, to TicketStatus) bool {
	if from == to {
		return false
	}
	switch from {
	case StatusOpen:
		return to == StatusInProgress || to == StatusClosed || to == StatusClientQuery
	case StatusInProgress:
		return to == StatusClosed || to == StatusClientQuery
	case StatusClientQuery:
		return to == StatusOpen || to == StatusInProgress
	case StatusClosed:
		return false
	}
	return false
}

// Attachment is server-confirmed metadata for an uploaded image.
type Attachment struct {
	Path string `json:"path"`
	Name string `json:"name,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// Ticket represents a support ticket.
//
// Tickets are append/merge records: new server-confirmed tickets are added
// without clearing locally-pending ones, and the human-facing TicketID is
// the merge key once the server has issued it.
type Ticket struct {
	// ===== Identity =====
	Identity TicketIdentity `json:"identity"`
	TicketID string         `json:"ticketId,omitempty"` // server-issued, stable across re-syncs

	// ===== Content =====
	ContactID    string       `json:"contactId"`
	ReportedDate string       `json:"reportedDate"`
	TargetDate   string       `json:"targetDate"`
	ClosedDate   string       `json:"closedDate,omitempty"`
	IssueType    string       `json:"issueType"` // enumerated code, see catalog.go
	Status       TicketStatus `json:"status"`
	Description  string       `json:"description"`
	Remarks      string       `json:"remarks,omitempty"`
	RootCause    string       `json:"rootCause,omitempty"`

	// ===== Attachments =====
	Screenshots []string     `json:"screenshots,omitempty"` // pending payloads, not yet uploaded
	Photo       []Attachment `json:"photo,omitempty"`        // server-confirmed metadata

	// ===== Workflow =====
	Priority      bool   `json:"priority"`
	EffortMinutes int    `json:"effort_minutes,omitempty"`
	AssignedTo    string `json:"assigned_to,omitempty"`

	// ===== Sync state =====
	SyncStatus SyncStatus `json:"syncStatus"`
}

// NewTicket builds a locally created ticket pending its first upload.
func NewTicket(contactID, issueType, description string) Ticket {
	now := time.Now()
	return Ticket{
		Identity:     NewLocalIdentity(now),
		ContactID:    contactID,
		ReportedDate: now.Format(time.RFC3339),
		IssueType:    issueType,
		Status:       StatusOpen,
		Description:  description,
		SyncStatus:   SyncStatusPending,
	}
}

// Validate checks the ticket's structural invariants.
func (t *Ticket) Validate() error {
	if t.Identity.ID == 0 {
		return fmt.Errorf("identity is required")
	}
	if t.ContactID == "" {
		return fmt.Errorf("contactId is required")
	}
	if t.Status == StatusClosed && t.ClosedDate == "" {
		return fmt.Errorf("closed ticket requires closedDate")
	}
	return nil
}

// Transition moves the ticket to a new status, enforcing the workflow.
// Transitioning into CLOSED requires closedDate to be supplied.
func (t *Ticket) Transition(to TicketStatus, closedDate string) error {
	if !CanTransition(t.Status, to) {
		return fmt.Errorf("cannot transition ticket %s from %s to %s", t.Identity, t.Status, to)
	}
	if to == StatusClosed {
		if closedDate == "" {
			return fmt.Errorf("transition to CLOSED requires a closed date")
		}
		t.ClosedDate = closedDate
	}
	t.Status = to
	t.SyncStatus = SyncStatusLocal
	return nil
}

// TicketFromServer normalizes a flat server record into a Ticket.
//
// Status, issue type and root cause are defaulted when absent. The photo
// field arrives either as a JSON-encoded string or a native array,
// depending on which server path produced the record.
func TicketFromServer(rec map[string]any) Ticket {
	status := TicketStatus(stringField(rec, "status"))
	if status == "" {
		status = StatusOpen
	}
	issueType := stringField(rec, "issue_type")
	if issueType == "" {
		issueType = DefaultIssueType
	}
	rootCause := stringField(rec, "root_cause")
	if rootCause == "" {
		rootCause = "Not Known"
	}

	return Ticket{
		Identity:      RemoteIdentity(int64Field(rec, "id")),
		TicketID:      stringField(rec, "ticket_id"),
		ContactID:     stringField(rec, "contact_id"),
		ReportedDate:  stringField(rec, "reported_date"),
		TargetDate:    stringField(rec, "target_date"),
		ClosedDate:    stringField(rec, "close_date"),
		IssueType:     issueType,
		Status:        status,
		Description:   stringField(rec, "description"),
		Remarks:       stringField(rec, "remarks"),
		RootCause:     rootCause,
		Photo:         parsePhoto(rec["photo"]),
		Priority:      boolField(rec, "priority"),
		EffortMinutes: intField(rec, "effort_minutes"),
		AssignedTo:    stringField(rec, "assigned_to"),
		SyncStatus:    SyncStatusSynced,
	}
}

// parsePhoto decodes attachment metadata from either a JSON-encoded
// string or a native array of objects. Anything unparsable yields nil.
func parsePhoto(v any) []Attachment {
	switch p := v.(type) {
	case nil:
		return nil
	case string:
		if p == "" {
			return nil
		}
		var out []Attachment
		if err := json.Unmarshal([]byte(p), &out); err != nil {
			return nil
		}
		return out
	case []any:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil
		}
		var out []Attachment
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil
		}
		return out
	default:
		return nil
	}
}
