package schema

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SyncStatus is the coarse, caller-facing sync state of a record.
type SyncStatus string

const (
	// SyncStatusSynced means the server has confirmed this record.
	SyncStatusSynced SyncStatus = "synced"
	// SyncStatusPending means the record was created locally and is
	// waiting for its first successful round trip.
	SyncStatusPending SyncStatus = "pending"
	// SyncStatusLocal means the record has local changes not yet
	// confirmed by the server.
	SyncStatusLocal SyncStatus = "local"
)

// InteractionType enumerates the kinds of recorded interactions.
type InteractionType string

const (
	InteractionCall     InteractionType = "call"
	InteractionWhatsapp InteractionType = "whatsapp"
	InteractionEmail    InteractionType = "email"
	InteractionMeeting  InteractionType = "meeting"
	InteractionTicket   InteractionType = "ticket"
)

// ValidInteractionType reports whether t is one of the known types.
func ValidInteractionType(t InteractionType) bool {
	switch t {
	case InteractionCall, InteractionWhatsapp, InteractionEmail,
		InteractionMeeting, InteractionTicket:
		return true
	}
	return false
}

// Interaction is one logged touchpoint with a contact.
//
// Interactions form an append-only log: once created they are never
// deleted, only updated in place for sync metadata. The ID is generated
// locally and is globally unique; ServerID is assigned by the remote
// system once the record has been uploaded.
type Interaction struct {
	// ===== Identity =====
	ID       string `json:"id"`
	ServerID string `json:"serverId,omitempty"`

	// ===== Content =====
	ContactID  string          `json:"contactId"` // dangling references tolerated
	Date       string          `json:"date"`
	Type       InteractionType `json:"type"`
	Notes      string          `json:"notes"`
	FollowupOn string          `json:"followup_on,omitempty"`

	// ===== Sync state =====
	Dirty      bool       `json:"dirty"`
	SyncStatus SyncStatus `json:"syncStatus"`
}

// NewInteraction builds a locally created interaction, dirty and awaiting
// its first upload.
func NewInteraction(contactID string, typ InteractionType, notes string) Interaction {
	return Interaction{
		ID:         uuid.NewString(),
		ContactID:  contactID,
		Date:       time.Now().Format(time.RFC3339),
		Type:       typ,
		Notes:      notes,
		Dirty:      true,
		SyncStatus: SyncStatusLocal,
	}
}

// Validate checks that the Interaction can be persisted.
func (i *Interaction) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !ValidInteractionType(i.Type) {
		return fmt.Errorf("unknown interaction type %q", i.Type)
	}
	if !i.Dirty && i.SyncStatus == SyncStatusSynced && i.ServerID == "" {
		return fmt.Errorf("synced interaction %s has no server id", i.ID)
	}
	return nil
}

// MarkSynced records a successful round trip: the server-assigned identity
// is stored and the dirty flag cleared.
func (i *Interaction) MarkSynced(serverID string) {
	i.ServerID = serverID
	i.Dirty = false
	i.SyncStatus = SyncStatusSynced
}
