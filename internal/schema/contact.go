// Package schema provides the entity types held in the local store and
// exchanged with the remote system-of-record.
package schema

import (
	"fmt"
	"strconv"
)

// Contact represents a CRM contact.
//
// Contacts are a replace-wholesale cache: every successful fetch clears the
// local set and repopulates it with the server's view. Score is derived
// state (the total interaction count for this contact) and is recomputed
// whenever interactions merge.
type Contact struct {
	// ===== Identity =====
	ID string `json:"id"`

	// ===== Profile =====
	Name    string `json:"name"`
	Company string `json:"company"`
	City    string `json:"city"`
	Status  string `json:"status"` // free-form label
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Profile string `json:"profile"`

	// ===== Engagement =====
	FollowupOn string `json:"followup_on,omitempty"` // date string, may be absent
	LastNotes  string `json:"lastNotes"`
	Score      int    `json:"score"` // derived: interaction count
	Starred    bool   `json:"starred"`
}

// Validate checks that the Contact can be persisted.
func (c *Contact) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("id is required")
	}
	return nil
}

// ContactFromServer builds a Contact from a flat server record.
// Unknown fields are ignored; missing fields default to their zero value.
func ContactFromServer(rec map[string]any) Contact {
	return Contact{
		ID:         stringField(rec, "id"),
		Name:       stringField(rec, "name"),
		Company:    stringField(rec, "company"),
		City:       stringField(rec, "city"),
		Status:     stringField(rec, "status"),
		FollowupOn: stringField(rec, "followup_on"),
		LastNotes:  stringField(rec, "lastNotes"),
		Phone:      stringField(rec, "phone"),
		Email:      stringField(rec, "email"),
		Profile:    stringField(rec, "profile"),
		Score:      intField(rec, "score"),
		Starred:    boolField(rec, "starred"),
	}
}

// stringField extracts a string value from a loosely-typed server record.
func stringField(rec map[string]any, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

// intField extracts an integer value from a loosely-typed server record.
func intField(rec map[string]any, key string) int {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// int64Field extracts a 64-bit integer value from a loosely-typed server record.
func int64Field(rec map[string]any, key string) int64 {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// boolField extracts a boolean value from a loosely-typed server record.
// Accepts native booleans, "true"/"false" strings, and 0/1 numbers.
func boolField(rec map[string]any, key string) bool {
	v, ok := rec[key]
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "1"
	case float64:
		return b != 0
	default:
		return false
	}
}
