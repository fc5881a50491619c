package schema

import "fmt"

// Order is a loosely-typed pass-through record cached from the server.
//
// The engine never creates or edits orders locally; the whole table is
// replaced on every successful fetch. Rather than passing untyped maps
// around, the record is an explicit envelope: a required identity plus an
// opaque payload.
type Order struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// OrderFromServer wraps a flat server record. Records without an id are
// rejected; they cannot be keyed in the local store.
func OrderFromServer(rec map[string]any) (Order, error) {
	id := stringField(rec, "id")
	if id == "" {
		return Order{}, fmt.Errorf("order record has no id")
	}
	return Order{ID: id, Fields: rec}, nil
}

// Validate checks that the Order can be persisted.
func (o *Order) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("id is required")
	}
	return nil
}
