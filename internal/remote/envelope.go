// Package remote implements the client for the remote system-of-record.
//
// The remote speaks two request shapes over POST: a write envelope that
// wraps one entity record, and a read envelope that pages through a
// server-side view. Both are documented on the types below; see Client
// for the transport behavior.
package remote

import "encoding/json"

// WriteMeta routes a write to the correct server-side tables.
type WriteMeta struct {
	Btable    string `json:"btable"`
	Htable    string `json:"htable"`
	Parentkey string `json:"parentkey"`
	Preapi    string `json:"preapi"`
	Draftid   string `json:"draftid"`
}

// writeEnvelope is the body of a write request. The record travels as a
// single flat object inside data[0].body; dirty is always the string
// "true" on upload.
type writeEnvelope struct {
	Meta WriteMeta  `json:"meta"`
	Data []writeRow `json:"data"`
}

type writeRow struct {
	Body  []map[string]any `json:"body"`
	Dirty string           `json:"dirty"`
}

// writeResponse carries the server-assigned identity on success, nested
// under Detail[0].body[0].
type writeResponse struct {
	Detail []struct {
		Body []map[string]any `json:"body"`
	} `json:"Detail"`
}

// WriteResult is the server-assigned identity extracted from a
// successful write.
type WriteResult struct {
	// ID is the server-assigned numeric identity.
	ID int64
	// TicketID is the human-facing ticket identifier; empty for
	// non-ticket writes.
	TicketID string
	// Record is the full response record for callers that need more.
	Record map[string]any
}

// Filter expresses an optional equality/membership scope on a read, used
// to restrict results to the caller's company.
type Filter struct {
	Operator    string `json:"operator"`
	Value       string `json:"value"`
	TableName   string `json:"tablename"`
	ColumnName  string `json:"columnname"`
	DataType    string `json:"datatype"`
	Enable      bool   `json:"enable"`
	Show        bool   `json:"show"`
	ExtraColumn string `json:"extracolumn"`
}

// EqualsFilter builds the common equality scope filter.
func EqualsFilter(table, column, value string) Filter {
	return Filter{
		Operator:   "=",
		Value:      value,
		TableName:  table,
		ColumnName: column,
		DataType:   "text",
		Enable:     true,
	}
}

// readEnvelope is the body of a paginated read request.
type readEnvelope struct {
	ID     int      `json:"id"`
	Offset int      `json:"offset"`
	Limit  int      `json:"limit"`
	Extra  []Filter `json:"extra,omitempty"`
}

// readResponse carries one page of records under data[0].body.
type readResponse struct {
	Data []struct {
		Body []map[string]any `json:"body"`
	} `json:"data"`
}

func marshalWrite(meta WriteMeta, body map[string]any) ([]byte, error) {
	env := writeEnvelope{
		Meta: meta,
		Data: []writeRow{{Body: []map[string]any{body}, Dirty: "true"}},
	}
	return json.Marshal(env)
}
