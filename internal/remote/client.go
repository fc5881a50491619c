package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// Client talks to the remote system-of-record.
//
// Failures are expected here: the engine runs offline-first and treats
// every error from this client as "stay dirty, retry later". The client
// therefore never retries on its own.
type Client struct {
	endpoint string
	httpc    *http.Client
	logger   *log.Logger
}

// New creates a Client for the given endpoint.
//
// If logger is nil, a default logger writing to stderr is used.
func New(endpoint string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &Client{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// Endpoint returns the endpoint this client targets.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Write uploads one entity record. On success the server-assigned
// identity is extracted from Detail[0].body[0] of the response.
func (c *Client) Write(ctx context.Context, meta WriteMeta, body map[string]any) (WriteResult, error) {
	payload, err := marshalWrite(meta, body)
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to marshal write: %w", err)
	}

	raw, err := c.post(ctx, payload)
	if err != nil {
		return WriteResult{}, err
	}

	var resp writeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return WriteResult{}, fmt.Errorf("malformed write response: %w", err)
	}
	if len(resp.Detail) == 0 || len(resp.Detail[0].Body) == 0 {
		return WriteResult{}, fmt.Errorf("write response missing Detail[0].body[0]")
	}

	rec := resp.Detail[0].Body[0]
	result := WriteResult{Record: rec}
	switch id := rec["id"].(type) {
	case float64:
		result.ID = int64(id)
	case string:
		// Some server paths return the id as a quoted number.
		var n json.Number = json.Number(id)
		v, err := n.Int64()
		if err != nil {
			return WriteResult{}, fmt.Errorf("write response has non-numeric id %q", id)
		}
		result.ID = v
	default:
		return WriteResult{}, fmt.Errorf("write response has no id")
	}
	if tid, ok := rec["ticket_id"].(string); ok {
		result.TicketID = tid
	}
	return result, nil
}

// FetchPage retrieves one offset/limit page from a server-side view.
// A malformed response is reported as an error; callers fall back to an
// empty result and leave local data untouched.
func (c *Client) FetchPage(ctx context.Context, viewID, offset, limit int, extra []Filter) ([]map[string]any, error) {
	payload, err := json.Marshal(readEnvelope{
		ID:     viewID,
		Offset: offset,
		Limit:  limit,
		Extra:  extra,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal read: %w", err)
	}

	raw, err := c.post(ctx, payload)
	if err != nil {
		return nil, err
	}

	var resp readResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed read response: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	return resp.Data[0].Body, nil
}

// post issues the request and returns the raw body of a 2xx response.
func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}
	return body, nil
}
