// Package notify dispatches ticket lifecycle notifications.
//
// Dispatch is fire-and-warn: a failed notification is logged and surfaced
// as a non-blocking warning; it never undoes the ticket mutation that
// triggered it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/rnistala/pocket-sync/internal/schema"
)

// Event identifies which ticket transition is being announced.
type Event string

const (
	EventTicketCreated Event = "ticket-created"
	EventTicketClosed  Event = "ticket-closed"
	EventTicketQuery   Event = "ticket-query"
)

// Dispatcher sends a ticket notification to the given recipients.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event, userID string, recipients []string, ticket schema.Ticket) error
}

// HTTPDispatcher posts notifications to a webhook.
type HTTPDispatcher struct {
	url    string
	httpc  *http.Client
	logger *log.Logger
}

// NewHTTPDispatcher creates a dispatcher targeting url.
//
// If logger is nil, a default logger writing to stderr is used.
func NewHTTPDispatcher(url string, logger *log.Logger) *HTTPDispatcher {
	if logger == nil {
		logger = log.New(os.Stderr, "[notify] ", log.LstdFlags)
	}
	return &HTTPDispatcher{
		url:    url,
		httpc:  &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

type notification struct {
	Event      Event    `json:"event"`
	UserID     string   `json:"user_id"`
	Recipients []string `json:"recipients"`
	TicketID   string   `json:"ticket_id"`
	ContactID  string   `json:"contact_id"`
	Status     string   `json:"status"`
	IssueType  string   `json:"issue_type"`
	Summary    string   `json:"summary"`
	ClosedDate string   `json:"closed_date,omitempty"`
}

// Dispatch implements Dispatcher.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, event Event, userID string, recipients []string, ticket schema.Ticket) error {
	body, err := json.Marshal(notification{
		Event:      event,
		UserID:     userID,
		Recipients: recipients,
		TicketID:   ticket.TicketID,
		ContactID:  ticket.ContactID,
		Status:     string(ticket.Status),
		IssueType:  schema.IssueTypeLabel(ticket.IssueType),
		Summary:    ticket.Description,
		ClosedDate: ticket.ClosedDate,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification server returned %s", resp.Status)
	}
	return nil
}

// Warn logs a notification failure in the standard non-blocking form.
func Warn(logger *log.Logger, event Event, err error) {
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("WARNING: %s notification failed (ticket unchanged): %v", event, err)
}
