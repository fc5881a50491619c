// Package research looks up background information about a company.
//
// This is a boundary package with no bearing on sync correctness: it is
// invoked independently of the engine, and a rate-limit or quota error
// is surfaced to the caller as-is.
package research

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrRateLimited is returned when the lookup quota is exhausted.
var ErrRateLimited = errors.New("research lookup rate limited")

// Report is a structured research document about a company.
type Report struct {
	Company string `json:"company"`
	City    string `json:"city,omitempty"`
	Body    string `json:"body"`
}

// Client performs company research lookups.
type Client struct {
	api   anthropic.Client
	model anthropic.Model
}

// New creates a research client. An empty model picks a default.
func New(apiKey string, model string) *Client {
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_0)
	}
	return &Client{
		api:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		model: anthropic.Model(model),
	}
}

// Lookup returns a research document for the company, optionally scoped
// by city.
func (c *Client) Lookup(ctx context.Context, company, city string) (*Report, error) {
	if company == "" {
		return nil, fmt.Errorf("company is required")
	}

	prompt := fmt.Sprintf("Provide a concise business profile of the company %q", company)
	if city != "" {
		prompt += fmt.Sprintf(" located in %s", city)
	}
	prompt += ". Cover what they do, approximate size, and anything relevant to a support relationship. Plain text."

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) && apierr.StatusCode == 429 {
			return nil, ErrRateLimited
		}
		return nil, fmt.Errorf("research lookup failed: %w", err)
	}

	var body string
	for _, block := range msg.Content {
		if block.Type == "text" {
			body += block.Text
		}
	}
	if body == "" {
		return nil, fmt.Errorf("research lookup returned no text")
	}

	return &Report{Company: company, City: city, Body: body}, nil
}
