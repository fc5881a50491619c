// Package attach uploads pending screenshot payloads and returns the
// server-confirmed attachment metadata.
//
// This is a boundary package: a failed upload returns an empty slice and
// the ticket proceeds without attachments. The payloads stay queued on
// the ticket and are retried on the next sync pass.
package attach

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

	"github.com/rnistala/pocket-sync/internal/schema"
)

// Uploader sends screenshot payloads for an identity and returns
// attachment metadata for each stored image.
type Uploader interface {
	Upload(ctx context.Context, userID string, payloads []string) []schema.Attachment
}

// HTTPUploader posts payloads to an attachment service.
type HTTPUploader struct {
	url    string
	httpc  *http.Client
	logger *log.Logger
}

// NewHTTPUploader creates an uploader targeting url.
//
// If logger is nil, a default logger writing to stderr is used.
func NewHTTPUploader(url string, logger *log.Logger) *HTTPUploader {
	if logger == nil {
		logger = log.New(os.Stderr, "[attach] ", log.LstdFlags)
	}
	return &HTTPUploader{
		url:    url,
		httpc:  &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

type uploadRequest struct {
	UserID string   `json:"user_id"`
	Images []string `json:"images"`
}

// Upload implements Uploader. Any failure yields an empty slice.
func (u *HTTPUploader) Upload(ctx context.Context, userID string, payloads []string) []schema.Attachment {
	if len(payloads) == 0 {
		return nil
	}

	attachments, err := u.upload(ctx, userID, payloads)
	if err != nil {
		u.logger.Printf("WARNING: attachment upload failed: %v", err)
		return nil
	}
	return attachments
}

func (u *HTTPUploader) upload(ctx context.Context, userID string, payloads []string) ([]schema.Attachment, error) {
	body, err := json.Marshal(uploadRequest{UserID: userID, Images: payloads})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}

	var attachments []schema.Attachment
	if err := json.Unmarshal(raw, &attachments); err != nil {
		return nil, fmt.Errorf("malformed attachment response: %w", err)
	}
	return attachments, nil
}
