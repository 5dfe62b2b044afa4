// Package api is the HTTP client for the interview backend.
//
// Activity reporting is best-effort: the caller fires it asynchronously
// and drops errors so integrity logging never degrades the interview.
// Session completion is the one call whose error matters - the
// terminator surfaces it so the caller can retry.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"proctord/internal/activity"
)

// DefaultTimeout bounds each backend call.
const DefaultTimeout = 10 * time.Second

// Client talks to the interview backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// activityPayload is the wire format of one activity-log entry.
type activityPayload struct {
	Type      string         `json:"type"`
	Timestamp int64          `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// ReportActivity posts one event to the session activity log. Callers
// treat failures as best-effort; the error exists for logging only.
func (c *Client) ReportActivity(ctx context.Context, sessionID string, e activity.Event) error {
	payload := activityPayload{
		Type:      string(e.Type),
		Timestamp: e.Timestamp,
		Details:   e.Details,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	if err := validateActivityPayload(body); err != nil {
		return fmt.Errorf("activity payload contract: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/sessions/%s/activity", c.baseURL, url.PathEscape(sessionID))
	return c.post(ctx, endpoint, body)
}

// RegisterDevice submits the device fingerprint for a session. Called
// once at session start; a failure is non-fatal for the interview.
func (c *Client) RegisterDevice(ctx context.Context, sessionID, fingerprint string) error {
	body, err := json.Marshal(map[string]string{"fingerprint": fingerprint})
	if err != nil {
		return fmt.Errorf("marshal fingerprint: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/sessions/%s/register-device", c.baseURL, url.PathEscape(sessionID))
	return c.post(ctx, endpoint, body)
}

// CompleteInterview marks the interview finished. Idempotency is the
// caller's responsibility; the terminator guards against double
// submission.
func (c *Client) CompleteInterview(ctx context.Context, interviewID string) error {
	endpoint := fmt.Sprintf("%s/api/interviews/%s/complete", c.baseURL, url.PathEscape(interviewID))
	return c.post(ctx, endpoint, nil)
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: unexpected status %d", endpoint, resp.StatusCode)
	}
	return nil
}
