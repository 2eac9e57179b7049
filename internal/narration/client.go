// Package narration talks to the rendering service that produces narrated
// audio for a project. A project with no rendered audio yet is a normal
// state, not a failure: playback falls back to local synthesis until the
// rendering pipeline catches up.
package narration

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/narrateapp/narrate-server/internal/errors"
	"github.com/narrateapp/narrate-server/internal/ratelimit"
)

const (
	defaultRPS     = 4.0
	defaultBurst   = 8
	defaultTimeout = 15 * time.Second
)

// Narration describes a rendered narration for a project.
type Narration struct {
	AudioURL string  `json:"audio_url"`
	Duration float64 `json:"duration"` // seconds
}

// Client is a rate-limited rendering service client.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *ratelimit.Keyed
	logger  *slog.Logger
}

// New creates a new narration client.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		logger:  logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// GetNarration fetches the rendered narration for a project.
// Returns ErrNotReady when the service has not rendered audio yet; callers
// treat this as "use the synthesis backend", not as a failure.
func (c *Client) GetNarration(ctx context.Context, projectID string) (*Narration, error) {
	if projectID == "" {
		return nil, apperrors.Validation("project ID is required")
	}

	if err := c.limiter.Wait(ctx, "narration"); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	url := c.baseURL + "/v1/projects/" + projectID + "/narration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Narrate/1.0")

	c.logger.Debug("narration request", "project_id", projectID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Upstream("rendering service unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Upstream("read narration response").WithCause(err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var n Narration
		if err := json.Unmarshal(body, &n); err != nil {
			return nil, apperrors.Upstream("decode narration response").WithCause(err)
		}
		if n.AudioURL == "" {
			return nil, apperrors.NotReady("narration rendered without audio URL")
		}
		return &n, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.NotReady("narration not rendered yet")
	case resp.StatusCode >= 500:
		return nil, apperrors.Upstreamf("rendering service returned %d", resp.StatusCode)
	default:
		return nil, apperrors.Upstreamf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}
