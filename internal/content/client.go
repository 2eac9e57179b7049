// Package content fetches book text from the content service.
//
// The service stores chapters either as plain text or as HTML, depending on
// how the book was ingested. HTML responses are converted to markdown so the
// segmenter sees one uniform format with "#" heading markers.
package content

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/text/unicode/norm"

	apperrors "github.com/narrateapp/narrate-server/internal/errors"
	"github.com/narrateapp/narrate-server/internal/ratelimit"
)

const (
	// Rate limit: 4 requests per second to the content service, burst of 8.
	defaultRPS   = 4.0
	defaultBurst = 8

	defaultTimeout = 30 * time.Second
)

// Client is a rate-limited content service client.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *ratelimit.Keyed
	logger  *slog.Logger
}

// New creates a new content client.
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

// GetContent fetches the full text of a book.
// The returned string is NFC-normalized markdown-ish text: HTML responses are
// converted, plain-text responses pass through unchanged.
func (c *Client) GetContent(ctx context.Context, bookID string) (string, error) {
	if bookID == "" {
		return "", apperrors.Validation("book ID is required")
	}

	body, contentType, err := c.doRequest(ctx, "/v1/books/"+bookID+"/content")
	if err != nil {
		return "", err
	}

	text := string(body)
	if isHTML(contentType, text) {
		converted, err := htmltomarkdown.ConvertString(text)
		if err != nil {
			// A book that cannot be converted is still readable as raw text.
			c.logger.Warn("html conversion failed, using raw content",
				"book_id", bookID,
				"error", err,
			)
		} else {
			text = converted
		}
	}

	// Combining characters must compose the same way they will in the
	// reading pane, or highlight offsets drift.
	return norm.NFC.String(text), nil
}

// doRequest executes a GET against the content service with rate limiting.
func (c *Client) doRequest(ctx context.Context, path string) ([]byte, string, error) {
	if err := c.limiter.Wait(ctx, "content"); err != nil {
		return nil, "", fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain, text/html")
	req.Header.Set("User-Agent", "Narrate/1.0")

	c.logger.Debug("content request", "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", apperrors.Upstream("content service unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", apperrors.Upstream("read content response").WithCause(err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, resp.Header.Get("Content-Type"), nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", apperrors.NotFound("book content not found")
	case resp.StatusCode >= 500:
		return nil, "", apperrors.Upstreamf("content service returned %d", resp.StatusCode)
	default:
		return nil, "", apperrors.Upstreamf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

// isHTML reports whether a response should go through markdown conversion.
// The content type wins when present; otherwise the body is sniffed for a
// leading tag, since some books were ingested before the service set headers.
func isHTML(contentType, body string) bool {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			return mt == "text/html" || mt == "application/xhtml+xml"
		}
	}
	trimmed := strings.TrimSpace(body)
	return strings.HasPrefix(trimmed, "<")
}
