package airbrb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/airbrb-notify/internal/source"
)

// Client is a thin HTTP client for the AirBrB REST API.
// It handles Bearer token authentication, JSON decoding, and
// automatic retry with exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMaxRetries sets how many times a rate-limited request is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// NewClient creates a new AirBrB HTTP client. The baseURL should be the
// root URL of the backend (e.g., http://localhost:5005). The token may be
// empty for unauthenticated endpoints.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, result)
}

// do builds the request, handles auth and rate limiting with exponential
// backoff, and decodes the JSON body. Every failure it returns is either a
// *source.AuthError or a *source.FetchError.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	result any,
) error {
	url := c.baseURL + path
	op := method + " " + path

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return &source.FetchError{Kind: source.KindFetch, Op: op, Err: fmt.Errorf("creating request: %w", err)}
		}

		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &source.FetchError{Kind: source.KindFetch, Op: op, Err: fmt.Errorf("executing request: %w", err)}
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return &source.FetchError{Kind: source.KindFetch, Op: op, Err: fmt.Errorf("reading response body: %w", readErr)}
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on %s", op)

			// A wait that outlives the deadline cannot end in a retry.
			if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < waitDuration {
				return &source.FetchError{
					Kind: source.KindFetch,
					Op:   op,
					Err:  fmt.Errorf("retry after %s exceeds deadline: %w", waitDuration, context.DeadlineExceeded),
				}
			}

			select {
			case <-ctx.Done():
				return &source.FetchError{Kind: source.KindFetch, Op: op, Err: ctx.Err()}
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == http.StatusForbidden {
			return &source.AuthError{
				Status:  resp.StatusCode,
				Message: errorMessage(respBody, "invalid or expired token"),
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &source.FetchError{
				Kind: source.KindFetch,
				Op:   op,
				Err: fmt.Errorf("unexpected status %d: %s",
					resp.StatusCode, errorMessage(respBody, "Request failed")),
			}
		}

		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return &source.FetchError{Kind: source.KindParse, Op: op, Err: fmt.Errorf("unmarshaling response: %w", err)}
		}

		return nil
	}

	return &source.FetchError{
		Kind: source.KindFetch,
		Op:   op,
		Err:  fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr),
	}
}

// errorMessage extracts the backend's {"error": "..."} message, falling
// back to def when the body carries none.
func errorMessage(body []byte, def string) string {
	var apiErr ErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		return apiErr.Error
	}
	return def
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
