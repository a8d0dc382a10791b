// Package transport provides the HTTP client shared by all source
// collectors: authentication, JSON decoding, a fixed inter-request
// delay on every call, and bounded retries with fixed backoff on
// transient failures.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sfdaycarelist/directory/pkg/constants"
	"github.com/sfdaycarelist/directory/pkg/errors"
	"github.com/sfdaycarelist/directory/pkg/logging"
)

// Client is an HTTP client for one source API. It is safe for
// concurrent use, though collectors call it serially by design.
type Client struct {
	http       *http.Client
	auth       Authenticator
	apiKey     string
	source     string
	delay      time.Duration
	maxRetries int
	backoff    time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithAuth sets the authenticator and API key applied to every request.
func WithAuth(auth Authenticator, apiKey string) Option {
	return func(c *Client) {
		c.auth = auth
		c.apiKey = apiKey
	}
}

// WithDelay sets the fixed delay applied before every request, success
// or failure. Zero disables the delay.
func WithDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// WithRetries sets the retry budget and fixed backoff for transient
// failures.
func WithRetries(max int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		c.backoff = backoff
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a transport client for the named source.
func New(source string, opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: constants.DefaultHTTPTimeout},
		auth:       &NoAuth{},
		source:     source,
		maxRetries: constants.MaxRetries,
		backoff:    constants.RetryBackoff,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON performs a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.doJSON(ctx, http.MethodGet, url, nil, out)
}

// PostJSON performs a POST request with a JSON body and decodes the
// JSON response into out.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}
	return c.doJSON(ctx, http.MethodPost, url, payload, out)
}

// doJSON runs one logical request: the inter-request delay, then up to
// 1+maxRetries attempts separated by the fixed backoff. Only transient
// failures are retried; a 4xx other than 429 fails immediately.
func (c *Client) doJSON(ctx context.Context, method, url string, body []byte, out any) error {
	if c.delay > 0 {
		if err := c.sleep(ctx, c.delay); err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logging.FromContext(ctx).Debug().
				Str("source", c.source).
				Str("url", url).
				Int("attempt", attempt).
				Msg("retrying request")
			if err := c.sleep(ctx, c.backoff); err != nil {
				return err
			}
		}

		err := c.attempt(ctx, method, url, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !errors.IsTransient(err) {
			return err
		}
	}
	return lastErr
}

func (c *Client) attempt(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("creating %s %s: %w", method, url, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		c.auth.Apply(req, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &errors.SourceError{
			Source:   c.source,
			Endpoint: url,
			Message:  "request failed",
			Err:      classifyNetErr(err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return errors.NewSourceError(c.source, resp.StatusCode, fmt.Sprintf("%s %s", method, url))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &errors.SourceError{
			Source:   c.source,
			Endpoint: url,
			Message:  "decoding response",
			Err:      err,
		}
	}
	return nil
}

// classifyNetErr maps timeouts to the retryable sentinel; other network
// errors pass through as-is and are still treated as transient by the
// source error wrapper.
func classifyNetErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", errors.ErrTimeout, err)
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
