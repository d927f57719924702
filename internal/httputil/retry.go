// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the rate-limited, retrying HTTP client shared by
// the search and detail stages.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 1 * time.Second

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 50 << 20
)

// TransportError reports a request that failed on every attempt. Err is the
// failure of the last attempt.
type TransportError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("GET %s failed after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is the failure recorded for a non-2xx response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	// MaxAttempts is the total number of attempts per request (default 3).
	MaxAttempts int

	// Backoff is the base delay between attempts. The wait before attempt
	// n+1 is n*Backoff: 1s, 2s with the default.
	Backoff time.Duration

	// UserAgent is sent with every request when set.
	UserAgent string

	// Params are added to every request (NCBI tool, email, api_key).
	Params url.Values

	Logger zerolog.Logger
}

// Client issues GET requests through a Waiter and retries transport
// failures and non-2xx responses with linearly increasing backoff.
type Client struct {
	http    *http.Client
	limiter Waiter
	opts    Options
}

// NewClient wires an *http.Client to a limiter. The http.Client timeout
// bounds each attempt.
func NewClient(hc *http.Client, limiter Waiter, opts Options) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	if limiter == nil {
		limiter = NewRateLimiter(0)
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	return &Client{http: hc, limiter: limiter, opts: opts}
}

// Get requests endpoint with params and returns the response body. Each
// attempt consumes one limiter slot. After MaxAttempts failures it returns a
// *TransportError; a cancelled ctx is returned as ctx.Err().
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := endpoint
	if q := c.query(params); q != "" {
		reqURL += "?" + q
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * c.opts.Backoff
			c.opts.Logger.Debug().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Err(lastErr).
				Msg("retrying request")
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		body, err := c.do(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
	}

	return nil, &TransportError{Endpoint: endpoint, Attempts: c.opts.MaxAttempts, Err: lastErr}
}

func (c *Client) do(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}

// query merges the fixed params with the per-request ones. Per-request
// values win.
func (c *Client) query(params url.Values) string {
	merged := url.Values{}
	for k, v := range c.opts.Params {
		merged[k] = append([]string(nil), v...)
	}
	for k, v := range params {
		merged[k] = append([]string(nil), v...)
	}
	return merged.Encode()
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

// IsTransport reports whether err is, or wraps, a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
