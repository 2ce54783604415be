// Package httpds implements a small HTTP client used by the API datasource.
// It applies a per-request timeout, base headers, and optional TLS
// verification skipping. Every request is tied to a context. Failed requests
// are reported to the caller as-is; there is no retry loop.
package httpds

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrBodyTooLarge is returned by GetBytes when a response exceeds
// Config.MaxBodyBytes.
var ErrBodyTooLarge = errors.New("httpds: response body too large")

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpds: %s %s: unexpected status %d %s", e.Method, e.URL, e.Code, http.StatusText(e.Code))
}

// Config configures the HTTP client.
//
// Zero values are given defaults:
//   - Timeout:      30s
//   - MaxBodyBytes: 32 MiB
type Config struct {
	// Timeout is the per-request timeout applied at the http.Client level.
	Timeout time.Duration

	// MaxBodyBytes caps how much of a response GetBytes will buffer.
	MaxBodyBytes int64

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// BaseHeaders are added to every request. Per-request headers take
	// precedence.
	BaseHeaders http.Header

	// Transport is an optional custom RoundTripper. When nil, a default
	// *http.Transport is constructed from the TLS settings.
	Transport http.RoundTripper
}

// Client wraps an http.Client.
type Client struct {
	httpClient   *http.Client
	baseHeaders  http.Header
	maxBodyBytes int64
}

// NewClient constructs a Client from Config, applying defaults for zero values.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 32 << 20
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicitly configurable
			},
		}
	}

	hdr := http.Header{}
	for k, vs := range cfg.BaseHeaders {
		for _, v := range vs {
			hdr.Add(k, v)
		}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		baseHeaders:  hdr,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Do sends one HTTP request. The returned *http.Response has a non-nil Body
// which the caller must close. Any status is returned without error; use
// GetBytes for status checking.
func (c *Client) Do(
	ctx context.Context,
	method, url string,
	body []byte,
	headers http.Header,
) (*http.Response, error) {
	if method == "" {
		return nil, fmt.Errorf("httpds: method must not be empty")
	}
	if url == "" {
		return nil, fmt.Errorf("httpds: url must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("httpds: build request: %w", err)
	}

	// Base headers first, then per-request headers (which override).
	for k, vs := range c.baseHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpds: %s %s: %w", method, url, err)
	}
	return resp, nil
}

// Get is a convenience wrapper over Do for HTTP GET. The caller must close
// the response body.
func (c *Client) Get(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, headers)
}

// GetBytes performs a GET and returns the full body of a 2xx response.
// Other statuses yield a *StatusError.
func (c *Client) GetBytes(ctx context.Context, url string, headers http.Header) ([]byte, error) {
	resp, err := c.Get(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, &StatusError{Method: http.MethodGet, URL: url, Code: resp.StatusCode}
	}

	lr := &io.LimitedReader{R: resp.Body, N: c.maxBodyBytes + 1}
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, fmt.Errorf("httpds: read %s: %w", url, err)
	}
	if int64(len(b)) > c.maxBodyBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, url, c.maxBodyBytes)
	}
	return b, nil
}
