// Package trackerclient is a thin JSON-over-HTTP client for the task
// tracker API. Every call produces a Result the caller can branch on;
// non-2xx responses are values, not errors.
package trackerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTransport wraps failures to build, send or read a request.
	ErrTransport = errors.New("transport failure")
	// ErrMalformedResponse is returned when a 2xx body is not valid JSON.
	ErrMalformedResponse = errors.New("malformed response")
)

// RequestIDHeader carries a per-call correlation id.
const RequestIDHeader = "X-Request-ID"

// Client sends requests to a fixed base URL with a bearer credential.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for the per-call diagnostic line.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout sets an overall per-request timeout. Zero keeps the
// transport default (no timeout).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// New creates a Client for baseURL (e.g. http://localhost:3210/api/v1).
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send performs one request. body is JSON-encoded when non-nil; a nil body
// sends no payload at all.
//
// A non-2xx response yields a failure Result and a nil error. The error is
// non-nil only for local faults: ErrTransport when the exchange itself
// failed and ErrMalformedResponse when a 2xx body cannot be decoded (the
// Result is still returned in that case).
func (c *Client) Send(ctx context.Context, method, path string, body any) (*Result, error) {
	res := &Result{Method: method, Path: path}

	var reader io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, fmt.Errorf("%w: encode %s %s: %w", ErrTransport, method, path, err)
		}
		reader = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s %s: %w", ErrTransport, method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	res.RequestID = uuid.NewString()
	req.Header.Set(RequestIDHeader, res.RequestID)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.Body, err = io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("read response failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: read %s %s: %w", ErrTransport, method, path, err)
	}

	if !res.OK() {
		c.logger.Error("request rejected",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", res.StatusCode),
			slog.String("body", res.Snippet()))
		return res, nil
	}

	if len(bytes.TrimSpace(res.Body)) > 0 {
		if err := json.Unmarshal(res.Body, &res.Value); err != nil {
			c.logger.Error("response decode failed",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", res.StatusCode),
				slog.String("body", res.Snippet()))
			return res, fmt.Errorf("%w: %s %s: %w", ErrMalformedResponse, method, path, err)
		}
	}

	c.logger.Info("request ok",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("result", res.Label()))
	return res, nil
}

// Get sends a bodyless GET.
func (c *Client) Get(ctx context.Context, path string) (*Result, error) {
	return c.Send(ctx, http.MethodGet, path, nil)
}

// Post sends a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Result, error) {
	return c.Send(ctx, http.MethodPost, path, body)
}

// Patch sends a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Result, error) {
	return c.Send(ctx, http.MethodPatch, path, body)
}
