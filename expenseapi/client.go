// Package expenseapi is a thin client for the remote expense-tracker
// backend, used to replay queued mutations and to warm the cache during
// install.
package expenseapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

const DefaultBaseURL = "http://localhost:8000"

type Client struct {
	http    *http.Client
	baseURL *url.URL
	tokens  oauth2.TokenSource // optional; nil means no service token
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil {
			c.baseURL = u
		}
	}
}

// WithTokenSource sets the service token used for requests that carry no
// per-mutation authorization context (e.g. install precache).
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func New(opts ...Option) *Client {
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:    http.DefaultClient,
		baseURL: u,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Error carries the status and the backend's human-readable message from a
// non-success response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote rejected: status %d: %s", e.Status, e.Message)
}

// IsRemoteRejection reports whether err is a non-2xx backend response as
// opposed to a transport failure.
func IsRemoteRejection(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr)
}

func (c *Client) resolve(p string) string {
	u := *c.baseURL
	ref, err := url.Parse(p)
	if err != nil {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(p, "/")
		return u.String()
	}
	return u.ResolveReference(ref).String()
}

// Replay reissues a queued mutation with its captured payload and
// authorization context. A nil error means the backend confirmed the write.
func (c *Client) Replay(ctx context.Context, method, path string, payload []byte, token string) error {
	var body io.Reader
	if len(payload) > 0 {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return err
	}
	if len(payload) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("replay %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	b, _ := io.ReadAll(resp.Body)
	return &Error{Status: resp.StatusCode, Message: errorMessage(b)}
}

// Fetch performs a GET against the backend, attaching the service token if
// one is configured. Used for install-time cache warm-up, where the manifest
// mixes HTML pages and API URLs, so no Accept header is forced.
func (c *Client) Fetch(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return nil, err
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err == nil && tok.AccessToken != "" {
			tok.SetAuthHeader(req)
		}
	}
	return c.http.Do(req)
}

// errorMessage extracts the backend's message field from an error body,
// falling back to the raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "no error detail"
	}
	return msg
}
