// Package api is the client for the Memora backend REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maykaila/memora/internal/log"
	"github.com/maykaila/memora/internal/metrics"
	"github.com/maykaila/memora/internal/version"
)

// TokenSource returns the bearer token for the signed-in principal.
// forceRefresh bypasses any cached token.
type TokenSource func(ctx context.Context, forceRefresh bool) (string, error)

// Client is the Memora backend API client
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	tokens  TokenSource
	metrics *metrics.Metrics
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

// WithTokenSource attaches bearer authentication.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithMetrics records request counts and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a new backend API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = log.OrDefault(c.logger).With("component", "api")
	return c
}

// WithToken returns a copy of c that authenticates with a fixed token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.tokens = func(context.Context, bool) (string, error) { return token, nil }
	return &clone
}

// expand fills {placeholders} in route with params, in order.
func expand(route string, params ...string) string {
	var b strings.Builder
	rest := route
	for _, p := range params {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			break
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(p))
		rest = rest[open+end+1:]
	}
	b.WriteString(rest)
	return b.String()
}

// doRequest performs an HTTP request with authentication. route is the
// templated path and doubles as the metrics label. A 401 is retried once with
// a refreshed token.
func (c *Client) doRequest(ctx context.Context, method, route string, params []string, body interface{}) (*http.Response, string, error) {
	var payload []byte
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = jsonBody
	}

	path := expand(route, params...)
	requestID := uuid.NewString()

	for attempt := 0; ; attempt++ {
		resp, err := c.send(ctx, method, route, path, requestID, payload, attempt > 0)
		if err != nil {
			return nil, requestID, err
		}
		if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil && attempt == 0 {
			drain(resp)
			c.logger.Debug("retrying with refreshed token", "method", method, "route", route)
			continue
		}
		return resp, requestID, nil
	}
}

func (c *Client) send(ctx context.Context, method, route, path, requestID string, payload []byte, forceRefresh bool) (*http.Response, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.GetInfo().UserAgent())
	req.Header.Set("X-Request-ID", requestID)
	if c.tokens != nil {
		token, err := c.tokens(ctx, forceRefresh)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveRequest(method, route, 0, elapsed)
		c.logger.Debug("request failed", "method", method, "route", route, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	c.metrics.ObserveRequest(method, route, resp.StatusCode, elapsed)
	c.logger.Debug("request completed",
		"method", method, "route", route, "status", resp.StatusCode,
		"request_id", requestID, "duration", elapsed)
	return resp, nil
}

// call decodes the response into T, the single decode boundary for an endpoint.
func call[T any](ctx context.Context, c *Client, method, route string, params []string, body any) (T, error) {
	var zero T
	resp, requestID, err := c.doRequest(ctx, method, route, params, body)
	if err != nil {
		return zero, err
	}
	return decode[T](resp, method+" "+route, requestID)
}

func callList[T any](ctx context.Context, c *Client, route string, params ...string) ([]T, error) {
	resp, requestID, err := c.doRequest(ctx, http.MethodGet, route, params, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[T](resp, http.MethodGet+" "+route, requestID)
}

// exec performs a request whose response body is ignored on success.
func (c *Client) exec(ctx context.Context, method, route string, params []string, body any) error {
	resp, requestID, err := c.doRequest(ctx, method, route, params, body)
	if err != nil {
		return err
	}
	defer drain(resp)
	return checkStatus(resp, requestID)
}

// Ping sends an unauthenticated request to the deck list and returns the
// status code. Any HTTP answer means the backend is reachable.
func (c *Client) Ping(ctx context.Context) (int, error) {
	const route = "/flashcardsets"
	anon := *c
	anon.tokens = nil
	resp, err := anon.send(ctx, http.MethodGet, route, route, uuid.NewString(), nil, false)
	if err != nil {
		return 0, err
	}
	drain(resp)
	return resp.StatusCode, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
