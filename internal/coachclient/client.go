// Package coachclient talks to a running chess-coach server over its JSON
// API and its real-time socket.
package coachclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/chess-coach/pkg/chessdto"
)

// APIError is a non-2xx reply.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chess-coach api error: status=%d message=%s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	token   string

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

// WithToken sends an admin bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 15 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 15 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token, e.g. after AdminLogin.
func (c *Client) SetToken(token string) { c.token = strings.TrimSpace(token) }

func (c *Client) Health(ctx context.Context) (*chessdto.HealthResponse, error) {
	var out chessdto.HealthResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/healthz", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Bots(ctx context.Context) (*chessdto.BotsResponse, error) {
	var out chessdto.BotsResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/bots", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeMove is retried on 5xx; the server treats it as a pure query.
func (c *Client) AnalyzeMove(ctx context.Context, fen, san string) (*chessdto.Analysis, error) {
	var out chessdto.Analysis
	req := chessdto.AnalyzeMoveRequest{FEN: fen, SAN: san}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/analyze-move", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req chessdto.UpdateProfileRequest) (*chessdto.UpdateProfileResponse, error) {
	var out chessdto.UpdateProfileResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/update-profile", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminLogin authenticates and keeps the returned token for later calls.
func (c *Client) AdminLogin(ctx context.Context, username, password string) (*chessdto.AdminLoginResponse, error) {
	var out chessdto.AdminLoginResponse
	req := chessdto.AdminLoginRequest{Username: username, Password: password}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/admin-login", req, &out, false); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

func (c *Client) AdminLogout(ctx context.Context) error {
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/admin-logout", nil, nil, false); err != nil {
		return err
	}
	c.token = ""
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			apiErr := &APIError{Status: status, Message: errorMessage(resp.Body())}
			if !shouldRetryStatus(status) {
				return apiErr
			}
			lastErr = apiErr
		} else {
			if out != nil && status != fasthttp.StatusNoContent {
				if err := json.Unmarshal(resp.Body(), out); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
			}
			return nil
		}
		if attempt == attempts {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func errorMessage(body []byte) string {
	var e chessdto.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return truncate(string(body), 512)
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
