// Package monitor fetches monitor payloads from the survey API.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lucaslnrr/v0-response-monitor/internal/models"
)

const (
	monitorPath     = "/api/surveys/monitor"
	defaultTimeout  = 10 * time.Second
	maxErrorBodyLen = 512
)

// ErrUpstream is returned for any unexpected answer from the survey API.
var ErrUpstream = errors.New("survey api error")

// Client calls GET /api/surveys/monitor. It never retries.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. for tests or custom transports.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout bounds each request when the default client is used.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(cl *Client) {
		if rps <= 0 {
			cl.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		cl.limiter = rate.NewLimiter(rate.Limit(rps), max(1, burst))
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// NewClient builds a client for the survey API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse monitor api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("monitor api url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("monitor-client")
	return c, nil
}

func (c *Client) monitorURL(token string) string {
	u := *c.baseURL
	u.Path += monitorPath
	u.RawQuery = url.Values{"token": []string{token}}.Encode()
	return u.String()
}

// FetchMonitor loads the monitor payload for token.
func (c *Client) FetchMonitor(ctx context.Context, token string) (models.MonitorPayload, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.MonitorPayload{}, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.monitorURL(token), nil)
	if err != nil {
		return models.MonitorPayload{}, fmt.Errorf("build monitor request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.MonitorPayload{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden:
		drain(resp.Body)
		return models.MonitorPayload{}, models.ErrMonitorNotFound
	case http.StatusGone:
		drain(resp.Body)
		return models.MonitorPayload{}, models.ErrMonitorExpired
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		c.logger.Warn("unexpected survey api status",
			zap.Int("status", resp.StatusCode),
			zap.String("token_hash", models.HashToken(token)))
		return models.MonitorPayload{}, fmt.Errorf("%w: status %d: %s",
			ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload models.MonitorPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.MonitorPayload{}, fmt.Errorf("%w: decode monitor payload: %v", ErrUpstream, err)
	}
	return payload, nil
}

func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, maxErrorBodyLen))
}
