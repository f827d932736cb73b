// Package chartapi is a typed client for the public chart/options quote API
// (Yahoo-compatible v8/v7 endpoints). It mirrors the upstream routes and
// response envelopes, parses them into model types and guards every call
// with a circuit breaker so a rate-limited or unreachable provider degrades
// to fast failures instead of piling up timeouts.
//
// Usage example:
//
//	c := chartapi.NewClient(chartapi.Config{})
//	series, err := c.FetchBars(ctx, "AAPL", model.Interval5m, window)
//	if err != nil { log.Fatal(err) }
//	fmt.Println("bars:", series.Len())
package chartapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ---- Config & client ----

type Config struct {
	BaseURL   string        // default: https://query1.finance.yahoo.com
	Timeout   time.Duration // default: 10s
	UserAgent string        // default: crosswatch/1.0
	Debug     bool

	// Circuit breaker tuning.
	MaxFailures  int           // consecutive failures before opening (default 5)
	ResetTimeout time.Duration // cooldown before the half-open probe (default 30s)

	// OnBreakerChange, when set, is invoked on every breaker transition
	// in addition to the client's own logging.
	OnBreakerChange func(from, to State)
}

// Client talks to the quote provider. Safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	debug     bool

	httpClient *http.Client
	breaker    *CircuitBreaker
}

const defaultBaseURL = "https://query1.finance.yahoo.com"

var routes = map[string]string{
	"market.chart":   "/v8/finance/chart/",
	"market.options": "/v7/finance/options/",
}

// ErrNoData marks a response that carried no usable rows for the symbol
// (unknown ticker, delisted, or an empty range).
var ErrNoData = errors.New("chartapi: no data for symbol")

// NewClient initializes the client with defaults mirroring the upstream API.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "crosswatch/1.0"
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout == 0 {
		cfg.ResetTimeout = 30 * time.Second
	}

	breaker := NewCircuitBreaker(cfg.MaxFailures, cfg.ResetTimeout)
	onChange := cfg.OnBreakerChange
	breaker.OnStateChange = func(from, to State) {
		log.Printf("[chartapi] circuit breaker %s -> %s", from, to)
		if onChange != nil {
			onChange(from, to)
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		debug:      cfg.Debug,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
	}
}

// BreakerState exposes the circuit state for health reporting.
func (c *Client) BreakerState() State { return c.breaker.CurrentState() }

func (c *Client) buildURL(route, symbol string) (string, error) {
	uri, ok := routes[route]
	if !ok {
		return "", fmt.Errorf("chartapi: unknown route: %s", route)
	}
	return c.baseURL + uri + url.PathEscape(symbol), nil
}

// doRequest performs a GET through the circuit breaker and returns the raw
// body. Non-2xx statuses are errors except 404, which callers see as
// ErrNoData so an unknown symbol does not trip the breaker open.
func (c *Client) doRequest(ctx context.Context, route, symbol string, params url.Values) ([]byte, error) {
	fullURL, err := c.buildURL(route, symbol)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var raw []byte
	var noData bool
	err = c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("chartapi: create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		if c.debug {
			log.Printf("[chartapi] GET %s", fullURL)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("chartapi: request %s: %w", route, err)
		}
		defer resp.Body.Close()

		raw, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("chartapi: read response: %w", err)
		}
		if c.debug {
			log.Printf("[chartapi] response code=%d bytes=%d", resp.StatusCode, len(raw))
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			// The provider answered; the symbol just has nothing.
			noData = true
			return nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("chartapi: rate limited (status 429)")
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return fmt.Errorf("chartapi: unexpected status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if noData {
		return nil, ErrNoData
	}
	return raw, nil
}

// apiError is the upstream error envelope carried inside chart/options
// responses ({"code": "Not Found", "description": "..."}).
type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("chartapi: %s: %s", e.Code, e.Description)
}
