// Package client is the consumer-side wrapper around GET /api/crypto/prices.
//
// It keeps its own short cache per operation, retries the server with
// exponential backoff, and never lets two refreshes run at once: a caller
// arriving during a refresh gets whatever is cached, however old. Every
// operation degrades to the last known value and finally to an empty result;
// none of them return an error.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"cryptodesk/config"
	"cryptodesk/pkg/coin"
	"cryptodesk/pkg/memorystore"

	"go.uber.org/zap"
)

const (
	KeyExchangeRates = "exchange-rates"
	KeyCryptoPrices  = "crypto-prices"

	PricesPath = "/api/crypto/prices"

	DefaultCacheDuration = 15 * time.Second
	DefaultTimeout       = 5 * time.Second
	DefaultMaxRetries    = 3
	DefaultRetryDelay    = time.Second

	maxBodyBytes = 1 << 20
)

// State is what a price widget should render for the last answer it got.
type State int32

const (
	StateUnavailable State = iota
	StateLive
	StateStale
)

func (s State) String() string {
	switch s {
	case StateLive:
		return "live"
	case StateStale:
		return "stale"
	default:
		return "unavailable"
	}
}

// payload mirrors both the snapshot and the 503 error body.
type payload struct {
	Rates  map[string]float64 `json:"rates"`
	Prices []coin.PriceQuote  `json:"prices"`
	Stale  bool               `json:"stale"`
	Error  string             `json:"error"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	cacheTTL   time.Duration
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration

	rates  *memorystore.Store[map[string]float64]
	prices *memorystore.Store[[]coin.PriceQuote]

	inFlight atomic.Bool
	state    atomic.Int32

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger *zap.Logger
}

type Option func(*Client)

func WithCacheDuration(d time.Duration) Option { return func(c *Client) { c.cacheTTL = d } }

func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

func WithRetries(n int, delay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = n
		c.retryDelay = delay
	}
}

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// WithSleep replaces the backoff wait, e.g. to record delays in tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.Named("client")
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		cacheTTL:   DefaultCacheDuration,
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		rates:      memorystore.NewStore[map[string]float64](),
		prices:     memorystore.NewStore[[]coin.PriceQuote](),
		now:        time.Now,
		sleep:      sleepCtx,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a Client from the client section of the config.
func NewFromConfig(cfg config.ClientConfig, logger *zap.Logger) *Client {
	opts := []Option{WithRetries(cfg.MaxRetries, cfg.RetryDelay)}
	if cfg.CacheDuration > 0 {
		opts = append(opts, WithCacheDuration(cfg.CacheDuration))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	return New(cfg.BaseURL, opts...)
}

// State reports the freshness of the most recent answer.
func (c *Client) State() State { return State(c.state.Load()) }

// FetchExchangeRates returns symbol → USD price. An empty map means no data
// is available at all, not zero prices.
func (c *Client) FetchExchangeRates(ctx context.Context) map[string]float64 {
	return fetch(ctx, c, view[map[string]float64]{
		key:     KeyExchangeRates,
		store:   c.rates,
		pick:    func(p *payload) map[string]float64 { return p.Rates },
		present: func(p *payload) bool { return p.Rates != nil },
		size:    func(m map[string]float64) int { return len(m) },
		clone: func(m map[string]float64) map[string]float64 {
			if m == nil {
				return map[string]float64{}
			}
			return maps.Clone(m)
		},
	})
}

// FetchCryptoPrices returns the ordered quotes with 24h change.
func (c *Client) FetchCryptoPrices(ctx context.Context) []coin.PriceQuote {
	return fetch(ctx, c, view[[]coin.PriceQuote]{
		key:     KeyCryptoPrices,
		store:   c.prices,
		pick:    func(p *payload) []coin.PriceQuote { return p.Prices },
		present: func(p *payload) bool { return p.Prices != nil },
		size:    func(q []coin.PriceQuote) int { return len(q) },
		clone: func(q []coin.PriceQuote) []coin.PriceQuote {
			if q == nil {
				return []coin.PriceQuote{}
			}
			return slices.Clone(q)
		},
	})
}

// view adapts one cached operation to the shared fetch path.
type view[T any] struct {
	key     string
	store   *memorystore.Store[T]
	pick    func(*payload) T
	present func(*payload) bool // the field was in the body, even if empty
	size    func(T) int
	clone   func(T) T
}

func fetch[T any](ctx context.Context, c *Client, v view[T]) T {
	if data, ok := v.store.GetFresh(v.key, c.now(), c.cacheTTL); ok {
		return v.clone(data)
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		c.logger.Debug("refresh in flight, serving cache", zap.String("key", v.key))
		return cached(v)
	}
	defer c.inFlight.Store(false)

	p, err := c.load(ctx)
	if err != nil {
		c.logger.Debug("fetch failed", zap.String("key", v.key), zap.Error(err))
		return fallback(c, v)
	}

	data := v.pick(p)
	if v.size(data) > 0 {
		v.store.Set(v.key, data, c.now())
		c.setState(p.Stale)
		return v.clone(data)
	}
	if p.Stale && v.present(p) {
		c.setState(true)
		return v.clone(data)
	}
	return fallback(c, v)
}

// cached returns the last stored value regardless of age, or an empty one.
func cached[T any](v view[T]) T {
	e, ok := v.store.Get(v.key)
	if !ok {
		var zero T
		return v.clone(zero)
	}
	return v.clone(e.Data)
}

// fallback serves the cache after a failed refresh and records the UI state.
func fallback[T any](c *Client, v view[T]) T {
	if _, ok := v.store.Get(v.key); ok {
		c.state.Store(int32(StateStale))
	} else {
		c.state.Store(int32(StateUnavailable))
	}
	return cached(v)
}

func (c *Client) setState(stale bool) {
	if stale {
		c.state.Store(int32(StateStale))
		return
	}
	c.state.Store(int32(StateLive))
}

// load fetches and decodes one answer from the server. Any status is decoded;
// the 503 body has the same shape with empty collections.
func (c *Client) load(ctx context.Context) (*payload, error) {
	status, body, err := c.fetchWithRetry(ctx)
	if err != nil {
		return nil, err
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode response (http %d): %w", status, err)
	}
	if status < 200 || status >= 300 {
		c.logger.Debug("server returned error", zap.Int("status", status), zap.String("error", p.Error))
	}
	return &p, nil
}

// Backoff is the wait after failed attempt i (0-based): base × 2^i.
func Backoff(base time.Duration, attempt int) time.Duration {
	return base << attempt
}

// fetchWithRetry makes up to maxRetries+1 attempts. Network errors and 503
// are retried after Backoff; any other status is returned as is. A 503 on
// the last attempt is returned, a network error on the last attempt is not.
func (c *Client) fetchWithRetry(ctx context.Context) (int, []byte, error) {
	for i := 0; ; i++ {
		status, body, err := c.attempt(ctx)
		if err == nil && status != http.StatusServiceUnavailable {
			return status, body, nil
		}
		if i >= c.maxRetries {
			if err != nil {
				return 0, nil, fmt.Errorf("after %d attempts: %w", i+1, err)
			}
			return status, body, nil
		}

		delay := Backoff(c.retryDelay, i)
		c.logger.Debug("retrying", zap.Int("attempt", i+1), zap.Int("status", status),
			zap.Duration("delay", delay), zap.Error(err))
		if err := c.sleep(ctx, delay); err != nil {
			return 0, nil, err
		}
	}
}

// attempt is one GET bounded by the per-attempt timeout, body included.
func (c *Client) attempt(ctx context.Context) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PricesPath, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, body, nil
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
