package aggregator

import (
	"context"
	"errors"
	"time"

	"cryptodesk/pkg/coin"
	"cryptodesk/pkg/memorystore"
	"cryptodesk/pkg/sources"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheDuration bounds upstream load to one fetch cycle per window.
const DefaultCacheDuration = 30 * time.Second

// ErrNoData means every source failed and nothing was ever cached.
var ErrNoData = errors.New("unable to fetch prices")

// Listener is told about every snapshot produced by a live fetch.
// Cache hits and stale fallbacks are not announced.
type Listener interface {
	OnSnapshot(ctx context.Context, snap coin.Snapshot)
}

// Aggregator serves one process-wide snapshot, refilled from the first
// source in order that yields any usable price.
type Aggregator struct {
	sources   []sources.Source
	ttl       time.Duration
	cache     memorystore.Slot[coin.Snapshot]
	flight    singleflight.Group
	listeners []Listener
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Aggregator)

func WithCacheDuration(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.ttl = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func WithListener(l Listener) Option {
	return func(a *Aggregator) { a.listeners = append(a.listeners, l) }
}

func New(srcs []sources.Source, logger *zap.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{
		sources: srcs,
		ttl:     DefaultCacheDuration,
		logger:  logger.Named("aggregator"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetRates returns the cached snapshot while fresh, otherwise runs one fetch
// cycle shared by every concurrent caller. When all sources fail it falls
// back to the last snapshot marked Stale, or ErrNoData on a cold cache.
func (a *Aggregator) GetRates(ctx context.Context) (coin.Snapshot, error) {
	if snap, ok := a.fresh(); ok {
		return snap, nil
	}

	// The cycle outlives any single caller; each source call has its own timeout.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := a.flight.Do("rates", func() (any, error) {
		return a.refresh(flightCtx)
	})
	if err != nil {
		return coin.Snapshot{}, err
	}
	return v.(coin.Snapshot), nil
}

func (a *Aggregator) fresh() (coin.Snapshot, bool) {
	e, ok := a.cache.Get()
	if !ok || !e.Fresh(a.now(), a.ttl) {
		return coin.Snapshot{}, false
	}
	return e.Data, true
}

func (a *Aggregator) refresh(ctx context.Context) (coin.Snapshot, error) {
	// A flight that finished just before this one started may have refilled the slot.
	if snap, ok := a.fresh(); ok {
		return snap, nil
	}

	prices, ok := a.fetch(ctx)
	if !ok {
		if e, cached := a.cache.Get(); cached {
			a.logger.Warn("all sources failed, serving stale snapshot",
				zap.Duration("age", a.now().Sub(e.Timestamp)))
			stale := e.Data
			stale.Stale = true
			return stale, nil
		}
		a.logger.Error("all sources failed with empty cache")
		return coin.Snapshot{}, ErrNoData
	}

	now := a.now()
	snap := newSnapshot(prices, now)
	a.cache.Set(snap, now)

	if len(a.listeners) > 0 {
		go a.notify(ctx, snap)
	}
	return snap, nil
}

// notify hands one snapshot to every listener in registration order.
// Listeners drop snapshots older than the last one they saw, so cycles
// finishing out of order never roll a listener back.
func (a *Aggregator) notify(ctx context.Context, snap coin.Snapshot) {
	for _, l := range a.listeners {
		l.OnSnapshot(ctx, snap)
	}
}

// fetch walks the sources in order and returns the first non-empty result
// untouched. Results are never merged across sources.
func (a *Aggregator) fetch(ctx context.Context) (sources.PriceMap, bool) {
	for _, src := range a.sources {
		start := a.now()
		prices, err := src.Fetch(ctx)
		if err != nil {
			a.logger.Warn("source failed", zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		if len(prices) == 0 {
			a.logger.Warn("source returned no prices", zap.String("source", src.Name()))
			continue
		}
		a.logger.Debug("source succeeded",
			zap.String("source", src.Name()),
			zap.Int("coins", len(prices)),
			zap.Duration("took", a.now().Sub(start)))
		return prices, true
	}
	return nil, false
}

func newSnapshot(prices sources.PriceMap, at time.Time) coin.Snapshot {
	snap := coin.Snapshot{
		Rates:     make(map[string]float64),
		Prices:    make([]coin.PriceQuote, 0, len(prices)),
		Timestamp: at.UnixMilli(),
		Source:    coin.SourceLive,
	}
	for _, c := range coin.Supported() {
		p, ok := prices[c.ID]
		if !ok {
			continue
		}
		sym := string(c.Symbol)
		snap.Rates[sym] = p.USD
		snap.Prices = append(snap.Prices, coin.PriceQuote{Symbol: sym, Price: p.USD, Change: p.Change24h})
	}
	return snap
}
