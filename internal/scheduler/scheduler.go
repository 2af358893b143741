package scheduler

import (
	"context"
	"fmt"
	"time"

	"cryptodesk/pkg/coin"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher is satisfied by *aggregator.Aggregator.
type Refresher interface {
	GetRates(ctx context.Context) (coin.Snapshot, error)
}

// Refresh keeps the aggregator warm so stream subscribers get new snapshots
// without HTTP traffic. Calls go through the aggregator cache.
type Refresh struct {
	cron     *cron.Cron
	rates    Refresher
	interval time.Duration
	logger   *zap.Logger
}

func New(rates Refresher, interval time.Duration, logger *zap.Logger) *Refresh {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresh{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		rates:    rates,
		interval: interval,
		logger:   logger.Named("scheduler"),
	}
}

// RunOnce performs a single refresh and logs the outcome.
func (r *Refresh) RunOnce(ctx context.Context) {
	snap, err := r.rates.GetRates(ctx)
	switch {
	case err != nil:
		r.logger.Warn("refresh failed", zap.Error(err))
	case snap.Stale:
		r.logger.Warn("refresh served stale snapshot", zap.Int64("timestamp", snap.Timestamp))
	default:
		r.logger.Debug("refresh ok", zap.Int("symbols", len(snap.Rates)))
	}
}

// Run refreshes once immediately, then every interval until ctx is done.
func (r *Refresh) Run(ctx context.Context) error {
	if r.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	if _, err := r.cron.AddFunc(fmt.Sprintf("@every %s", r.interval), func() { r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("add refresh job: %w", err)
	}

	r.RunOnce(ctx)
	r.cron.Start()
	defer func() {
		stopCtx := r.cron.Stop()
		<-stopCtx.Done()
	}()

	<-ctx.Done()
	return nil
}
