package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptodesk/config"
	"cryptodesk/internal/aggregator"
	"cryptodesk/internal/api"
	"cryptodesk/internal/publish"
	"cryptodesk/internal/scheduler"
	"cryptodesk/internal/stream"
	"cryptodesk/logger"
	"cryptodesk/pkg/sources"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// viper config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("pricesrv failed", zap.Error(err))
	}
	log.Info("pricesrv stopped")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	rest := sources.NewRESTClient(cfg.Aggregator.SourceTimeout, cfg.Aggregator.UserAgent)
	demoKey := cfg.Aggregator.CoinGecko.ResolveDemoKey(cfg.Environment)
	chain := sources.Chain(rest, cfg.Aggregator, demoKey)

	hub := stream.NewHub(log)
	opts := []aggregator.Option{
		aggregator.WithCacheDuration(cfg.Aggregator.CacheDuration),
		aggregator.WithListener(hub),
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable, publishing anyway", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()

		opts = append(opts, aggregator.WithListener(publish.NewRedisPublisher(rdb, cfg.Redis.Channel, log)))
	}

	agg := aggregator.New(chain, log, opts...)
	router := api.NewRouter(api.New(agg, hub, log))
	refresh := scheduler.New(agg, cfg.Aggregator.RefreshInterval, log)

	log.Info("starting pricesrv",
		zap.String("addr", cfg.Server.Addr),
		zap.Int("sources", len(chain)),
		zap.Duration("cache", cfg.Aggregator.CacheDuration),
		zap.Bool("redis", cfg.Redis.Enabled))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return refresh.Run(gctx)
	})
	g.Go(func() error {
		return serveHTTP(gctx, cfg.Server, router, log)
	})
	return g.Wait()
}

func serveHTTP(ctx context.Context, cfg config.ServerConfig, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{Addr: cfg.Addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
	}()

	log.Info("HTTP listening", zap.String("addr", cfg.Addr))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
