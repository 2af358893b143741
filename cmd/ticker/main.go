package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptodesk/config"
	"cryptodesk/internal/publish"
	"cryptodesk/logger"
	"cryptodesk/pkg/client"
	"cryptodesk/pkg/coin"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	streamMode := flag.Bool("stream", false, "follow the server's websocket stream instead of polling")
	redisMode := flag.Bool("redis", false, "follow snapshots published on the redis channel")
	amount := flag.String("convert", "", "amount to convert on every update")
	from := flag.String("from", "BTC", "symbol to convert from")
	to := flag.String("to", client.USD, "symbol to convert to")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	conv := converter{from: *from, to: *to, log: log}
	if *amount != "" {
		if conv.amount, err = decimal.NewFromString(*amount); err != nil {
			log.Fatal("invalid -convert amount", zap.String("amount", *amount), zap.Error(err))
		}
		conv.enabled = true
	}

	switch {
	case *streamMode:
		ws := client.NewWSClient(cfg.Client.BaseURL, log)
		ws.SetMessageHandler(func(s coin.Snapshot) { report(log, conv, s.Rates, s.Prices, stateOf(s)) })
		if err := ws.Connect(ctx); err != nil {
			log.Fatal("failed to connect", zap.Error(err))
		}
		ws.Listen(ctx)
	case *redisMode:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		err := publish.Subscribe(ctx, rdb, cfg.Redis.Channel, func(s coin.Snapshot) {
			report(log, conv, s.Rates, s.Prices, stateOf(s))
		})
		if err != nil && ctx.Err() == nil {
			log.Fatal("redis subscription failed", zap.Error(err))
		}
	default:
		poll(ctx, client.NewFromConfig(cfg.Client, log), cfg.Client.PollInterval, log, conv)
	}
}

func poll(ctx context.Context, c *client.Client, interval time.Duration, log *zap.Logger, conv converter) {
	if interval <= 0 {
		interval = client.DefaultCacheDuration
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		rates := c.FetchExchangeRates(ctx)
		prices := c.FetchCryptoPrices(ctx)
		report(log, conv, rates, prices, c.State())

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func stateOf(s coin.Snapshot) client.State {
	if s.Stale {
		return client.StateStale
	}
	return client.StateLive
}

func report(log *zap.Logger, conv converter, rates map[string]float64, prices []coin.PriceQuote, state client.State) {
	if len(rates) == 0 {
		log.Warn("prices unavailable", zap.String("state", state.String()))
		return
	}

	for _, q := range prices {
		log.Info("price",
			zap.String("symbol", q.Symbol),
			zap.Float64("usd", q.Price),
			zap.Float64("change_24h", q.Change),
			zap.String("state", state.String()))
	}
	log.Debug("rates", zap.Any("rates", rates))
	conv.apply(rates)
}

type converter struct {
	enabled  bool
	amount   decimal.Decimal
	from, to string
	log      *zap.Logger
}

func (c converter) apply(rates map[string]float64) {
	if !c.enabled {
		return
	}
	out, err := client.Convert(rates, c.amount, c.from, c.to)
	if err != nil {
		c.log.Warn("conversion failed", zap.String("from", c.from), zap.String("to", c.to), zap.Error(err))
		return
	}
	c.log.Info("conversion",
		zap.String("amount", c.amount.String()),
		zap.String("from", c.from),
		zap.String("to", c.to),
		zap.String("result", out.String()))
}
