package sources

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"cryptodesk/config"
	"cryptodesk/pkg/coin"
)

// ErrEmpty is returned by an adapter whose response parsed but yielded no usable price.
var ErrEmpty = errors.New("no usable prices")

// Price is one coin's USD quote as reported by a single upstream.
type Price struct {
	USD       float64
	Change24h float64
}

// PriceMap is an adapter's normalized output. Coins the upstream did not report are absent.
type PriceMap map[coin.ID]Price

// Source is one upstream price API together with its response parser.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (PriceMap, error)
}

// Chain builds the default fallback order: CoinGecko, CoinGecko demo, Binance, CoinCap, Coinbase.
func Chain(rest *RESTClient, cfg config.AggregatorConfig, demoKey string) []Source {
	return []Source{
		NewCoinGecko(rest, cfg.CoinGecko.BaseURL, ""),
		NewCoinGecko(rest, cfg.CoinGecko.BaseURL, demoKey),
		NewBinance(rest, cfg.Binance.BaseURL),
		NewCoinCap(rest, cfg.CoinCap.BaseURL),
		NewCoinbase(rest, cfg.Coinbase.BaseURL),
	}
}

func nonEmpty(m PriceMap) (PriceMap, error) {
	if len(m) == 0 {
		return nil, ErrEmpty
	}
	return m, nil
}

// parsePrice accepts only finite positive numbers.
func parsePrice(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !(v > 0) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseChange treats an unparseable change as no change.
func parseChange(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
