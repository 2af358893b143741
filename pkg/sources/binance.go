package sources

import (
	"context"
	"fmt"
	"strings"

	"cryptodesk/pkg/coin"
)

// binancePairs maps USDT-quoted spot pairs to coin ids. Binance lists no
// USDTUSDT pair; the entry is kept so the table covers every coin, and it
// never matches.
var binancePairs = map[string]coin.ID{
	"BTCUSDT":  coin.Bitcoin,
	"ETHUSDT":  coin.Ethereum,
	"LTCUSDT":  coin.Litecoin,
	"USDTUSDT": coin.Tether,
	"TRXUSDT":  coin.Tron,
	"XRPUSDT":  coin.Ripple,
	"SOLUSDT":  coin.Solana,
	"DOGEUSDT": coin.Dogecoin,
	"ADAUSDT":  coin.Cardano,
}

// Binance reads the 24h ticker for every spot pair.
type Binance struct {
	rest    *RESTClient
	baseURL string
}

func NewBinance(rest *RESTClient, baseURL string) *Binance {
	return &Binance{rest: rest, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Binance) Name() string { return "Binance" }

func (s *Binance) Fetch(ctx context.Context) (PriceMap, error) {
	var tickers []binanceTicker
	if err := s.rest.getJSON(ctx, s.baseURL+"/api/v3/ticker/24hr", &tickers); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}

	out := make(PriceMap)
	for _, t := range tickers {
		id, ok := binancePairs[t.Symbol]
		if !ok {
			continue
		}
		usd, ok := parsePrice(t.LastPrice)
		if !ok {
			continue
		}
		out[id] = Price{USD: usd, Change24h: parseChange(t.PriceChangePercent)}
	}
	return nonEmpty(out)
}
