package sources

import (
	"context"
	"fmt"
	"strings"

	"cryptodesk/pkg/coin"

	"github.com/shopspring/decimal"
)

var coinbaseCurrencies = map[string]coin.ID{
	"BTC":  coin.Bitcoin,
	"ETH":  coin.Ethereum,
	"LTC":  coin.Litecoin,
	"USDT": coin.Tether,
	"TRX":  coin.Tron,
	"XRP":  coin.Ripple,
	"SOL":  coin.Solana,
	"DOGE": coin.Dogecoin,
	"ADA":  coin.Cardano,
}

// Coinbase publishes USD-to-crypto rates; the USD price is the reciprocal.
// It carries no 24h change.
type Coinbase struct {
	rest    *RESTClient
	baseURL string
}

func NewCoinbase(rest *RESTClient, baseURL string) *Coinbase {
	return &Coinbase{rest: rest, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Coinbase) Name() string { return "Coinbase" }

func (s *Coinbase) Fetch(ctx context.Context) (PriceMap, error) {
	var raw coinbaseResponse
	if err := s.rest.getJSON(ctx, s.baseURL+"/v2/exchange-rates?currency=USD", &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}

	out := make(PriceMap)
	for currency, id := range coinbaseCurrencies {
		rate, ok := raw.Data.Rates[currency]
		if !ok {
			continue
		}
		if usd, ok := invertRate(rate); ok {
			out[id] = Price{USD: usd}
		}
	}
	return nonEmpty(out)
}

// invertRate turns a USD-to-coin rate into a coin-to-USD price.
func invertRate(s string) (float64, bool) {
	r, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !r.IsPositive() {
		return 0, false
	}
	return decimal.NewFromInt(1).Div(r).InexactFloat64(), true
}
