package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"cryptodesk/pkg/coin"
)

// CoinGecko queries /api/v3/simple/price. With a demo key set it is the
// "CoinGecko Demo" variant of the same request.
type CoinGecko struct {
	rest    *RESTClient
	baseURL string
	demoKey string
}

func NewCoinGecko(rest *RESTClient, baseURL, demoKey string) *CoinGecko {
	return &CoinGecko{rest: rest, baseURL: strings.TrimRight(baseURL, "/"), demoKey: demoKey}
}

func (s *CoinGecko) Name() string {
	if s.demoKey != "" {
		return "CoinGecko Demo"
	}
	return "CoinGecko"
}

func (s *CoinGecko) endpoint() string {
	ids := coin.IDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}

	q := url.Values{}
	q.Set("ids", strings.Join(parts, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")
	if s.demoKey != "" {
		q.Set("x_cg_demo_api_key", s.demoKey)
	}
	return s.baseURL + "/api/v3/simple/price?" + q.Encode()
}

func (s *CoinGecko) Fetch(ctx context.Context) (PriceMap, error) {
	var raw coinGeckoResponse
	if err := s.rest.getJSON(ctx, s.endpoint(), &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}

	out := make(PriceMap)
	for _, id := range coin.IDs() {
		q, ok := raw[string(id)]
		if !ok || q.USD == nil || !(*q.USD > 0) {
			continue
		}
		p := Price{USD: *q.USD}
		if q.Change24h != nil {
			p.Change24h = *q.Change24h
		}
		out[id] = p
	}
	return nonEmpty(out)
}
