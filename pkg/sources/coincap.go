package sources

import (
	"context"
	"fmt"
	"strings"

	"cryptodesk/pkg/coin"
)

var coinCapAssets = map[string]coin.ID{
	"bitcoin":  coin.Bitcoin,
	"ethereum": coin.Ethereum,
	"litecoin": coin.Litecoin,
	"tether":   coin.Tether,
	"tron":     coin.Tron,
	"xrp":      coin.Ripple,
	"solana":   coin.Solana,
	"dogecoin": coin.Dogecoin,
	"cardano":  coin.Cardano,
}

type CoinCap struct {
	rest    *RESTClient
	baseURL string
}

func NewCoinCap(rest *RESTClient, baseURL string) *CoinCap {
	return &CoinCap{rest: rest, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *CoinCap) Name() string { return "CoinCap" }

func (s *CoinCap) Fetch(ctx context.Context) (PriceMap, error) {
	var raw coinCapResponse
	if err := s.rest.getJSON(ctx, s.baseURL+"/v2/assets?limit=100", &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}

	out := make(PriceMap)
	for _, a := range raw.Data {
		id, ok := coinCapAssets[a.ID]
		if !ok {
			continue
		}
		usd, ok := parsePrice(a.PriceUSD)
		if !ok {
			continue
		}
		out[id] = Price{USD: usd, Change24h: parseChange(a.ChangePercent24Hr)}
	}
	return nonEmpty(out)
}
