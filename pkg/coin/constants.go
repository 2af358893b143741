package coin

import "fmt"

// Symbol is the canonical ticker shown to users (e.g. "BTC").
type Symbol string

// ID is the upstream coin identifier shared by CoinGecko-style APIs (e.g. "bitcoin").
type ID string

const (
	BTC       Symbol = "BTC"
	ETH       Symbol = "ETH"
	LTC       Symbol = "LTC"
	USDT      Symbol = "USDT"
	USDTTRC20 Symbol = "USDT (TRC20)"
	USDTERC20 Symbol = "USDT (ERC-20)"
	TRX       Symbol = "TRX"
	XRP       Symbol = "XRP"
	SOL       Symbol = "SOL"
	DOGE      Symbol = "DOGE"
	ADA       Symbol = "ADA"
)

const (
	Bitcoin  ID = "bitcoin"
	Ethereum ID = "ethereum"
	Litecoin ID = "litecoin"
	Tether   ID = "tether"
	Tron     ID = "tron"
	Ripple   ID = "ripple"
	Solana   ID = "solana"
	Dogecoin ID = "dogecoin"
	Cardano  ID = "cardano"
)

// Coin pairs a supported symbol with the upstream id its price comes from.
type Coin struct {
	Symbol Symbol
	ID     ID
}

// supported is the fixed set the aggregator publishes, in output order.
var supported = []Coin{
	{BTC, Bitcoin},
	{ETH, Ethereum},
	{LTC, Litecoin},
	{USDT, Tether},
	{USDTTRC20, Tether},
	{TRX, Tron},
	{XRP, Ripple},
	{SOL, Solana},
	{DOGE, Dogecoin},
	{ADA, Cardano},
}

// aliases resolve but are never published.
var aliases = map[Symbol]ID{
	USDTERC20: Tether,
}

// Supported returns the published coin table in order.
func Supported() []Coin {
	out := make([]Coin, len(supported))
	copy(out, supported)
	return out
}

// IDs returns the unique upstream ids in table order.
func IDs() []ID {
	seen := make(map[ID]bool, len(supported))
	var ids []ID
	for _, c := range supported {
		if !seen[c.ID] {
			ids = append(ids, c.ID)
			seen[c.ID] = true
		}
	}
	return ids
}

// IsValid reports whether s is a published symbol.
func (s Symbol) IsValid() bool {
	for _, c := range supported {
		if c.Symbol == s {
			return true
		}
	}
	return false
}

// Lookup resolves a published symbol or alias to its upstream id.
func Lookup(s string) (ID, error) {
	sym := Symbol(s)
	for _, c := range supported {
		if c.Symbol == sym {
			return c.ID, nil
		}
	}
	if id, ok := aliases[sym]; ok {
		return id, nil
	}
	return "", fmt.Errorf("unsupported symbol: %s", s)
}
