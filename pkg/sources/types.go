package sources

// coinGeckoResponse is keyed by coin id, e.g. {"bitcoin": {"usd": 67000, "usd_24h_change": 2.5}}.
type coinGeckoResponse map[string]struct {
	USD       *float64 `json:"usd"`
	Change24h *float64 `json:"usd_24h_change"`
}

// binanceTicker is one element of /api/v3/ticker/24hr.
type binanceTicker struct {
	Symbol             string `json:"symbol"`             // e.g. "BTCUSDT"
	LastPrice          string `json:"lastPrice"`          // decimal string
	PriceChangePercent string `json:"priceChangePercent"` // decimal string
}

// coinCapResponse is the /v2/assets envelope.
type coinCapResponse struct {
	Data []struct {
		ID                string `json:"id"`                // e.g. "bitcoin", "xrp"
		PriceUSD          string `json:"priceUsd"`          // decimal string
		ChangePercent24Hr string `json:"changePercent24Hr"` // decimal string, may be empty
	} `json:"data"`
}

// coinbaseResponse carries USD-to-currency rates: rates["BTC"] is how much BTC one USD buys.
type coinbaseResponse struct {
	Data struct {
		Currency string            `json:"currency"`
		Rates    map[string]string `json:"rates"`
	} `json:"data"`
}
