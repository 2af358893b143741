package coin

// SourceLive tags a snapshot fetched during the current cycle.
const SourceLive = "live"

// PriceQuote is one symbol's USD price with its 24h change in percent.
type PriceQuote struct {
	Symbol string  `json:"symbol"` // e.g. "BTC"
	Price  float64 `json:"price"`  // USD, always positive
	Change float64 `json:"change"` // 0 when the source had no change figure
}

// Snapshot is the normalized result of one aggregation cycle and the body of
// GET /api/crypto/prices. Snapshots are shared read-only once built.
type Snapshot struct {
	Rates     map[string]float64 `json:"rates"`
	Prices    []PriceQuote       `json:"prices"`
	Timestamp int64              `json:"timestamp"` // capture time, ms since epoch
	Source    string             `json:"source"`
	Stale     bool               `json:"stale,omitempty"`
}

// ErrorBody is the 503 payload served when no data has ever been fetched.
type ErrorBody struct {
	Error  string             `json:"error"`
	Rates  map[string]float64 `json:"rates"`
	Prices []PriceQuote       `json:"prices"`
}
