package entity

import "time"

// MarketSource indicates where the APR of a MarketEntry came from.
type MarketSource string

const (
	// SourceLive means the value was fetched from the live market API.
	SourceLive MarketSource = "live"
	// SourceFallback means the value is the statically configured fallback.
	SourceFallback MarketSource = "fallback"
)

// MarketEntry is the latest known price and APR for one token symbol.
// Entries live in process-wide state and are replaced wholesale by the
// background refresh jobs; readers never observe a partial update.
type MarketEntry struct {
	Symbol      string       `json:"symbol"`
	PriceUSD    float64      `json:"price_usd"`
	PriceKnown  bool         `json:"price_known"`
	APRPercent  float64      `json:"apr_percent"`
	APRKnown    bool         `json:"apr_known"`
	Source      MarketSource `json:"source"`
	LastUpdated time.Time    `json:"last_updated"`
	IsStale     bool         `json:"is_stale"`
}
