package entity

import "time"

// WalletReport is the per-wallet detail record inside a PortfolioSnapshot.
type WalletReport struct {
	Address          string  `json:"address"`
	OriginalAddress  string  `json:"original_address"`
	Chain            string  `json:"chain"`
	TokenSymbol      string  `json:"token_symbol"`
	AvailableBalance float64 `json:"available_balance"`
	DelegatedBalance float64 `json:"delegated_balance"`
	TotalBalance     float64 `json:"total_balance"`
	TokenPrice       float64 `json:"token_price"`
	APR              float64 `json:"apr"`
	APRSource        string  `json:"apr_source"`
	HasAPRIssue      bool    `json:"has_apr_issue"`
	TotalValueUSD    float64 `json:"total_value_usd"`
	DailyEarnings    float64 `json:"daily_earnings"`
	MonthlyEarnings  float64 `json:"monthly_earnings"`
	YearlyEarnings   float64 `json:"yearly_earnings"`
}

// TokenBreakdown aggregates totals per token symbol across all wallets
// in one calculation request.
type TokenBreakdown struct {
	TotalBalance    float64 `json:"total_balance"`
	TotalValueUSD   float64 `json:"total_value_usd"`
	Price           float64 `json:"price"`
	APR             float64 `json:"apr"`
	DailyEarnings   float64 `json:"daily_earnings"`
	MonthlyEarnings float64 `json:"monthly_earnings"`
	YearlyEarnings  float64 `json:"yearly_earnings"`
}

// PortfolioSnapshot is the terminal result of a calculation request.
type PortfolioSnapshot struct {
	TotalValueUSD   float64                   `json:"total_value_usd"`
	DailyEarnings   float64                   `json:"daily_earnings"`
	MonthlyEarnings float64                   `json:"monthly_earnings"`
	YearlyEarnings  float64                   `json:"yearly_earnings"`
	Wallets         []WalletReport            `json:"wallets"`
	TokenBreakdown  map[string]TokenBreakdown `json:"token_breakdown"`
	LastUpdated     time.Time                 `json:"last_updated"`
}
