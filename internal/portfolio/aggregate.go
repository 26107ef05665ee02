package portfolio

import (
	"sort"
	"time"

	"github.com/tonyler/passivmos-web/internal/entity"
)

const daysPerYear = 365

// WalletBalance pairs a resolved wallet with its fetched balance.
type WalletBalance struct {
	Wallet  entity.ChainWallet
	Balance entity.Balance
}

// Aggregate folds fetched balances and one market snapshot into a final
// portfolio. It is deterministic: the same inputs always produce the
// same snapshot, with wallets ordered by original address then chain.
//
// Earnings project staking rewards, so they are computed on the
// delegated balance only: yearly = delegated * (apr/100) * price.
// Unknown prices value the wallet at zero rather than failing.
func Aggregate(balances []WalletBalance, market map[string]entity.MarketEntry, now time.Time) *entity.PortfolioSnapshot {
	sorted := make([]WalletBalance, len(balances))
	copy(sorted, balances)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Wallet.OriginalAddress != sorted[j].Wallet.OriginalAddress {
			return sorted[i].Wallet.OriginalAddress < sorted[j].Wallet.OriginalAddress
		}
		return sorted[i].Wallet.Chain < sorted[j].Wallet.Chain
	})

	snapshot := &entity.PortfolioSnapshot{
		Wallets:        make([]entity.WalletReport, 0, len(sorted)),
		TokenBreakdown: make(map[string]entity.TokenBreakdown),
		LastUpdated:    now,
	}

	for _, wb := range sorted {
		report := buildReport(wb, market)
		snapshot.Wallets = append(snapshot.Wallets, report)

		snapshot.TotalValueUSD += report.TotalValueUSD
		snapshot.DailyEarnings += report.DailyEarnings
		snapshot.MonthlyEarnings += report.MonthlyEarnings
		snapshot.YearlyEarnings += report.YearlyEarnings

		if report.TotalBalance <= 0 {
			continue
		}
		breakdown := snapshot.TokenBreakdown[report.TokenSymbol]
		breakdown.TotalBalance += report.TotalBalance
		breakdown.TotalValueUSD += report.TotalValueUSD
		breakdown.Price = report.TokenPrice
		breakdown.APR = report.APR
		breakdown.DailyEarnings += report.DailyEarnings
		breakdown.MonthlyEarnings += report.MonthlyEarnings
		breakdown.YearlyEarnings += report.YearlyEarnings
		snapshot.TokenBreakdown[report.TokenSymbol] = breakdown
	}

	return snapshot
}

func buildReport(wb WalletBalance, market map[string]entity.MarketEntry) entity.WalletReport {
	report := entity.WalletReport{
		Address:          wb.Wallet.Address,
		OriginalAddress:  wb.Wallet.OriginalAddress,
		Chain:            wb.Wallet.Chain,
		TokenSymbol:      wb.Wallet.TokenSymbol,
		AvailableBalance: wb.Balance.LiquidBalance,
		DelegatedBalance: wb.Balance.DelegatedBalance,
		TotalBalance:     wb.Balance.TotalBalance,
		HasAPRIssue:      true,
	}

	entry, known := market[wb.Wallet.TokenSymbol]
	if !known {
		return report
	}

	if entry.PriceKnown {
		report.TokenPrice = entry.PriceUSD
	}
	if entry.APRKnown {
		report.APR = entry.APRPercent
		report.APRSource = string(entry.Source)
		report.HasAPRIssue = entry.Source != entity.SourceLive || entry.IsStale
	}

	report.TotalValueUSD = report.TotalBalance * report.TokenPrice
	report.YearlyEarnings = report.DelegatedBalance * (report.APR / 100) * report.TokenPrice
	report.MonthlyEarnings = report.YearlyEarnings / 12
	report.DailyEarnings = report.YearlyEarnings / daysPerYear
	return report
}
