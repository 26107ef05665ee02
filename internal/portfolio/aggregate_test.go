package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonyler/passivmos-web/internal/entity"
)

func atomWallet(address string) entity.ChainWallet {
	return entity.ChainWallet{
		Chain:           "cosmos",
		Address:         address,
		OriginalAddress: address,
		TokenSymbol:     "ATOM",
	}
}

func liveMarket() map[string]entity.MarketEntry {
	return map[string]entity.MarketEntry{
		"ATOM": {
			Symbol:     "ATOM",
			PriceUSD:   1.0,
			PriceKnown: true,
			APRPercent: 10.0,
			APRKnown:   true,
			Source:     entity.SourceLive,
		},
	}
}

func TestAggregateSingleDelegatedWallet(t *testing.T) {
	balances := []WalletBalance{{
		Wallet:  atomWallet("cosmos1aaa"),
		Balance: entity.Balance{DelegatedBalance: 100, TotalBalance: 100},
	}}

	snapshot := Aggregate(balances, liveMarket(), time.Now())

	assert.Equal(t, 100.0, snapshot.TotalValueUSD)
	assert.Equal(t, 10.0, snapshot.YearlyEarnings)
	assert.InDelta(t, 10.0/12, snapshot.MonthlyEarnings, 1e-9)
	assert.InDelta(t, 10.0/365, snapshot.DailyEarnings, 1e-9)

	require.Len(t, snapshot.Wallets, 1)
	report := snapshot.Wallets[0]
	assert.Equal(t, 100.0, report.TotalValueUSD)
	assert.Equal(t, "live", report.APRSource)
	assert.False(t, report.HasAPRIssue)

	require.Contains(t, snapshot.TokenBreakdown, "ATOM")
	assert.Equal(t, 100.0, snapshot.TokenBreakdown["ATOM"].TotalBalance)
}

func TestAggregateEarningsUseDelegatedBalanceOnly(t *testing.T) {
	balances := []WalletBalance{{
		Wallet:  atomWallet("cosmos1aaa"),
		Balance: entity.Balance{LiquidBalance: 60, DelegatedBalance: 40, TotalBalance: 100},
	}}

	snapshot := Aggregate(balances, liveMarket(), time.Now())

	// Value counts the whole holding, earnings only the staked part.
	assert.Equal(t, 100.0, snapshot.TotalValueUSD)
	assert.Equal(t, 4.0, snapshot.YearlyEarnings)
}

func TestAggregateZeroBalanceWalletListedButNotInBreakdown(t *testing.T) {
	balances := []WalletBalance{
		{
			Wallet:  atomWallet("cosmos1aaa"),
			Balance: entity.Balance{DelegatedBalance: 100, TotalBalance: 100},
		},
		{
			Wallet:  entity.ChainWallet{Chain: "osmosis", Address: "osmo1bbb", OriginalAddress: "cosmos1aaa", TokenSymbol: "OSMO"},
			Balance: entity.Balance{},
		},
	}

	snapshot := Aggregate(balances, liveMarket(), time.Now())

	assert.Len(t, snapshot.Wallets, 2)
	assert.Len(t, snapshot.TokenBreakdown, 1, "zero balances stay out of the breakdown")
	assert.Contains(t, snapshot.TokenBreakdown, "ATOM")
}

func TestAggregateUnknownPriceValuesAtZero(t *testing.T) {
	balances := []WalletBalance{{
		Wallet:  atomWallet("cosmos1aaa"),
		Balance: entity.Balance{DelegatedBalance: 100, TotalBalance: 100},
	}}

	snapshot := Aggregate(balances, map[string]entity.MarketEntry{}, time.Now())

	assert.Zero(t, snapshot.TotalValueUSD)
	assert.Zero(t, snapshot.YearlyEarnings)
	require.Len(t, snapshot.Wallets, 1)
	assert.Equal(t, 100.0, snapshot.Wallets[0].TotalBalance, "the balance itself is still reported")
	assert.True(t, snapshot.Wallets[0].HasAPRIssue)
}

func TestAggregateFallbackAPRCountsTowardEarnings(t *testing.T) {
	market := map[string]entity.MarketEntry{
		"NLS": {
			Symbol:     "NLS",
			PriceUSD:   2.0,
			PriceKnown: true,
			APRPercent: 12.0,
			APRKnown:   true,
			Source:     entity.SourceFallback,
		},
	}
	balances := []WalletBalance{{
		Wallet:  entity.ChainWallet{Chain: "nolus", Address: "nolus1ccc", OriginalAddress: "nolus1ccc", TokenSymbol: "NLS"},
		Balance: entity.Balance{DelegatedBalance: 50, TotalBalance: 50},
	}}

	snapshot := Aggregate(balances, market, time.Now())

	assert.InDelta(t, 50*0.12*2.0, snapshot.YearlyEarnings, 1e-9)
	require.Len(t, snapshot.Wallets, 1)
	assert.Equal(t, "fallback", snapshot.Wallets[0].APRSource)
	assert.True(t, snapshot.Wallets[0].HasAPRIssue, "fallback APRs are flagged")
}

func TestAggregateStaleAPRFlagged(t *testing.T) {
	market := liveMarket()
	entry := market["ATOM"]
	entry.IsStale = true
	market["ATOM"] = entry

	balances := []WalletBalance{{
		Wallet:  atomWallet("cosmos1aaa"),
		Balance: entity.Balance{DelegatedBalance: 100, TotalBalance: 100},
	}}

	snapshot := Aggregate(balances, market, time.Now())
	require.Len(t, snapshot.Wallets, 1)
	assert.True(t, snapshot.Wallets[0].HasAPRIssue)
	assert.Equal(t, 10.0, snapshot.YearlyEarnings, "stale data still prices the portfolio")
}

func TestAggregateDeterministicOrder(t *testing.T) {
	balances := []WalletBalance{
		{Wallet: entity.ChainWallet{Chain: "osmosis", Address: "osmo1x", OriginalAddress: "b", TokenSymbol: "OSMO"}, Balance: entity.Balance{TotalBalance: 1}},
		{Wallet: entity.ChainWallet{Chain: "cosmos", Address: "cosmos1x", OriginalAddress: "b", TokenSymbol: "ATOM"}, Balance: entity.Balance{TotalBalance: 1}},
		{Wallet: entity.ChainWallet{Chain: "cosmos", Address: "cosmos1y", OriginalAddress: "a", TokenSymbol: "ATOM"}, Balance: entity.Balance{TotalBalance: 1}},
	}

	first := Aggregate(balances, liveMarket(), time.Unix(0, 0))

	// Shuffled input produces the identical snapshot.
	shuffled := []WalletBalance{balances[2], balances[0], balances[1]}
	second := Aggregate(shuffled, liveMarket(), time.Unix(0, 0))

	require.Equal(t, first, second)
	require.Len(t, first.Wallets, 3)
	assert.Equal(t, "a", first.Wallets[0].OriginalAddress)
	assert.Equal(t, "b", first.Wallets[1].OriginalAddress)
	assert.Equal(t, "cosmos", first.Wallets[1].Chain)
	assert.Equal(t, "osmosis", first.Wallets[2].Chain)
}

func TestAggregateTotalsMatchWalletSums(t *testing.T) {
	balances := []WalletBalance{
		{Wallet: atomWallet("cosmos1aaa"), Balance: entity.Balance{DelegatedBalance: 100, TotalBalance: 150, LiquidBalance: 50}},
		{Wallet: atomWallet("cosmos1bbb"), Balance: entity.Balance{DelegatedBalance: 25, TotalBalance: 25}},
	}

	snapshot := Aggregate(balances, liveMarket(), time.Now())

	var value, yearly float64
	for _, w := range snapshot.Wallets {
		value += w.TotalValueUSD
		yearly += w.YearlyEarnings
	}
	assert.InDelta(t, value, snapshot.TotalValueUSD, 1e-9)
	assert.InDelta(t, yearly, snapshot.YearlyEarnings, 1e-9)
}

func TestAggregateEmptyInput(t *testing.T) {
	snapshot := Aggregate(nil, liveMarket(), time.Now())

	assert.Zero(t, snapshot.TotalValueUSD)
	assert.Empty(t, snapshot.Wallets)
	assert.Empty(t, snapshot.TokenBreakdown)
}
