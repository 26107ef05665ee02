package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tonyler/passivmos-web/internal/config"
	"github.com/tonyler/passivmos-web/internal/entity"
	"github.com/tonyler/passivmos-web/internal/fetcher"
	"github.com/tonyler/passivmos-web/internal/market"
	"github.com/tonyler/passivmos-web/internal/resolver"
	"github.com/tonyler/passivmos-web/pkg/metrics"
)

// ErrNoAddresses is returned when a calculation is requested with no
// addresses at all.
var ErrNoAddresses = errors.New("no addresses provided")

// Service runs portfolio calculations: it resolves addresses, fans out
// balance fetches and streams progress events until the final snapshot.
type Service struct {
	cfg      config.PortfolioConfig
	chains   []config.TokenConfig
	resolver *resolver.Resolver
	fetcher  *fetcher.Fetcher
	market   *market.Service
	logger   *zap.Logger
}

// NewService wires the calculation pipeline together.
func NewService(
	cfg config.PortfolioConfig,
	chains []config.TokenConfig,
	addrResolver *resolver.Resolver,
	balanceFetcher *fetcher.Fetcher,
	marketService *market.Service,
	logger *zap.Logger,
) *Service {
	return &Service{
		cfg:      cfg,
		chains:   chains,
		resolver: addrResolver,
		fetcher:  balanceFetcher,
		market:   marketService,
		logger:   logger.Named("PortfolioService"),
	}
}

// Calculate starts a portfolio calculation for the given addresses and
// returns its event stream. The channel is closed after exactly one
// complete event, which is always the last event and carries the final
// snapshot. Cancelling ctx (client disconnect) abandons the calculation.
func (s *Service) Calculate(ctx context.Context, addresses []string) (<-chan entity.ProgressEvent, error) {
	if len(addresses) == 0 {
		return nil, ErrNoAddresses
	}

	events := make(chan entity.ProgressEvent, s.cfg.EventBufferSize)
	go s.run(ctx, addresses, events)
	return events, nil
}

func (s *Service) run(ctx context.Context, addresses []string, events chan<- entity.ProgressEvent) {
	defer close(events)

	started := time.Now()
	metrics.CalculationsTotal.Inc()
	defer func() {
		metrics.CalculationDuration.Observe(time.Since(started).Seconds())
	}()

	// The deadline bounds the fetch work only. Events, including the
	// terminal complete, keep flowing until the client goes away.
	workCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.RequestTimeoutSeconds)*time.Second)
	defer cancel()

	s.emit(ctx, events, entity.ProgressEvent{
		Kind:    entity.EventProgress,
		Message: fmt.Sprintf("🔍 Resolving %d address(es) across %d chains...", len(addresses), len(s.chains)),
	})

	wallets := s.resolveAll(ctx, addresses, events)
	if len(wallets) == 0 {
		// Request-level failure: nothing resolved, nothing to fetch.
		// The stream terminates with an error instead of a complete.
		s.emit(ctx, events, entity.ProgressEvent{
			Kind:    entity.EventError,
			Message: "❌ None of the provided addresses could be resolved",
		})
		return
	}

	balances := s.fetchAll(ctx, workCtx, wallets, events)
	s.complete(ctx, events, balances)
}

// resolveAll expands every input address into its chain variants.
// Unresolvable addresses are reported as warnings and skipped; they
// never fail the calculation.
func (s *Service) resolveAll(ctx context.Context, addresses []string, events chan<- entity.ProgressEvent) []entity.ChainWallet {
	var wallets []entity.ChainWallet
	for _, address := range addresses {
		resolved := s.resolver.Resolve(address)
		if len(resolved) == 0 {
			s.emit(ctx, events, entity.ProgressEvent{
				Kind:    entity.EventWarning,
				Message: fmt.Sprintf("⚠️ Could not resolve address %s, skipping", address),
			})
			continue
		}
		wallets = append(wallets, resolved...)
	}
	return wallets
}

// fetchAll fans balance fetches out over a bounded worker pool. Each
// wallet succeeds or fails on its own; failures become error events and
// are left out of the result set.
func (s *Service) fetchAll(ctx, workCtx context.Context, wallets []entity.ChainWallet, events chan<- entity.ProgressEvent) []WalletBalance {
	results := make(chan WalletBalance, len(wallets))

	g, groupCtx := errgroup.WithContext(workCtx)
	g.SetLimit(s.cfg.MaxConcurrentFetches)

	for _, wallet := range wallets {
		wallet := wallet
		chain, ok := s.chainFor(wallet.Chain)
		if !ok {
			continue
		}
		g.Go(func() error {
			s.emit(ctx, events, entity.ProgressEvent{
				Kind:    entity.EventProgress,
				Message: fmt.Sprintf("Checking %s...", wallet.Chain),
				Chain:   wallet.Chain,
				Token:   wallet.TokenSymbol,
			})

			balance, err := s.fetcher.Fetch(groupCtx, chain, wallet)
			if err != nil {
				s.logger.Warn("Wallet fetch failed",
					zap.String("chain", wallet.Chain),
					zap.String("address", wallet.Address),
					zap.Error(err))
				s.emit(ctx, events, entity.ProgressEvent{
					Kind:    entity.EventError,
					Message: fmt.Sprintf("❌ Failed to check %s: %v", wallet.Chain, err),
					Chain:   wallet.Chain,
					Token:   wallet.TokenSymbol,
				})
				return nil
			}

			if balance.TotalBalance > 0 {
				s.emit(ctx, events, entity.ProgressEvent{
					Kind:    entity.EventFound,
					Message: fmt.Sprintf("✅ Found %.4f %s on %s", balance.TotalBalance, wallet.TokenSymbol, wallet.Chain),
					Chain:   wallet.Chain,
					Token:   wallet.TokenSymbol,
					Balance: balance.TotalBalance,
				})
			} else {
				s.emit(ctx, events, entity.ProgressEvent{
					Kind:    entity.EventWarning,
					Message: fmt.Sprintf("No balance on %s", wallet.Chain),
					Chain:   wallet.Chain,
					Token:   wallet.TokenSymbol,
				})
			}

			results <- WalletBalance{Wallet: wallet, Balance: *balance}
			return nil
		})
	}

	g.Wait() //nolint:errcheck // workers never return errors, failures are per-wallet events
	close(results)

	balances := make([]WalletBalance, 0, len(wallets))
	for wb := range results {
		balances = append(balances, wb)
	}
	return balances
}

// complete prices the fetched balances against one market snapshot and
// emits the terminal complete event.
func (s *Service) complete(ctx context.Context, events chan<- entity.ProgressEvent, balances []WalletBalance) {
	marketData := s.market.Snapshot()

	warned := make(map[string]struct{})
	for _, wb := range balances {
		symbol := wb.Wallet.TokenSymbol
		if _, done := warned[symbol]; done {
			continue
		}
		entry, known := marketData[symbol]
		if !known || !entry.PriceKnown {
			warned[symbol] = struct{}{}
			s.emit(ctx, events, entity.ProgressEvent{
				Kind:    entity.EventWarning,
				Message: fmt.Sprintf("⚠️ No price available for %s, valuing at zero", symbol),
				Token:   symbol,
			})
		}
	}

	snapshot := Aggregate(balances, marketData, time.Now())
	s.emit(ctx, events, entity.ProgressEvent{
		Kind:     entity.EventComplete,
		Message:  "🎉 Calculation complete",
		Snapshot: snapshot,
	})
	s.logger.Info("Calculation complete",
		zap.Int("wallets", len(snapshot.Wallets)),
		zap.Float64("total_value_usd", snapshot.TotalValueUSD))
}

// emit delivers an event unless the request has been abandoned.
func (s *Service) emit(ctx context.Context, events chan<- entity.ProgressEvent, event entity.ProgressEvent) {
	select {
	case events <- event:
		metrics.StreamEventsTotal.WithLabelValues(string(event.Kind)).Inc()
	case <-ctx.Done():
	}
}

func (s *Service) chainFor(chainName string) (config.TokenConfig, bool) {
	for _, tc := range s.chains {
		if tc.ChainName == chainName {
			return tc, true
		}
	}
	return config.TokenConfig{}, false
}
