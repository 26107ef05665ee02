package market

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/tonyler/passivmos-web/internal/client"
	"github.com/tonyler/passivmos-web/internal/config"
	"github.com/tonyler/passivmos-web/internal/entity"
	"github.com/tonyler/passivmos-web/pkg/metrics"
)

// Service keeps a background-refreshed cache of token prices and staking
// APRs. Calculations read from the cache only; a market API outage
// degrades results to stale data instead of failing them.
type Service struct {
	tokens          []config.TokenConfig
	client          client.MarketClient
	store           *cache.Cache
	refreshInterval time.Duration
	requestTimeout  time.Duration
	logger          *zap.Logger

	mu  sync.Mutex // serializes merges into the store
	now func() time.Time
}

// NewService creates the market data service. Tokens flagged to skip APR
// scraping are seeded with their configured fallback APR and are never
// sent to the market API.
func NewService(tokens []config.TokenConfig, marketClient client.MarketClient, cfg config.MarketConfig, logger *zap.Logger) *Service {
	s := &Service{
		tokens:          tokens,
		client:          marketClient,
		store:           cache.New(cache.NoExpiration, cache.NoExpiration),
		refreshInterval: time.Duration(cfg.RefreshIntervalMinutes) * time.Minute,
		requestTimeout:  time.Duration(cfg.RequestTimeoutMillis) * time.Millisecond,
		logger:          logger.Named("MarketService"),
		now:             time.Now,
	}

	for _, tc := range tokens {
		if !tc.SkipAPRScraping {
			continue
		}
		s.store.Set(tc.Symbol, entity.MarketEntry{
			Symbol:      tc.Symbol,
			APRPercent:  tc.FallbackAPR,
			APRKnown:    true,
			Source:      entity.SourceFallback,
			LastUpdated: s.now(),
		}, cache.NoExpiration)
		s.logger.Info("Seeded fallback APR",
			zap.String("symbol", tc.Symbol),
			zap.Float64("apr", tc.FallbackAPR))
	}
	return s
}

// Start performs an initial refresh and launches the periodic refresh
// loops. It returns after the initial refresh; the loops stop when ctx
// is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.RefreshPrices(ctx)
	s.RefreshAPRs(ctx)

	go s.loop(ctx, "prices", s.RefreshPrices)
	go s.loop(ctx, "apr", s.RefreshAPRs)
}

func (s *Service) loop(ctx context.Context, name string, refresh func(context.Context)) {
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping market refresh loop", zap.String("job", name))
			return
		case <-ticker.C:
			refresh(ctx)
		}
	}
}

// RefreshPrices fetches current USD prices for all tracked symbols and
// merges them into the cache. On failure the previous entries are kept.
func (s *Service) RefreshPrices(ctx context.Context) {
	symbols := make([]string, 0, len(s.tokens))
	for _, tc := range s.tokens {
		symbols = append(symbols, tc.Symbol)
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	prices, err := s.client.FetchPrices(ctx, symbols)
	if err != nil {
		metrics.MarketRefreshTotal.WithLabelValues("prices", "error").Inc()
		s.logger.Warn("Price refresh failed, keeping previous data", zap.Error(err))
		return
	}

	updatedAt := s.now()
	for symbol, price := range prices {
		s.merge(symbol, func(e *entity.MarketEntry) {
			e.PriceUSD = price
			e.PriceKnown = true
			e.LastUpdated = updatedAt
		})
	}
	metrics.MarketRefreshTotal.WithLabelValues("prices", "success").Inc()
	s.logger.Info("Refreshed prices", zap.Int("updated", len(prices)), zap.Int("tracked", len(symbols)))
}

// RefreshAPRs fetches the staking APR for every token that does not use
// a fallback APR. Tokens fail independently.
func (s *Service) RefreshAPRs(ctx context.Context) {
	var updated, failed int
	for _, tc := range s.tokens {
		if tc.SkipAPRScraping {
			continue
		}

		reqCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
		apr, err := s.client.FetchAPR(reqCtx, tc.Symbol)
		cancel()
		if err != nil {
			failed++
			s.logger.Warn("APR refresh failed, keeping previous data",
				zap.String("symbol", tc.Symbol), zap.Error(err))
			continue
		}

		updatedAt := s.now()
		s.merge(tc.Symbol, func(e *entity.MarketEntry) {
			e.APRPercent = apr
			e.APRKnown = true
			e.Source = entity.SourceLive
			e.LastUpdated = updatedAt
		})
		updated++
	}

	outcome := "success"
	if failed > 0 && updated == 0 {
		outcome = "error"
	}
	metrics.MarketRefreshTotal.WithLabelValues("apr", outcome).Inc()
	s.logger.Info("Refreshed APRs", zap.Int("updated", updated), zap.Int("failed", failed))
}

// merge applies fn to the cached entry for symbol, creating it first if
// needed.
func (s *Service) merge(symbol string, fn func(*entity.MarketEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := entity.MarketEntry{Symbol: symbol, Source: entity.SourceLive}
	if cached, found := s.store.Get(symbol); found {
		entry = cached.(entity.MarketEntry)
	}
	fn(&entry)
	s.store.Set(symbol, entry, cache.NoExpiration)
}

// Get returns the cached market entry for a symbol with its staleness
// evaluated against the refresh interval. Fallback entries never go
// stale since nothing refreshes them.
func (s *Service) Get(symbol string) (entity.MarketEntry, bool) {
	cached, found := s.store.Get(symbol)
	if !found {
		return entity.MarketEntry{}, false
	}
	entry := cached.(entity.MarketEntry)
	if entry.Source == entity.SourceLive {
		entry.IsStale = s.now().Sub(entry.LastUpdated) > 2*s.refreshInterval
	}
	return entry, true
}

// Snapshot returns a copy of every cached entry keyed by symbol, with
// staleness evaluated at call time. A calculation reads one snapshot so
// all its wallets price against the same data.
func (s *Service) Snapshot() map[string]entity.MarketEntry {
	items := s.store.Items()
	snapshot := make(map[string]entity.MarketEntry, len(items))
	for symbol := range items {
		if entry, ok := s.Get(symbol); ok {
			snapshot[symbol] = entry
		}
	}
	return snapshot
}

// Stats returns all cached entries sorted by symbol, for the stats API.
func (s *Service) Stats() []entity.MarketEntry {
	snapshot := s.Snapshot()
	entries := make([]entity.MarketEntry, 0, len(snapshot))
	for _, entry := range snapshot {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Symbol < entries[j].Symbol })
	return entries
}
