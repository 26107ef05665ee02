package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tonyler/passivmos-web/internal/client"
	"github.com/tonyler/passivmos-web/internal/config"
	"github.com/tonyler/passivmos-web/internal/entity"
	"github.com/tonyler/passivmos-web/pkg/metrics"
)

// Fetcher wraps the chain account client with rate limiting, retries
// and per-wallet timeouts. One wallet failing never affects another.
type Fetcher struct {
	client       client.AccountClient
	limiter      *rate.Limiter
	maxRetries   uint
	retryDelay   time.Duration
	fetchTimeout time.Duration
	logger       *zap.Logger
}

// New creates a Fetcher from the portfolio pipeline configuration.
func New(accountClient client.AccountClient, cfg config.PortfolioConfig, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:       accountClient,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.BurstLimit),
		maxRetries:   uint(cfg.MaxRetries),
		retryDelay:   time.Duration(cfg.RetryDelayMs) * time.Millisecond,
		fetchTimeout: time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
		logger:       logger.Named("Fetcher"),
	}
}

// Fetch retrieves the balance for one wallet, retrying transient network
// failures with exponential backoff. Decode failures and missing accounts
// are never retried. The whole attempt sequence shares one deadline so a
// flapping endpoint cannot stall the calculation.
func (f *Fetcher) Fetch(ctx context.Context, chain config.TokenConfig, wallet entity.ChainWallet) (*entity.Balance, error) {
	ctx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, entity.NewNetworkError(chain.ChainName, err)
	}

	operation := func() (*entity.Balance, error) {
		balance, err := f.client.QueryAccount(ctx, chain, wallet.Address)
		if err != nil {
			if !entity.IsRetryable(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return balance, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.retryDelay
	policy.MaxInterval = f.retryDelay * 10

	notify := func(err error, next time.Duration) {
		f.logger.Warn("Balance fetch failed, retrying",
			zap.String("chain", chain.ChainName),
			zap.String("address", wallet.Address),
			zap.Duration("next_attempt_in", next),
			zap.Error(err))
	}

	balance, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(f.maxRetries),
		backoff.WithNotify(notify))
	if err != nil {
		metrics.ChainFetchesTotal.WithLabelValues(chain.ChainName, outcomeLabel(err)).Inc()
		return nil, err
	}

	metrics.ChainFetchesTotal.WithLabelValues(chain.ChainName, "success").Inc()
	return balance, nil
}

func outcomeLabel(err error) string {
	var fe *entity.FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	// Context deadlines and cancellations surface as plain errors.
	return "network_error"
}
