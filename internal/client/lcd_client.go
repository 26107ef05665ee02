package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/tonyler/passivmos-web/internal/config"
	"github.com/tonyler/passivmos-web/internal/entity"
	"github.com/tonyler/passivmos-web/internal/pkg/numutil"
)

const (
	bankBalancesPath = "/cosmos/bank/v1beta1/balances/"
	delegationsPath  = "/cosmos/staking/v1beta1/delegations/"
)

// AccountClient defines the interface for querying a chain's account
// endpoints for liquid and delegated balances.
type AccountClient interface {
	QueryAccount(ctx context.Context, chain config.TokenConfig, address string) (*entity.Balance, error)
}

// bankBalancesResponse mirrors /cosmos/bank/v1beta1/balances/{address}.
type bankBalancesResponse struct {
	Balances []struct {
		Denom  string `json:"denom"`
		Amount string `json:"amount"`
	} `json:"balances"`
}

// delegationsResponse mirrors /cosmos/staking/v1beta1/delegations/{address}.
type delegationsResponse struct {
	DelegationResponses []struct {
		Delegation struct {
			ValidatorAddress string `json:"validator_address"`
		} `json:"delegation"`
		Balance struct {
			Denom  string `json:"denom"`
			Amount string `json:"amount"`
		} `json:"balance"`
	} `json:"delegation_responses"`
}

// lcdClientImpl queries Cosmos SDK LCD (REST) endpoints over fasthttp.
type lcdClientImpl struct {
	client  *fasthttp.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewLCDClient creates an AccountClient over the chains' REST endpoints.
func NewLCDClient(timeout time.Duration, logger *zap.Logger) AccountClient {
	return &lcdClientImpl{
		client:  &fasthttp.Client{},
		timeout: timeout,
		logger:  logger.Named("LCDClient"),
	}
}

// QueryAccount implements the AccountClient interface. It walks the chain's
// configured endpoints in order, failing over on network errors. A 404 from
// the bank endpoint means the account does not exist on chain yet and is
// returned as a valid zero Balance.
func (c *lcdClientImpl) QueryAccount(ctx context.Context, chain config.TokenConfig, address string) (*entity.Balance, error) {
	if len(chain.RestEndpoints) == 0 {
		return nil, entity.NewNetworkError(chain.ChainName, fmt.Errorf("no REST endpoints configured"))
	}

	var lastErr error
	for _, endpoint := range chain.RestEndpoints {
		balance, err := c.queryEndpoint(ctx, chain, endpoint, address)
		if err == nil {
			return balance, nil
		}
		if !entity.IsRetryable(err) {
			// Decode errors are not endpoint-specific flakiness; do not
			// hammer the remaining endpoints with the same request.
			return nil, err
		}
		c.logger.Warn("Endpoint failed, trying next",
			zap.String("chain", chain.ChainName),
			zap.String("endpoint", endpoint),
			zap.Error(err))
		lastErr = err
	}
	return nil, lastErr
}

func (c *lcdClientImpl) queryEndpoint(ctx context.Context, chain config.TokenConfig, endpoint, address string) (*entity.Balance, error) {
	base := strings.TrimRight(endpoint, "/")

	liquid, notFound, err := c.fetchLiquidBalance(ctx, chain, base, address)
	if err != nil {
		return nil, err
	}
	if notFound {
		return &entity.Balance{}, nil
	}

	delegations, err := c.fetchDelegations(ctx, chain, base, address)
	if err != nil {
		return nil, err
	}

	var delegated float64
	for _, d := range delegations {
		delegated += d.Amount
	}

	return &entity.Balance{
		LiquidBalance:    liquid,
		DelegatedBalance: delegated,
		TotalBalance:     liquid + delegated,
		Delegations:      delegations,
	}, nil
}

func (c *lcdClientImpl) fetchLiquidBalance(ctx context.Context, chain config.TokenConfig, base, address string) (float64, bool, error) {
	body, status, err := c.get(ctx, base+bankBalancesPath+address)
	if err != nil {
		return 0, false, entity.NewNetworkError(chain.ChainName, err)
	}
	if status == fasthttp.StatusNotFound {
		return 0, true, nil
	}
	if status != fasthttp.StatusOK {
		return 0, false, entity.NewNetworkError(chain.ChainName, fmt.Errorf("balances endpoint returned status %d", status))
	}

	var resp bankBalancesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, false, entity.NewDecodeError(chain.ChainName, fmt.Errorf("unmarshal balances: %w", err))
	}

	for _, bal := range resp.Balances {
		if bal.Denom != chain.Denom {
			continue
		}
		amount, err := numutil.ToDisplay(bal.Amount, chain.Decimals)
		if err != nil {
			return 0, false, entity.NewDecodeError(chain.ChainName, fmt.Errorf("balance amount %q: %w", bal.Amount, err))
		}
		return amount, false, nil
	}
	// No native denom entry means a zero liquid balance, not an error.
	return 0, false, nil
}

func (c *lcdClientImpl) fetchDelegations(ctx context.Context, chain config.TokenConfig, base, address string) ([]entity.Delegation, error) {
	body, status, err := c.get(ctx, base+delegationsPath+address)
	if err != nil {
		return nil, entity.NewNetworkError(chain.ChainName, err)
	}
	if status == fasthttp.StatusNotFound {
		return nil, nil
	}
	if status != fasthttp.StatusOK {
		return nil, entity.NewNetworkError(chain.ChainName, fmt.Errorf("delegations endpoint returned status %d", status))
	}

	var resp delegationsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, entity.NewDecodeError(chain.ChainName, fmt.Errorf("unmarshal delegations: %w", err))
	}

	delegations := make([]entity.Delegation, 0, len(resp.DelegationResponses))
	for _, dr := range resp.DelegationResponses {
		amount, err := numutil.ToDisplay(dr.Balance.Amount, chain.Decimals)
		if err != nil {
			return nil, entity.NewDecodeError(chain.ChainName, fmt.Errorf("delegation amount %q: %w", dr.Balance.Amount, err))
		}
		if amount == 0 {
			continue
		}
		delegations = append(delegations, entity.Delegation{
			ValidatorAddress: dr.Delegation.ValidatorAddress,
			Amount:           amount,
		})
	}
	return delegations, nil
}

func (c *lcdClientImpl) get(ctx context.Context, url string) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, 0, fmt.Errorf("request to %s: %w", url, err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
			return nil, 0, fmt.Errorf("request to %s: %w", url, err)
		}
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, resp.StatusCode(), nil
}
