package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MarketClient defines the interface for fetching token prices and
// staking APRs from the market data API.
type MarketClient interface {
	FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error)
	FetchAPR(ctx context.Context, symbol string) (float64, error)
}

// numiaPrice is one element of the /prices response.
type numiaPrice struct {
	Asset       string  `json:"asset"`
	Denom       string  `json:"denom"`
	PriceInUSDC float64 `json:"price_in_usdc"`
}

// numiaClientImpl talks to the Numia API over fasthttp.
type numiaClientImpl struct {
	client  *fasthttp.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewNumiaClient creates a MarketClient for the Numia API.
func NewNumiaClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) MarketClient {
	return &numiaClientImpl{
		client:  &fasthttp.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		logger:  logger.Named("NumiaClient"),
	}
}

// FetchPrices implements the MarketClient interface. The result maps the
// requested symbols (upper-cased) to USD prices; symbols the API does not
// know are simply absent from the map.
func (c *numiaClientImpl) FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	url := c.baseURL + "/prices?currencies=" + strings.Join(symbols, ",")
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var entries []numiaPrice
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal prices response: %w", err)
	}

	prices := make(map[string]float64, len(entries))
	for _, e := range entries {
		if e.Asset == "" || e.PriceInUSDC <= 0 {
			continue
		}
		prices[strings.ToUpper(e.Asset)] = e.PriceInUSDC
	}
	c.logger.Debug("Fetched prices", zap.Int("requested", len(symbols)), zap.Int("received", len(prices)))
	return prices, nil
}

// FetchAPR implements the MarketClient interface. The APR endpoint has
// served several shapes over time, so the response is parsed leniently:
// a bare number, {"apr": x} or {"staking_apr": x} all work.
func (c *numiaClientImpl) FetchAPR(ctx context.Context, symbol string) (float64, error) {
	url := c.baseURL + "/apr?currency=" + symbol
	body, err := c.get(ctx, url)
	if err != nil {
		return 0, err
	}

	apr, err := parseAPRBody(body)
	if err != nil {
		return 0, fmt.Errorf("APR response for %s: %w", symbol, err)
	}
	return apr, nil
}

func parseAPRBody(body []byte) (float64, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return 0, fmt.Errorf("empty body")
	}

	if value, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return value, nil
	}

	var obj struct {
		APR        *float64 `json:"apr"`
		StakingAPR *float64 `json:"staking_apr"`
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return 0, fmt.Errorf("unrecognized body %q", trimmed)
	}
	switch {
	case obj.APR != nil:
		return *obj.APR, nil
	case obj.StakingAPR != nil:
		return *obj.StakingAPR, nil
	default:
		return 0, fmt.Errorf("no apr field in body %q", trimmed)
	}
}

func (c *numiaClientImpl) get(ctx context.Context, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("request to %s: %w", url, err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
			return nil, fmt.Errorf("request to %s: %w", url, err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("request to %s returned status %d", url, resp.StatusCode())
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
