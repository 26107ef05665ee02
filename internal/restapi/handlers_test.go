package restapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tonyler/passivmos-web/internal/config"
	"github.com/tonyler/passivmos-web/internal/entity"
	"github.com/tonyler/passivmos-web/internal/fetcher"
	"github.com/tonyler/passivmos-web/internal/market"
	"github.com/tonyler/passivmos-web/internal/portfolio"
	"github.com/tonyler/passivmos-web/internal/resolver"
)

const testAddress = "cosmos1qnsxa5chxj87mvm9jxqnyr9pdlp324mp33pxuu"

type fundedAccounts struct{}

func (fundedAccounts) QueryAccount(_ context.Context, chain config.TokenConfig, _ string) (*entity.Balance, error) {
	if chain.ChainName == "cosmos" {
		return &entity.Balance{DelegatedBalance: 100, TotalBalance: 100}, nil
	}
	return &entity.Balance{}, nil
}

type fixedMarket struct{}

func (fixedMarket) FetchPrices(_ context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, s := range symbols {
		out[s] = 1.0
	}
	return out, nil
}

func (fixedMarket) FetchAPR(_ context.Context, _ string) (float64, error) {
	return 10.0, nil
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	cfg := &config.Config{
		Portfolio: config.PortfolioConfig{
			MaxConcurrentFetches:  2,
			FetchTimeoutSeconds:   5,
			RequestTimeoutSeconds: 10,
			MaxRetries:            1,
			RetryDelayMs:          1,
			RateLimit:             1000,
			BurstLimit:            1000,
			EventBufferSize:       64,
		},
		Market: config.MarketConfig{RefreshIntervalMinutes: 5, RequestTimeoutMillis: 1000},
		Tokens: map[string]config.TokenConfig{
			"ATOM": {Name: "Cosmos Hub", Symbol: "ATOM", ChainName: "cosmos", Bech32Prefix: "cosmos", Denom: "uatom", Decimals: 6, Enabled: true, Color: "#2E3148"},
			"OSMO": {Name: "Osmosis", Symbol: "OSMO", ChainName: "osmosis", Bech32Prefix: "osmo", Denom: "uosmo", Decimals: 6, Enabled: true},
		},
	}
	chains := cfg.EnabledTokens()

	marketSvc := market.NewService(chains, fixedMarket{}, cfg.Market, logger)
	marketSvc.RefreshPrices(context.Background())
	marketSvc.RefreshAPRs(context.Background())

	portfolioSvc := portfolio.NewService(
		cfg.Portfolio,
		chains,
		resolver.New(chains, logger),
		fetcher.New(fundedAccounts{}, cfg.Portfolio, logger),
		marketSvc,
		logger,
	)

	router := gin.New()
	RegisterRoutes(router, NewHandler(portfolioSvc, marketSvc, cfg, logger))
	return router
}

func TestHealthHandler(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestConfigHandler(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"symbol":"ATOM"`)
	assert.Contains(t, body, `"symbol":"OSMO"`)
	assert.Contains(t, body, `"color":"#2E3148"`)
}

func TestStatsHandler(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"tracked":2`)
	assert.Contains(t, body, `"symbol":"ATOM"`)
}

func TestCalculateHandler(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/calculate",
		strings.NewReader(`{"addresses":["`+testAddress+`"]}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"total_value_usd":100`)
	assert.Contains(t, body, `"yearly_earnings":10`)
	assert.Contains(t, body, testAddress)
}

func TestCalculateHandlerRejectsEmptyBody(t *testing.T) {
	router := testRouter(t)

	for _, payload := range []string{``, `{}`, `{"addresses":[]}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "payload %q", payload)
	}
}

func TestCalculateStreamRejectsMissingAddresses(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/calculate/stream", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalculateStream(t *testing.T) {
	router := testRouter(t)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/calculate/stream?addresses=" + testAddress)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	stream := string(body)
	assert.Contains(t, stream, "event:found")
	assert.Contains(t, stream, "event:complete")
	assert.Contains(t, stream, `"total_value_usd":100`)

	// complete terminates the stream.
	completeAt := strings.LastIndex(stream, "event:complete")
	require.NotEqual(t, -1, completeAt)
	assert.Equal(t, 1, strings.Count(stream, "event:complete"))
}

func TestSplitAddresses(t *testing.T) {
	assert.Nil(t, splitAddresses(""))
	assert.Nil(t, splitAddresses(" , ,"))
	assert.Equal(t, []string{"a", "b"}, splitAddresses("a, b"))
	assert.Equal(t, []string{"a"}, splitAddresses("a"))
}
