package restapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tonyler/passivmos-web/internal/config"
	"github.com/tonyler/passivmos-web/internal/entity"
	"github.com/tonyler/passivmos-web/internal/market"
	"github.com/tonyler/passivmos-web/internal/portfolio"
)

// Handler serves the portfolio API endpoints.
type Handler struct {
	portfolio *portfolio.Service
	market    *market.Service
	cfg       *config.Config
	started   time.Time
	logger    *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(portfolioSvc *portfolio.Service, marketSvc *market.Service, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		portfolio: portfolioSvc,
		market:    marketSvc,
		cfg:       cfg,
		started:   time.Now(),
		logger:    logger.Named("API"),
	}
}

// calculateRequest is the body of POST /api/calculate.
type calculateRequest struct {
	Addresses []string `json:"addresses" binding:"required"`
}

// calculateResponse is the body of the non-streaming calculation response.
type calculateResponse struct {
	Result   *entity.PortfolioSnapshot `json:"result"`
	Warnings []string                  `json:"warnings,omitempty"`
	Errors   []string                  `json:"errors,omitempty"`
}

// CalculateStreamHandler streams a calculation over Server-Sent Events.
// Addresses come from the comma-separated "addresses" query parameter.
// Each event's SSE name is its kind; the complete event carries the
// final snapshot and closes the stream.
func (h *Handler) CalculateStreamHandler(c *gin.Context) {
	addresses := splitAddresses(c.Query("addresses"))

	events, err := h.portfolio.Calculate(c.Request.Context(), addresses)
	if err != nil {
		if errors.Is(err, portfolio.ErrNoAddresses) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no addresses provided"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		if event.Kind == entity.EventComplete {
			c.SSEvent(string(event.Kind), event.Snapshot)
		} else {
			c.SSEvent(string(event.Kind), event)
		}
		return true
	})
}

// CalculateHandler runs a calculation to completion and returns the
// final snapshot as one JSON response, with warnings and errors that
// occurred along the way.
func (h *Handler) CalculateHandler(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	events, err := h.portfolio.Calculate(c.Request.Context(), req.Addresses)
	if err != nil {
		if errors.Is(err, portfolio.ErrNoAddresses) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no addresses provided"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var resp calculateResponse
	for event := range events {
		switch event.Kind {
		case entity.EventWarning:
			resp.Warnings = append(resp.Warnings, event.Message)
		case entity.EventError:
			resp.Errors = append(resp.Errors, event.Message)
		case entity.EventComplete:
			resp.Result = event.Snapshot
		}
	}

	if resp.Result == nil {
		// The stream terminated without a snapshot: nothing resolved.
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "calculation did not complete",
			"errors":   resp.Errors,
			"warnings": resp.Warnings,
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// StatsHandler returns the current market data cache contents.
func (h *Handler) StatsHandler(c *gin.Context) {
	entries := h.market.Stats()
	c.JSON(http.StatusOK, gin.H{
		"tokens":  entries,
		"tracked": len(entries),
	})
}

// HealthHandler reports liveness and uptime.
func (h *Handler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}

// tokenInfo is the display metadata exposed per enabled token.
type tokenInfo struct {
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	ChainName string `json:"chain_name"`
	Color     string `json:"color,omitempty"`
	Logo      string `json:"logo,omitempty"`
}

// ConfigHandler returns the enabled tokens for frontend display.
func (h *Handler) ConfigHandler(c *gin.Context) {
	enabled := h.cfg.EnabledTokens()
	tokens := make([]tokenInfo, 0, len(enabled))
	for _, tc := range enabled {
		tokens = append(tokens, tokenInfo{
			Name:      tc.Name,
			Symbol:    tc.Symbol,
			ChainName: tc.ChainName,
			Color:     tc.Color,
			Logo:      tc.Logo,
		})
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

func splitAddresses(raw string) []string {
	var addresses []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			addresses = append(addresses, trimmed)
		}
	}
	return addresses
}
