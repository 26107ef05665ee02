package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ChainFetchesTotal counts balance fetches per chain and outcome
	// (success, not_found, network_error, decode_error).
	ChainFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passivmos_chain_fetches_total",
			Help: "Total number of chain balance fetches by chain and outcome.",
		},
		[]string{"chain", "outcome"},
	)

	// MarketRefreshTotal counts background market refresh runs per job
	// (prices, apr) and outcome (success, error).
	MarketRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passivmos_market_refresh_total",
			Help: "Total number of market data refresh runs by job and outcome.",
		},
		[]string{"job", "outcome"},
	)

	// CalculationsTotal counts portfolio calculation requests.
	CalculationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "passivmos_calculations_total",
			Help: "Total number of portfolio calculations started.",
		},
	)

	// CalculationDuration observes end-to-end calculation latency.
	CalculationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "passivmos_calculation_duration_seconds",
			Help:    "Duration of portfolio calculations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)

	// StreamEventsTotal counts progress events emitted to clients by kind.
	StreamEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passivmos_stream_events_total",
			Help: "Total number of progress events emitted by kind.",
		},
		[]string{"kind"},
	)
)

// MustRegisterMetrics registers all application collectors with the
// default registry. Call once at startup.
func MustRegisterMetrics() {
	prometheus.MustRegister(
		ChainFetchesTotal,
		MarketRefreshTotal,
		CalculationsTotal,
		CalculationDuration,
		StreamEventsTotal,
	)
}
