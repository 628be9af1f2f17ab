package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relay loop counters, partitioned by source chain name.

var (
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "loop",
		Name:      "cycles_total",
		Help:      "Total poll cycles completed",
	}, []string{"chain"})

	CycleFaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "loop",
		Name:      "faults_total",
		Help:      "Total poll cycles aborted by an unexpected error",
	}, []string{"chain"})

	CycleLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "relayer",
		Subsystem: "loop",
		Name:      "cycle_duration_seconds",
		Help:      "Poll cycle duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"chain"})

	CursorBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relayer",
		Subsystem: "loop",
		Name:      "cursor_block",
		Help:      "Last source block fully scanned",
	}, []string{"chain"})

	ChainHead = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relayer",
		Subsystem: "loop",
		Name:      "chain_head_block",
		Help:      "Latest source block observed",
	}, []string{"chain"})

	// Events
	EventsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "events",
		Name:      "fetched_total",
		Help:      "Total lock events fetched from the source chain",
	}, []string{"chain"})

	EventsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "events",
		Name:      "relayed_total",
		Help:      "Total lock events turned into prepared mints",
	}, []string{"chain"})

	EventsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "events",
		Name:      "failed_total",
		Help:      "Total lock event processing failures",
	}, []string{"chain"})

	DuplicatesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "events",
		Name:      "duplicates_skipped_total",
		Help:      "Total lock events skipped because their nonce was already relayed",
	}, []string{"chain"})

	RetriesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "events",
		Name:      "retries_dropped_total",
		Help:      "Total failed lock events abandoned after the last retry attempt",
	}, []string{"chain"})

	// Gas
	GasQuoteFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "gas",
		Name:      "fallbacks_total",
		Help:      "Total prepared mints that used the gas-limit-only fallback",
	}, []string{"chain"})
)
