// Package observability exposes prometheus collectors for the routing
// engine. Metrics are explicitly constructed and injected; there are no
// package-level registries.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors recorded by the router and HTTP surface.
type Metrics struct {
	registry *prometheus.Registry

	QuoteLatency   prometheus.Histogram
	QuotesTotal    prometheus.Counter
	NativeWins     prometheus.Counter
	ImprovementBps prometheus.Histogram
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
}

// NewMetrics builds and registers the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		QuoteLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "orren",
			Name:      "quote_latency_ms",
			Help:      "End-to-end quote aggregation latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
		QuotesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orren",
			Name:      "quotes_total",
			Help:      "Total quote requests that produced at least one route.",
		}),
		NativeWins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orren",
			Name:      "native_wins_total",
			Help:      "Quotes whose fee-adjusted net output met or beat the native baseline.",
		}),
		ImprovementBps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "orren",
			Name:      "improvement_bps",
			Help:      "Gross improvement over the native baseline in basis points.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orren",
			Name:      "cache_hits_total",
			Help:      "Quote cache hits segmented by venue.",
		}, []string{"venue"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orren",
			Name:      "cache_misses_total",
			Help:      "Quote cache misses segmented by venue.",
		}, []string{"venue"}),
	}
	m.registry.MustRegister(
		m.QuoteLatency,
		m.QuotesTotal,
		m.NativeWins,
		m.ImprovementBps,
		m.CacheHits,
		m.CacheMisses,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
