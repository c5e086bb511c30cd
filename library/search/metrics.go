package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records cache and provider outcomes for one Service.
type Metrics struct {
	cacheLookups    *prometheus.CounterVec
	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
}

// NewMetrics registers the search collectors on reg.
// Registering twice on the same registerer panics, so construct one Metrics per registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_cache_lookups_total",
				Help: "Search cache lookups by result (hit, miss, error)",
			},
			[]string{"result"},
		),
		providerCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_provider_calls_total",
				Help: "Search provider calls by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		providerLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_provider_duration_seconds",
				Help:    "Search provider call duration in seconds, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
	}
}

func (m *Metrics) cacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// providerCall records one provider call; outcome is "ok" or an ErrorKind.
func (m *Metrics) providerCall(provider, outcome string, cost time.Duration) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(provider, outcome).Inc()
	m.providerLatency.WithLabelValues(provider).Observe(cost.Seconds())
}
