// Package telemetry registers the proxy's self-instrumentation metrics
// (SPEC_FULL.md §4.10) the same way the teacher's internal/detector/
// metrics.go does: package-level promauto vars plus small Record* helpers
// called from the components that own the event.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DFTRebuildsTotal counts full corridor recomputations performed by
	// the StatsCacheOrchestrator.
	DFTRebuildsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "corridor_proxy_dft_rebuilds_total",
			Help: "Total number of DFT corridor recomputations",
		},
	)

	// CacheHitsTotal counts cache lookups by outcome: hit, miss, or
	// placeholder (sticky sparse-history entry reused unchanged).
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corridor_proxy_cache_hits_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"result"},
	)

	// RequestDuration measures HTTP handler latency by route.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corridor_proxy_request_duration_seconds",
			Help:    "Request handling latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// GroupsSkippedTotal counts label groups dropped by the
	// timeout.max_metrics truncation path.
	GroupsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "corridor_proxy_groups_skipped_total",
			Help: "Total number of series groups skipped due to timeout.max_metrics",
		},
	)
)

// CacheResult names the outcome label values for RecordCacheResult.
type CacheResult string

const (
	CacheHit         CacheResult = "hit"
	CacheMiss        CacheResult = "miss"
	CachePlaceholder CacheResult = "placeholder"
)

// RecordCacheResult increments the cache-hit counter for one lookup.
func RecordCacheResult(result CacheResult) {
	CacheHitsTotal.WithLabelValues(string(result)).Inc()
}

// RecordDFTRebuild increments the full-recompute counter.
func RecordDFTRebuild() {
	DFTRebuildsTotal.Inc()
}

// RecordGroupsSkipped adds n to the truncation counter.
func RecordGroupsSkipped(n int) {
	if n <= 0 {
		return
	}
	GroupsSkippedTotal.Add(float64(n))
}

// ObserveRequestDuration records how long route took to handle a request,
// starting from start.
func ObserveRequestDuration(route string, start time.Time) {
	RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}
