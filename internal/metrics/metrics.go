// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "govdash"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	summaryLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "lookups_total",
			Help:      "Vote summary lookups by outcome (hit, computed, unavailable, malformed).",
		},
		[]string{"outcome"},
	)

	rollupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "rollup_duration_seconds",
			Help:      "Time spent fetching votes and computing a summary.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	cacheErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "cache_errors_total",
			Help:      "Summary cache failures by operation.",
		},
		[]string{"op"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	ingestedVotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "votes_total",
			Help:      "Votes read from chain events by result.",
		},
		[]string{"result"},
	)

	refreshRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresher",
			Name:      "proposals_total",
			Help:      "Scheduled summary refreshes by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		summaryLookups,
		rollupDuration,
		cacheErrors,
		httpRequests,
		ingestedVotes,
		refreshRuns,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveLookup counts one summary lookup.
func ObserveLookup(outcome string) {
	summaryLookups.WithLabelValues(outcome).Inc()
}

// ObserveRollup records the duration of one recompute.
func ObserveRollup(d time.Duration) {
	rollupDuration.Observe(d.Seconds())
}

// ObserveCacheError counts a failed cache get or set.
func ObserveCacheError(op string) {
	cacheErrors.WithLabelValues(op).Inc()
}

// ObserveHTTP counts one handled request.
func ObserveHTTP(method, route string, status int) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// ObserveIngest counts one vote read by the collector.
func ObserveIngest(result string) {
	ingestedVotes.WithLabelValues(result).Inc()
}

// ObserveRefresh counts one scheduled refresh.
func ObserveRefresh(success bool) {
	result := "ok"
	if !success {
		result = "error"
	}
	refreshRuns.WithLabelValues(result).Inc()
}
