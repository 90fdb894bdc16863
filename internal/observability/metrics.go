package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iskrib_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "iskrib_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// FanoutFetchLatency records the latency of one concurrent sub-fetch.
	FanoutFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "iskrib_fanout_fetch_seconds",
		Help:    "Latency of independent sub-fetches joined within one request",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "source", "outcome"})

	// MediaBucketUnavailable counts bucket listings excluded from a media page.
	MediaBucketUnavailable = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iskrib_media_bucket_unavailable_total",
		Help: "Total number of bucket listings that failed and were skipped",
	}, []string{"bucket"})

	// MediaURLDropped counts media items dropped because no URL could be resolved.
	MediaURLDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iskrib_media_url_dropped_total",
		Help: "Total number of media items dropped for lack of a retrievable URL",
	})

	// EmbeddingCacheLookups counts embedding cache hits and misses.
	EmbeddingCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iskrib_embedding_cache_lookups_total",
		Help: "Embedding cache lookups by result",
	}, []string{"result"})

	// SearchFallbacks counts searches served by keyword matching instead of vectors.
	SearchFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iskrib_search_fallback_total",
		Help: "Searches that fell back to substring matching",
	}, []string{"reason"})
)

// TrackFanout returns a function that records the latency of one sub-fetch
// when called with its result error.
func TrackFanout(component, source string) func(error) {
	start := time.Now()
	return func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		FanoutFetchLatency.WithLabelValues(component, source, outcome).Observe(time.Since(start).Seconds())
	}
}

// DatabaseMetrics records query latency for a repository.
type DatabaseMetrics struct {
	table string
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance for table.
func NewDatabaseMetrics(table string) *DatabaseMetrics {
	return &DatabaseMetrics{table: table}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, m.table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, start)
	}
}
