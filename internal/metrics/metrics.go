// Package metrics exposes the pipeline's Prometheus instrumentation. Since
// fleetsync is a batch job rather than a long-lived server, metrics are
// pushed to a Pushgateway at the end of a pass instead of being scraped.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/foresyt/fleetsync/internal/models"
)

var (
	// Fetch stage
	RecordsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetsync_records_fetched_total",
			Help: "Raw records fetched, by source endpoint",
		},
		[]string{"source"},
	)

	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetsync_provider_errors_total",
			Help: "Provider fetches that failed and contributed zero records",
		},
		[]string{"source"},
	)

	// Transform stages
	RecordsNormalized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetsync_records_normalized_total",
			Help: "Raw records successfully normalized",
		},
	)

	RecordsSkippedNormalize = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetsync_records_skipped_normalize_total",
			Help: "Raw records dropped as unusable during normalization",
		},
	)

	RecordsRemovedDedupe = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetsync_records_removed_dedupe_total",
			Help: "Records collapsed by cross-source deduplication",
		},
	)

	RecordsRemovedStale = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetsync_records_removed_stale_total",
			Help: "Records dropped by the freshness filter",
		},
	)

	// Persist stage
	VehiclesBlocklisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetsync_vehicles_blocklisted_total",
			Help: "Records skipped because the vehicle identity is blocklisted",
		},
	)

	PositionsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetsync_positions_inserted_total",
			Help: "Latest-position rows written",
		},
	)

	PersistErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetsync_persist_errors_total",
			Help: "Records whose identity or position write failed",
		},
	)

	PassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetsync_pass_duration_seconds",
			Help:    "Duration of a full sync pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Record feeds one pass's counters into the Prometheus collectors.
func Record(report *models.PassReport) {
	for source, n := range report.FetchedBySource {
		RecordsFetched.WithLabelValues(source).Add(float64(n))
	}
	for source := range report.ProviderErrors {
		ProviderErrors.WithLabelValues(source).Inc()
	}
	RecordsNormalized.Add(float64(report.Normalized))
	RecordsSkippedNormalize.Add(float64(report.SkippedNormalize))
	RecordsRemovedDedupe.Add(float64(report.RemovedDedupe))
	RecordsRemovedStale.Add(float64(report.RemovedStale))
	VehiclesBlocklisted.Add(float64(report.SkippedBlocklisted))
	PositionsInserted.Add(float64(report.Inserted))
	PersistErrors.Add(float64(report.PersistErrors))
	PassDuration.Observe(report.Finished.Sub(report.Started).Seconds())
}

// Push sends the default registry to a Pushgateway under the given job
// name.
func Push(gatewayURL, job string) error {
	return push.New(gatewayURL, job).
		Gatherer(prometheus.DefaultGatherer).
		Push()
}
