// Package observability registers Prometheus metrics for the ingestion pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	observationsExtracted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "healthstats",
		Subsystem: "ingest",
		Name:      "observations_extracted_total",
		Help:      "Number of observations folded into daily aggregates, labeled by domain.",
	}, []string{"domain"})

	observationsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "healthstats",
		Subsystem: "ingest",
		Name:      "observations_dropped_total",
		Help:      "Number of observations dropped for unrecognized type tags or sleep stages.",
	})

	runsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "healthstats",
		Subsystem: "ingest",
		Name:      "runs_total",
		Help:      "Number of ingestion runs started.",
	})

	runsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "healthstats",
		Subsystem: "ingest",
		Name:      "runs_failed_total",
		Help:      "Number of ingestion runs aborted, labeled by pipeline stage.",
	}, []string{"stage"})

	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "healthstats",
		Subsystem: "ingest",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of full ingestion runs.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	lastIngestGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "healthstats",
		Subsystem: "ingest",
		Name:      "last_run_completed_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful ingestion run.",
	})
)

func init() {
	prometheus.MustRegister(observationsExtracted, observationsDropped, runsTotal, runsFailed, runDuration, lastIngestGauge)
}

// RecordObservation counts one aggregated observation for a domain.
func RecordObservation(domain string) {
	observationsExtracted.WithLabelValues(domain).Inc()
}

// RecordDropped counts one silently dropped observation.
func RecordDropped() {
	observationsDropped.Inc()
}

// RecordRunStarted counts the start of an ingestion run.
func RecordRunStarted() {
	runsTotal.Inc()
}

// RecordRunFailed counts an aborted run by pipeline stage.
func RecordRunFailed(stage string) {
	runsFailed.WithLabelValues(stage).Inc()
}

// RecordRunCompleted observes the run duration and updates the ingest watermark.
func RecordRunCompleted(duration time.Duration, completedAt time.Time) {
	runDuration.Observe(duration.Seconds())
	if !completedAt.IsZero() {
		lastIngestGauge.Set(float64(completedAt.Unix()))
	}
}
