package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, name string) *dto.MetricFamily {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

func TestRecordObservationLabelsDomain(t *testing.T) {
	RecordObservation("sleep")
	RecordObservation("sleep")
	RecordObservation("activity")

	family := gather(t, "healthstats_ingest_observations_extracted_total")
	require.NotNil(t, family)

	counts := map[string]float64{}
	for _, metric := range family.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "domain" {
				counts[label.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	require.GreaterOrEqual(t, counts["sleep"], 2.0)
	require.GreaterOrEqual(t, counts["activity"], 1.0)
}

func TestRecordRunLifecycle(t *testing.T) {
	RecordRunStarted()
	RecordRunFailed("extract")

	completed := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	RecordRunCompleted(3*time.Second, completed)

	runs := gather(t, "healthstats_ingest_runs_total")
	require.NotNil(t, runs)
	require.GreaterOrEqual(t, runs.GetMetric()[0].GetCounter().GetValue(), 1.0)

	failed := gather(t, "healthstats_ingest_runs_failed_total")
	require.NotNil(t, failed)

	duration := gather(t, "healthstats_ingest_run_duration_seconds")
	require.NotNil(t, duration)
	require.GreaterOrEqual(t, duration.GetMetric()[0].GetHistogram().GetSampleCount(), uint64(1))

	watermark := gather(t, "healthstats_ingest_last_run_completed_timestamp_seconds")
	require.NotNil(t, watermark)
	require.Equal(t, float64(completed.Unix()), watermark.GetMetric()[0].GetGauge().GetValue())
}

func TestRecordRunCompletedIgnoresZeroTime(t *testing.T) {
	completed := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	RecordRunCompleted(time.Second, completed)
	RecordRunCompleted(time.Second, time.Time{})

	watermark := gather(t, "healthstats_ingest_last_run_completed_timestamp_seconds")
	require.NotNil(t, watermark)
	// A zero completion time leaves the watermark untouched.
	require.Equal(t, float64(completed.Unix()), watermark.GetMetric()[0].GetGauge().GetValue())
}
