package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleDocument = `<?xml version="1.0" encoding="UTF-8"?>
<HealthData locale="en_US">
 <ExportDate value="2024-02-01 09:00:00 -0800"/>
 <Record type="HKQuantityTypeIdentifierStepCount" sourceName="Watch" unit="count" startDate="2024-01-15 08:00:00 -0800" endDate="2024-01-15 08:10:00 -0800" value="523"/>
 <Record type="HKCategoryTypeIdentifierSleepAnalysis" sourceName="Watch" startDate="2024-01-15 23:30:00 -0800" endDate="2024-01-16 06:30:00 -0800" value="HKCategoryValueSleepAnalysisAsleepCore"/>
 <Record type="HKQuantityTypeIdentifierHeartRate" sourceName="Watch" unit="count/min" startDate="2024-01-15 09:00:00 -0800" endDate="2024-01-15 09:00:00 -0800" value="61"/>
 <Workout workoutActivityType="HKWorkoutActivityTypeRunning" startDate="2024-01-15 07:00:00 -0800" endDate="2024-01-15 07:30:00 -0800">
  <MetadataEntry key="HKIndoorWorkout" value="0"/>
 </Workout>
</HealthData>`

func TestExtractorYieldsRecordsInDocumentOrder(t *testing.T) {
	extractor := NewExtractor(strings.NewReader(sampleDocument))

	var observations []Observation
	for extractor.Next() {
		observations = append(observations, extractor.Observation())
	}
	require.NoError(t, extractor.Err())
	require.Len(t, observations, 3)

	steps := observations[0]
	require.Equal(t, "HKQuantityTypeIdentifierStepCount", steps.Type)
	require.Equal(t, 523.0, steps.Numeric())
	require.Equal(t, 10*time.Minute, steps.End.Sub(steps.Start))

	sleep := observations[1]
	require.Equal(t, "HKCategoryTypeIdentifierSleepAnalysis", sleep.Type)
	require.Equal(t, "HKCategoryValueSleepAnalysisAsleepCore", sleep.Value)

	// The offset in the document is preserved, not normalized.
	_, offset := sleep.Start.Zone()
	require.Equal(t, -8*3600, offset)
}

func TestExtractorSkipsNonRecordElements(t *testing.T) {
	doc := `<HealthData>
 <ExportDate value="2024-02-01 09:00:00 -0800"/>
 <ActivitySummary dateComponents="2024-01-15"/>
</HealthData>`

	extractor := NewExtractor(strings.NewReader(doc))
	require.False(t, extractor.Next())
	require.NoError(t, extractor.Err())
}

func TestExtractorDefaultsMissingValueToZero(t *testing.T) {
	doc := `<HealthData>
 <Record type="HKQuantityTypeIdentifierStepCount" startDate="2024-01-15 08:00:00 -0800" endDate="2024-01-15 08:10:00 -0800"/>
</HealthData>`

	extractor := NewExtractor(strings.NewReader(doc))
	require.True(t, extractor.Next())
	require.Equal(t, 0.0, extractor.Observation().Numeric())
	require.False(t, extractor.Next())
	require.NoError(t, extractor.Err())
}

func TestExtractorFailsFastOnMalformedTimestamp(t *testing.T) {
	doc := `<HealthData>
 <Record type="HKQuantityTypeIdentifierStepCount" startDate="2024-01-15 08:00:00 -0800" endDate="2024-01-15 08:10:00 -0800" value="100"/>
 <Record type="HKQuantityTypeIdentifierStepCount" startDate="not-a-timestamp" endDate="2024-01-15 09:10:00 -0800" value="100"/>
 <Record type="HKQuantityTypeIdentifierStepCount" startDate="2024-01-15 10:00:00 -0800" endDate="2024-01-15 10:10:00 -0800" value="100"/>
</HealthData>`

	extractor := NewExtractor(strings.NewReader(doc))
	require.True(t, extractor.Next())
	require.False(t, extractor.Next())

	err := extractor.Err()
	require.ErrorIs(t, err, ErrMalformedTimestamp)
	// The offending raw attribute is part of the error for diagnosis.
	require.Contains(t, err.Error(), "not-a-timestamp")

	// The sequence stays terminated.
	require.False(t, extractor.Next())
}
