package aggregate

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/healthstats/internal/domain"
	"example.com/healthstats/internal/export"
)

var pacific = time.FixedZone("PST", -8*3600)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02 15:04:05", value, pacific)
	require.NoError(t, err)
	return parsed
}

func sleepObs(t *testing.T, stage, start, end string) export.Observation {
	t.Helper()
	return export.Observation{
		Type:  "HKCategoryTypeIdentifierSleepAnalysis",
		Value: "HKCategoryValueSleepAnalysis" + stage,
		Start: at(t, start),
		End:   at(t, end),
	}
}

func quantityObs(t *testing.T, typeTag string, value float64, start, end string) export.Observation {
	t.Helper()
	return export.Observation{
		Type:  typeTag,
		Value: strconv.FormatFloat(value, 'f', -1, 64),
		Start: at(t, start),
		End:   at(t, end),
	}
}

func TestAggregatorFoldsSleepStagesIntoOneNight(t *testing.T) {
	observations := []export.Observation{
		sleepObs(t, "InBed", "2024-01-15 00:00:00", "2024-01-15 08:00:00"),
		sleepObs(t, "AsleepCore", "2024-01-15 00:10:00", "2024-01-15 02:00:00"),
		sleepObs(t, "AsleepDeep", "2024-01-15 02:00:00", "2024-01-15 03:00:00"),
		sleepObs(t, "AsleepREM", "2024-01-15 03:00:00", "2024-01-15 03:30:00"),
		sleepObs(t, "AsleepCore", "2024-01-15 03:30:00", "2024-01-15 04:30:00"),
		sleepObs(t, "Awake", "2024-01-15 04:30:00", "2024-01-15 04:40:00"),
	}

	agg := New()
	for _, obs := range observations {
		require.True(t, agg.Add(obs))
	}
	result := agg.Finalize()

	require.Len(t, result.Sleep, 1)
	record := result.Sleep[domain.Date{Year: 2024, Month: 1, Day: 15}]
	require.Equal(t, 480.0, record.TimeInBedMinutes)
	require.Equal(t, 170.0, record.CoreMinutes)
	require.Equal(t, 60.0, record.DeepMinutes)
	require.Equal(t, 30.0, record.REMMinutes)
	require.Equal(t, 10.0, record.AwakeMinutes)
	// Staged minutes roll into the asleep total.
	require.Equal(t, 260.0, record.TimeAsleepMinutes)
	require.Equal(t, at(t, "2024-01-15 00:00:00"), record.Bedtime)
	require.Equal(t, at(t, "2024-01-15 08:00:00"), record.WakeTime)
}

func TestAggregatorBucketsByStartDate(t *testing.T) {
	// A sleep span crossing midnight belongs wholly to its start date.
	obs := sleepObs(t, "AsleepCore", "2024-01-15 23:30:00", "2024-01-16 06:30:00")

	agg := New()
	require.True(t, agg.Add(obs))
	result := agg.Finalize()

	require.Len(t, result.Sleep, 1)
	record, ok := result.Sleep[domain.Date{Year: 2024, Month: 1, Day: 15}]
	require.True(t, ok)
	require.Equal(t, 420.0, record.CoreMinutes)
}

func TestAggregatorSumsActivity(t *testing.T) {
	observations := []export.Observation{
		quantityObs(t, "HKQuantityTypeIdentifierStepCount", 500, "2024-01-15 08:00:00", "2024-01-15 08:10:00"),
		quantityObs(t, "HKQuantityTypeIdentifierStepCount", 1200, "2024-01-15 12:00:00", "2024-01-15 12:30:00"),
		quantityObs(t, "HKQuantityTypeIdentifierActiveEnergyBurned", 120.5, "2024-01-15 08:00:00", "2024-01-15 09:00:00"),
		quantityObs(t, "HKQuantityTypeIdentifierActiveEnergyBurned", 80.25, "2024-01-15 17:00:00", "2024-01-15 18:00:00"),
	}

	agg := New()
	for _, obs := range observations {
		require.True(t, agg.Add(obs))
	}
	result := agg.Finalize()

	record := result.Activity[domain.Date{Year: 2024, Month: 1, Day: 15}]
	require.Equal(t, 1700, record.Steps)
	require.Equal(t, 200.75, record.MoveCalories)
}

func TestAggregatorCountsStandHoursInsteadOfSumming(t *testing.T) {
	observations := []export.Observation{
		quantityObs(t, "HKQuantityTypeIdentifierAppleStandHour", 1, "2024-01-15 08:00:00", "2024-01-15 09:00:00"),
		quantityObs(t, "HKQuantityTypeIdentifierAppleStandHour", 0, "2024-01-15 09:00:00", "2024-01-15 10:00:00"),
		quantityObs(t, "HKQuantityTypeIdentifierAppleStandHour", 1, "2024-01-15 10:00:00", "2024-01-15 11:00:00"),
	}

	agg := New()
	for _, obs := range observations {
		agg.Add(obs)
	}
	result := agg.Finalize()

	record := result.Activity[domain.Date{Year: 2024, Month: 1, Day: 15}]
	require.Equal(t, 2, record.StandHours)
}

func TestAggregatorReducesVitals(t *testing.T) {
	observations := []export.Observation{
		quantityObs(t, "HKQuantityTypeIdentifierHeartRate", 52, "2024-01-15 02:00:00", "2024-01-15 02:00:00"),
		quantityObs(t, "HKQuantityTypeIdentifierHeartRate", 55, "2024-01-15 03:00:00", "2024-01-15 03:00:00"),
		quantityObs(t, "HKQuantityTypeIdentifierHeartRate", 60, "2024-01-15 09:00:00", "2024-01-15 09:00:00"),
		quantityObs(t, "HKQuantityTypeIdentifierRespiratoryRate", 14.5, "2024-01-15 02:30:00", "2024-01-15 02:30:00"),
		quantityObs(t, "HKQuantityTypeIdentifierRespiratoryRate", 15.5, "2024-01-15 03:30:00", "2024-01-15 03:30:00"),
	}

	agg := New()
	for _, obs := range observations {
		require.True(t, agg.Add(obs))
	}
	result := agg.Finalize()

	record := result.Vitals[domain.Date{Year: 2024, Month: 1, Day: 15}]
	require.NotNil(t, record.RestingHeartRate)
	require.Equal(t, 52.0, *record.RestingHeartRate)
	require.NotNil(t, record.SleepingHeartRate)
	require.InDelta(t, 55.667, *record.SleepingHeartRate, 0.001)
	require.NotNil(t, record.RespiratoryRate)
	require.Equal(t, 15.0, *record.RespiratoryRate)
}

func TestAggregatorDropsUnknownObservations(t *testing.T) {
	agg := New()
	require.False(t, agg.Add(quantityObs(t, "HKQuantityTypeIdentifierBodyMass", 80, "2024-01-15 08:00:00", "2024-01-15 08:00:00")))
	require.False(t, agg.Add(sleepObs(t, "SomethingNew", "2024-01-15 00:00:00", "2024-01-15 01:00:00")))

	result := agg.Finalize()
	require.Empty(t, result.Sleep)
	require.Empty(t, result.Activity)
	require.Empty(t, result.Vitals)
}

func TestAggregatorKeepsNonPositiveDurations(t *testing.T) {
	// End before start yields negative minutes; the value is folded as-is.
	obs := sleepObs(t, "AsleepCore", "2024-01-15 02:00:00", "2024-01-15 01:30:00")

	agg := New()
	require.True(t, agg.Add(obs))
	result := agg.Finalize()

	record := result.Sleep[domain.Date{Year: 2024, Month: 1, Day: 15}]
	require.Equal(t, -30.0, record.CoreMinutes)
	require.Equal(t, -30.0, record.TimeAsleepMinutes)
}

func TestAggregatorIsOrderIndependent(t *testing.T) {
	observations := []export.Observation{
		sleepObs(t, "InBed", "2024-01-15 00:00:00", "2024-01-15 08:00:00"),
		sleepObs(t, "AsleepCore", "2024-01-15 00:10:00", "2024-01-15 02:00:00"),
		sleepObs(t, "AsleepDeep", "2024-01-15 02:00:00", "2024-01-15 03:00:00"),
		quantityObs(t, "HKQuantityTypeIdentifierStepCount", 500, "2024-01-15 08:00:00", "2024-01-15 08:10:00"),
		quantityObs(t, "HKQuantityTypeIdentifierStepCount", 1200, "2024-01-15 12:00:00", "2024-01-15 12:30:00"),
		quantityObs(t, "HKQuantityTypeIdentifierHeartRate", 52, "2024-01-15 02:00:00", "2024-01-15 02:00:00"),
		quantityObs(t, "HKQuantityTypeIdentifierHeartRate", 60, "2024-01-15 09:00:00", "2024-01-15 09:00:00"),
	}

	fold := func(obs []export.Observation) Result {
		agg := New()
		for _, o := range obs {
			agg.Add(o)
		}
		return agg.Finalize()
	}

	want := fold(observations)

	shuffled := make([]export.Observation, len(observations))
	copy(shuffled, observations)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		require.Equal(t, want, fold(shuffled))
	}
}
