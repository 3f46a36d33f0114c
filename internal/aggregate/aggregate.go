// Package aggregate folds a classified observation stream into per-day
// accumulators for the sleep, activity, and vitals domains.
package aggregate

import (
	"example.com/healthstats/internal/domain"
	"example.com/healthstats/internal/export"
)

// Result holds the finalized daily aggregates of one ingestion run, keyed by
// calendar date. Ownership transfers to the merge layer on Finalize; the
// aggregator never mutates a Result after handing it off.
type Result struct {
	Sleep    map[domain.Date]domain.SleepRecord
	Activity map[domain.Date]domain.ActivityRecord
	Vitals   map[domain.Date]domain.VitalsRecord
}

// Aggregator consumes observations in document order and maintains one open
// accumulator per date per domain. It is single-writer state; callers must not
// share an Aggregator across goroutines.
type Aggregator struct {
	sleep    map[domain.Date]*domain.SleepRecord
	activity map[domain.Date]*domain.ActivityRecord
	vitals   map[domain.Date]*vitalsSamples
}

// vitalsSamples buffers raw per-day sample lists; reduction to min/mean
// happens once at Finalize, after the full pass.
type vitalsSamples struct {
	heartRates       []float64
	respiratoryRates []float64
}

// New constructs an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		sleep:    make(map[domain.Date]*domain.SleepRecord),
		activity: make(map[domain.Date]*domain.ActivityRecord),
		vitals:   make(map[domain.Date]*vitalsSamples),
	}
}

// Add classifies obs and folds it into the accumulator for the calendar date
// of its start instant. Observations of unrecognized kinds are dropped
// silently; Add reports whether the observation contributed.
func (a *Aggregator) Add(obs export.Observation) bool {
	date := domain.DateOf(obs.Start)

	switch export.ClassifyKind(obs.Type) {
	case export.KindSleepAnalysis:
		return a.addSleep(date, obs)
	case export.KindStepCount:
		a.openActivity(date).Steps += int(obs.Numeric())
	case export.KindActiveEnergy:
		a.openActivity(date).MoveCalories += obs.Numeric()
	case export.KindStandHour:
		// Stand hours count qualifying observations, they do not sum values.
		if obs.Numeric() > 0 {
			a.openActivity(date).StandHours++
		}
	case export.KindHeartRate:
		samples := a.openVitals(date)
		samples.heartRates = append(samples.heartRates, obs.Numeric())
	case export.KindRespiratoryRate:
		samples := a.openVitals(date)
		samples.respiratoryRates = append(samples.respiratoryRates, obs.Numeric())
	default:
		return false
	}
	return true
}

func (a *Aggregator) addSleep(date domain.Date, obs export.Observation) bool {
	stage := export.ClassifyStage(obs.Value)
	if stage == export.StageUnknown {
		return false
	}

	record := a.openSleep(date)

	// Bedtime and wake time span all sleep stages, including InBed and Awake.
	if record.Bedtime.IsZero() || obs.Start.Before(record.Bedtime) {
		record.Bedtime = obs.Start
	}
	if record.WakeTime.IsZero() || obs.End.After(record.WakeTime) {
		record.WakeTime = obs.End
	}

	// Durations are taken as-is; a non-positive span contributes zero or
	// negative minutes rather than being clamped.
	duration := obs.End.Sub(obs.Start).Minutes()

	switch stage {
	case export.StageInBed:
		record.TimeInBedMinutes += duration
	case export.StageAsleep:
		record.TimeAsleepMinutes += duration
	case export.StageAwake:
		record.AwakeMinutes += duration
	// Staged minutes also roll into TimeAsleepMinutes. When an export carries
	// both generic and staged observations for overlapping intervals this
	// double-counts; the behavior is kept as observed pending product
	// confirmation.
	case export.StageREM:
		record.REMMinutes += duration
		record.TimeAsleepMinutes += duration
	case export.StageCore:
		record.CoreMinutes += duration
		record.TimeAsleepMinutes += duration
	case export.StageDeep:
		record.DeepMinutes += duration
		record.TimeAsleepMinutes += duration
	}
	return true
}

func (a *Aggregator) openSleep(date domain.Date) *domain.SleepRecord {
	if record, ok := a.sleep[date]; ok {
		return record
	}
	record := &domain.SleepRecord{Date: date}
	a.sleep[date] = record
	return record
}

func (a *Aggregator) openActivity(date domain.Date) *domain.ActivityRecord {
	if record, ok := a.activity[date]; ok {
		return record
	}
	record := &domain.ActivityRecord{Date: date}
	a.activity[date] = record
	return record
}

func (a *Aggregator) openVitals(date domain.Date) *vitalsSamples {
	if samples, ok := a.vitals[date]; ok {
		return samples
	}
	samples := &vitalsSamples{}
	a.vitals[date] = samples
	return samples
}

// Finalize reduces all open accumulators into their daily records. It must be
// called only after the full document has been scanned; later observations may
// still belong to an already-seen date.
func (a *Aggregator) Finalize() Result {
	result := Result{
		Sleep:    make(map[domain.Date]domain.SleepRecord, len(a.sleep)),
		Activity: make(map[domain.Date]domain.ActivityRecord, len(a.activity)),
		Vitals:   make(map[domain.Date]domain.VitalsRecord, len(a.vitals)),
	}

	for date, record := range a.sleep {
		result.Sleep[date] = *record
	}
	for date, record := range a.activity {
		result.Activity[date] = *record
	}
	for date, samples := range a.vitals {
		record := domain.VitalsRecord{Date: date}
		if len(samples.heartRates) > 0 {
			resting := minOf(samples.heartRates)
			sleeping := meanOf(samples.heartRates)
			record.RestingHeartRate = &resting
			record.SleepingHeartRate = &sleeping
		}
		if len(samples.respiratoryRates) > 0 {
			respiratory := meanOf(samples.respiratoryRates)
			record.RespiratoryRate = &respiratory
		}
		if record.RestingHeartRate == nil && record.RespiratoryRate == nil {
			continue
		}
		result.Vitals[date] = record
	}
	return result
}

func minOf(values []float64) float64 {
	lowest := values[0]
	for _, v := range values[1:] {
		if v < lowest {
			lowest = v
		}
	}
	return lowest
}

func meanOf(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
