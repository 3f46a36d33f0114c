// Package domain defines the daily aggregate records and persistence contracts
// for the healthstats service.
package domain

import (
	"context"
	"time"
)

// SleepRecord is the daily sleep aggregate stored in sleep_records.
// Stage-specific minutes (REM, core, deep) also accumulate into
// TimeAsleepMinutes; generic asleep observations carry no stage breakdown and
// only contribute to TimeAsleepMinutes.
type SleepRecord struct {
	Date              Date
	TimeInBedMinutes  float64
	TimeAsleepMinutes float64
	AwakeMinutes      float64
	REMMinutes        float64
	CoreMinutes       float64
	DeepMinutes       float64
	Bedtime           time.Time
	WakeTime          time.Time
}

// ActivityRecord is the daily activity aggregate stored in activity_records.
type ActivityRecord struct {
	Date         Date
	Steps        int
	MoveCalories float64
	StandHours   int
}

// VitalsRecord is the daily vitals aggregate stored in vitals_records.
// Nil fields mean the date had no samples for that series.
type VitalsRecord struct {
	Date              Date
	RestingHeartRate  *float64
	SleepingHeartRate *float64
	RespiratoryRate   *float64
}

// DerivedMetrics holds the per-date metrics computed from a persisted sleep
// record after each ingestion run.
type DerivedMetrics struct {
	Date                    Date
	SleepConsistencyScore   float64
	SleepFragmentationIndex float64
	REMPercentage           float64
	DeepPercentage          float64
	SleepEfficiency         float64
}

// Stats summarises the persisted dataset for the stats endpoint.
type Stats struct {
	SleepCount    int
	ActivityCount int
	VitalsCount   int
	FirstDate     *Date
	LastDate      *Date
}

// Repository captures persistence operations over the daily aggregate tables.
// Find methods return (nil, nil) when no row exists for the date. Upsert
// methods insert a new row or fully overwrite every field of an existing one.
type Repository interface {
	FindSleepByDate(ctx context.Context, date Date) (*SleepRecord, error)
	UpsertSleep(ctx context.Context, record SleepRecord) error
	ListSleepRange(ctx context.Context, from, to Date) ([]SleepRecord, error)

	FindActivityByDate(ctx context.Context, date Date) (*ActivityRecord, error)
	UpsertActivity(ctx context.Context, record ActivityRecord) error
	ListActivityRange(ctx context.Context, from, to Date) ([]ActivityRecord, error)

	FindVitalsByDate(ctx context.Context, date Date) (*VitalsRecord, error)
	UpsertVitals(ctx context.Context, record VitalsRecord) error
	ListVitalsRange(ctx context.Context, from, to Date) ([]VitalsRecord, error)

	UpsertDerivedMetrics(ctx context.Context, metrics DerivedMetrics) error
	ListDerivedMetricsRange(ctx context.Context, from, to Date) ([]DerivedMetrics, error)

	Stats(ctx context.Context) (Stats, error)
}
