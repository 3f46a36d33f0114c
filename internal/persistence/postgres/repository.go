// Package postgres provides Postgres-backed persistence for daily aggregates
// and outbox events.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/healthstats/internal/domain"
	"example.com/healthstats/internal/outbox"
)

// Repository implements domain.Repository on a pgx connection pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sleepColumns = `date, time_in_bed_minutes, time_asleep_minutes, awake_minutes, rem_minutes, core_minutes, deep_minutes, bedtime, wake_time`

// FindSleepByDate returns the sleep record for the date, or (nil, nil) when absent.
func (r *Repository) FindSleepByDate(ctx context.Context, date domain.Date) (*domain.SleepRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sleepColumns+` FROM sleep_records WHERE date=$1`, date.Time())
	record, err := scanSleep(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// UpsertSleep inserts the record or fully overwrites the existing row for the
// same date, and stages the upsert event in the outbox within the same
// transaction. Re-ingesting a file covering a partial day replaces, not
// unions, the previous aggregate for that date.
func (r *Repository) UpsertSleep(ctx context.Context, record domain.SleepRecord) error {
	const stmt = `INSERT INTO sleep_records (` + sleepColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (date) DO UPDATE SET
            time_in_bed_minutes=EXCLUDED.time_in_bed_minutes,
            time_asleep_minutes=EXCLUDED.time_asleep_minutes,
            awake_minutes=EXCLUDED.awake_minutes,
            rem_minutes=EXCLUDED.rem_minutes,
            core_minutes=EXCLUDED.core_minutes,
            deep_minutes=EXCLUDED.deep_minutes,
            bedtime=EXCLUDED.bedtime,
            wake_time=EXCLUDED.wake_time`

	return r.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, stmt,
			record.Date.Time(),
			record.TimeInBedMinutes,
			record.TimeAsleepMinutes,
			record.AwakeMinutes,
			record.REMMinutes,
			record.CoreMinutes,
			record.DeepMinutes,
			nullIfZeroTime(record.Bedtime),
			nullIfZeroTime(record.WakeTime),
		)
		if err != nil {
			return err
		}
		return insertOutbox(ctx, tx, outbox.EventSleepDailyUpserted, record.Date, outbox.SleepDailyUpserted{
			Date:              record.Date.String(),
			TimeInBedMinutes:  record.TimeInBedMinutes,
			TimeAsleepMinutes: record.TimeAsleepMinutes,
			AwakeMinutes:      record.AwakeMinutes,
			REMMinutes:        record.REMMinutes,
			CoreMinutes:       record.CoreMinutes,
			DeepMinutes:       record.DeepMinutes,
		})
	})
}

// ListSleepRange returns sleep records in [from, to], newest first.
func (r *Repository) ListSleepRange(ctx context.Context, from, to domain.Date) ([]domain.SleepRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sleepColumns+` FROM sleep_records WHERE date >= $1 AND date <= $2 ORDER BY date DESC`,
		from.Time(), to.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.SleepRecord
	for rows.Next() {
		record, err := scanSleep(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// FindActivityByDate returns the activity record for the date, or (nil, nil) when absent.
func (r *Repository) FindActivityByDate(ctx context.Context, date domain.Date) (*domain.ActivityRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT date, steps, move_calories, stand_hours FROM activity_records WHERE date=$1`, date.Time())
	record, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// UpsertActivity inserts or fully overwrites the activity row for the date.
func (r *Repository) UpsertActivity(ctx context.Context, record domain.ActivityRecord) error {
	const stmt = `INSERT INTO activity_records (date, steps, move_calories, stand_hours)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (date) DO UPDATE SET
            steps=EXCLUDED.steps,
            move_calories=EXCLUDED.move_calories,
            stand_hours=EXCLUDED.stand_hours`

	return r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, stmt, record.Date.Time(), record.Steps, record.MoveCalories, record.StandHours); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, outbox.EventActivityDailyUpserted, record.Date, outbox.ActivityDailyUpserted{
			Date:         record.Date.String(),
			Steps:        record.Steps,
			MoveCalories: record.MoveCalories,
			StandHours:   record.StandHours,
		})
	})
}

// ListActivityRange returns activity records in [from, to], newest first.
func (r *Repository) ListActivityRange(ctx context.Context, from, to domain.Date) ([]domain.ActivityRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT date, steps, move_calories, stand_hours FROM activity_records WHERE date >= $1 AND date <= $2 ORDER BY date DESC`,
		from.Time(), to.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ActivityRecord
	for rows.Next() {
		record, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// FindVitalsByDate returns the vitals record for the date, or (nil, nil) when absent.
func (r *Repository) FindVitalsByDate(ctx context.Context, date domain.Date) (*domain.VitalsRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT date, resting_heart_rate, sleeping_heart_rate, respiratory_rate FROM vitals_records WHERE date=$1`, date.Time())
	record, err := scanVitals(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// UpsertVitals inserts or fully overwrites the vitals row for the date.
func (r *Repository) UpsertVitals(ctx context.Context, record domain.VitalsRecord) error {
	const stmt = `INSERT INTO vitals_records (date, resting_heart_rate, sleeping_heart_rate, respiratory_rate)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (date) DO UPDATE SET
            resting_heart_rate=EXCLUDED.resting_heart_rate,
            sleeping_heart_rate=EXCLUDED.sleeping_heart_rate,
            respiratory_rate=EXCLUDED.respiratory_rate`

	return r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, stmt, record.Date.Time(), record.RestingHeartRate, record.SleepingHeartRate, record.RespiratoryRate); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, outbox.EventVitalsDailyUpserted, record.Date, outbox.VitalsDailyUpserted{
			Date:              record.Date.String(),
			RestingHeartRate:  record.RestingHeartRate,
			SleepingHeartRate: record.SleepingHeartRate,
			RespiratoryRate:   record.RespiratoryRate,
		})
	})
}

// ListVitalsRange returns vitals records in [from, to], newest first.
func (r *Repository) ListVitalsRange(ctx context.Context, from, to domain.Date) ([]domain.VitalsRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT date, resting_heart_rate, sleeping_heart_rate, respiratory_rate FROM vitals_records WHERE date >= $1 AND date <= $2 ORDER BY date DESC`,
		from.Time(), to.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.VitalsRecord
	for rows.Next() {
		record, err := scanVitals(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// UpsertDerivedMetrics inserts or fully overwrites derived metrics for the date.
func (r *Repository) UpsertDerivedMetrics(ctx context.Context, metrics domain.DerivedMetrics) error {
	const stmt = `INSERT INTO derived_metrics (date, sleep_consistency_score, sleep_fragmentation_index, rem_percentage, deep_percentage, sleep_efficiency)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (date) DO UPDATE SET
            sleep_consistency_score=EXCLUDED.sleep_consistency_score,
            sleep_fragmentation_index=EXCLUDED.sleep_fragmentation_index,
            rem_percentage=EXCLUDED.rem_percentage,
            deep_percentage=EXCLUDED.deep_percentage,
            sleep_efficiency=EXCLUDED.sleep_efficiency`

	_, err := r.pool.Exec(ctx, stmt,
		metrics.Date.Time(),
		metrics.SleepConsistencyScore,
		metrics.SleepFragmentationIndex,
		metrics.REMPercentage,
		metrics.DeepPercentage,
		metrics.SleepEfficiency,
	)
	return err
}

// ListDerivedMetricsRange returns derived metrics in [from, to], newest first.
func (r *Repository) ListDerivedMetricsRange(ctx context.Context, from, to domain.Date) ([]domain.DerivedMetrics, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT date, sleep_consistency_score, sleep_fragmentation_index, rem_percentage, deep_percentage, sleep_efficiency
         FROM derived_metrics WHERE date >= $1 AND date <= $2 ORDER BY date DESC`,
		from.Time(), to.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.DerivedMetrics
	for rows.Next() {
		var metrics domain.DerivedMetrics
		var day time.Time
		if err := rows.Scan(&day, &metrics.SleepConsistencyScore, &metrics.SleepFragmentationIndex, &metrics.REMPercentage, &metrics.DeepPercentage, &metrics.SleepEfficiency); err != nil {
			return nil, err
		}
		metrics.Date = domain.DateOf(day.UTC())
		records = append(records, metrics)
	}
	return records, rows.Err()
}

// Stats reports row counts and the covered sleep date range.
func (r *Repository) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	row := r.pool.QueryRow(ctx, `SELECT
        (SELECT COUNT(*) FROM sleep_records),
        (SELECT COUNT(*) FROM activity_records),
        (SELECT COUNT(*) FROM vitals_records),
        (SELECT MIN(date) FROM sleep_records),
        (SELECT MAX(date) FROM sleep_records)`)

	var first, last *time.Time
	if err := row.Scan(&stats.SleepCount, &stats.ActivityCount, &stats.VitalsCount, &first, &last); err != nil {
		return domain.Stats{}, err
	}
	if first != nil {
		date := domain.DateOf(first.UTC())
		stats.FirstDate = &date
	}
	if last != nil {
		date := domain.DateOf(last.UTC())
		stats.LastDate = &date
	}
	return stats, nil
}

func (r *Repository) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	err = tx.Commit(ctx)
	return err
}

func insertOutbox(ctx context.Context, tx pgx.Tx, eventType string, date domain.Date, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	const stmt = `INSERT INTO outbox (event_type, topic, partition_key, payload) VALUES ($1,$2,$3,$4)`
	_, err = tx.Exec(ctx, stmt, eventType, outbox.Topic, date.String(), body)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSleep(row rowScanner) (*domain.SleepRecord, error) {
	var record domain.SleepRecord
	var day time.Time
	var bedtime, wakeTime *time.Time
	if err := row.Scan(&day, &record.TimeInBedMinutes, &record.TimeAsleepMinutes, &record.AwakeMinutes, &record.REMMinutes, &record.CoreMinutes, &record.DeepMinutes, &bedtime, &wakeTime); err != nil {
		return nil, err
	}
	record.Date = domain.DateOf(day.UTC())
	if bedtime != nil {
		record.Bedtime = *bedtime
	}
	if wakeTime != nil {
		record.WakeTime = *wakeTime
	}
	return &record, nil
}

func scanActivity(row rowScanner) (*domain.ActivityRecord, error) {
	var record domain.ActivityRecord
	var day time.Time
	if err := row.Scan(&day, &record.Steps, &record.MoveCalories, &record.StandHours); err != nil {
		return nil, err
	}
	record.Date = domain.DateOf(day.UTC())
	return &record, nil
}

func scanVitals(row rowScanner) (*domain.VitalsRecord, error) {
	var record domain.VitalsRecord
	var day time.Time
	if err := row.Scan(&day, &record.RestingHeartRate, &record.SleepingHeartRate, &record.RespiratoryRate); err != nil {
		return nil, err
	}
	record.Date = domain.DateOf(day.UTC())
	return &record, nil
}

func nullIfZeroTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
