// Package analytics computes derived sleep metrics and rolling summaries over
// the persisted daily aggregates.
package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"example.com/healthstats/internal/domain"
)

// consistencyWindowDays is the trailing window used for the bedtime-variance
// consistency score.
const consistencyWindowDays = 7

// Analytics reads persisted records and derives reporting metrics.
type Analytics struct {
	repo domain.Repository
	now  func() time.Time
}

// New constructs an Analytics layer over the repository.
func New(repo domain.Repository) *Analytics {
	return &Analytics{repo: repo, now: time.Now}
}

// ComputeDerivedMetrics derives per-date sleep metrics from the persisted
// sleep record. It returns (nil, nil) when the date has no sleep record.
func (a *Analytics) ComputeDerivedMetrics(ctx context.Context, date domain.Date) (*domain.DerivedMetrics, error) {
	record, err := a.repo.FindSleepByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	metrics := domain.DerivedMetrics{Date: date}

	if record.TimeInBedMinutes > 0 {
		metrics.SleepFragmentationIndex = record.AwakeMinutes / record.TimeInBedMinutes * 100
		metrics.SleepEfficiency = record.TimeAsleepMinutes / record.TimeInBedMinutes * 100
	}
	if record.TimeAsleepMinutes > 0 {
		metrics.REMPercentage = record.REMMinutes / record.TimeAsleepMinutes * 100
		metrics.DeepPercentage = record.DeepMinutes / record.TimeAsleepMinutes * 100
	}

	score, err := a.consistencyScore(ctx, date)
	if err != nil {
		return nil, err
	}
	metrics.SleepConsistencyScore = score

	return &metrics, nil
}

// consistencyScore scores bedtime regularity over the trailing week: a
// standard deviation of zero scores 100, three hours scores 0.
func (a *Analytics) consistencyScore(ctx context.Context, date domain.Date) (float64, error) {
	records, err := a.repo.ListSleepRange(ctx, date.AddDays(-consistencyWindowDays), date)
	if err != nil {
		return 0, err
	}

	bedtimes := make([]float64, 0, len(records))
	for _, record := range records {
		if record.Bedtime.IsZero() {
			continue
		}
		bedtimes = append(bedtimes, float64(record.Bedtime.Hour())+float64(record.Bedtime.Minute())/60)
	}
	if len(bedtimes) < 2 {
		return 100, nil
	}

	score := 100 - stddev(bedtimes)*33.33
	if score < 0 {
		score = 0
	}
	return round2(score), nil
}

// SleepNight describes one night of sleep for summary responses.
type SleepNight struct {
	Date            string  `json:"date"`
	TimeAsleepHours float64 `json:"time_asleep_hours"`
	REMMinutes      float64 `json:"rem_minutes"`
	DeepMinutes     float64 `json:"deep_minutes"`
	CoreMinutes     float64 `json:"core_minutes"`
	AwakeMinutes    float64 `json:"awake_minutes"`
	Bedtime         string  `json:"bedtime,omitempty"`
	WakeTime        string  `json:"wake_time,omitempty"`
	REMPercentage   float64 `json:"rem_percentage"`
	DeepPercentage  float64 `json:"deep_percentage"`
}

// SleepAverages holds window averages for the sleep summary.
type SleepAverages struct {
	TimeAsleepHours float64 `json:"time_asleep_hours"`
	REMMinutes      float64 `json:"rem_minutes"`
	DeepMinutes     float64 `json:"deep_minutes"`
	AwakeMinutes    float64 `json:"awake_minutes"`
	REMPercentage   float64 `json:"rem_percentage"`
	DeepPercentage  float64 `json:"deep_percentage"`
}

// SleepSummary reports the most recent night against the window average.
type SleepSummary struct {
	LastNight    SleepNight    `json:"last_night"`
	Average      SleepAverages `json:"average"`
	WindowDays   int           `json:"window_days"`
	TotalRecords int           `json:"total_records"`
}

// SleepSummary summarises the last N days of sleep. It returns (nil, nil)
// when the window has no records.
func (a *Analytics) SleepSummary(ctx context.Context, days int) (*SleepSummary, error) {
	to := domain.DateOf(a.now())
	records, err := a.repo.ListSleepRange(ctx, to.AddDays(-days), to)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Records arrive newest first.
	last := records[0]

	asleep := make([]float64, 0, len(records))
	rem := make([]float64, 0, len(records))
	deep := make([]float64, 0, len(records))
	awake := make([]float64, 0, len(records))
	for _, record := range records {
		appendNonZero(&asleep, record.TimeAsleepMinutes)
		appendNonZero(&rem, record.REMMinutes)
		appendNonZero(&deep, record.DeepMinutes)
		appendNonZero(&awake, record.AwakeMinutes)
	}

	avgAsleep := mean(asleep)
	avgREM := mean(rem)
	avgDeep := mean(deep)

	summary := &SleepSummary{
		LastNight: SleepNight{
			Date:            last.Date.String(),
			TimeAsleepHours: round1(last.TimeAsleepMinutes / 60),
			REMMinutes:      round1(last.REMMinutes),
			DeepMinutes:     round1(last.DeepMinutes),
			CoreMinutes:     round1(last.CoreMinutes),
			AwakeMinutes:    round1(last.AwakeMinutes),
			REMPercentage:   round1(percentage(last.REMMinutes, last.TimeAsleepMinutes)),
			DeepPercentage:  round1(percentage(last.DeepMinutes, last.TimeAsleepMinutes)),
		},
		Average: SleepAverages{
			TimeAsleepHours: round1(avgAsleep / 60),
			REMMinutes:      round1(avgREM),
			DeepMinutes:     round1(avgDeep),
			AwakeMinutes:    round1(mean(awake)),
			REMPercentage:   round1(percentage(avgREM, avgAsleep)),
			DeepPercentage:  round1(percentage(avgDeep, avgAsleep)),
		},
		WindowDays:   days,
		TotalRecords: len(records),
	}
	if !last.Bedtime.IsZero() {
		summary.LastNight.Bedtime = last.Bedtime.Format("15:04")
	}
	if !last.WakeTime.IsZero() {
		summary.LastNight.WakeTime = last.WakeTime.Format("15:04")
	}
	return summary, nil
}

// ActivityDay describes one day of activity for summary responses.
type ActivityDay struct {
	Date         string  `json:"date"`
	Steps        int     `json:"steps"`
	MoveCalories float64 `json:"move_calories"`
	StandHours   int     `json:"stand_hours"`
}

// ActivityAverages holds window averages for the activity summary.
type ActivityAverages struct {
	Steps        int     `json:"steps"`
	MoveCalories float64 `json:"move_calories"`
	StandHours   int     `json:"stand_hours"`
}

// ActivitySummary reports the most recent day against the window average.
type ActivitySummary struct {
	Yesterday    ActivityDay      `json:"yesterday"`
	Average      ActivityAverages `json:"average"`
	WindowDays   int              `json:"window_days"`
	TotalRecords int              `json:"total_records"`
}

// ActivitySummary summarises the last N days of activity. It returns
// (nil, nil) when the window has no records.
func (a *Analytics) ActivitySummary(ctx context.Context, days int) (*ActivitySummary, error) {
	to := domain.DateOf(a.now())
	records, err := a.repo.ListActivityRange(ctx, to.AddDays(-days), to)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	last := records[0]

	steps := make([]float64, 0, len(records))
	calories := make([]float64, 0, len(records))
	standHours := make([]float64, 0, len(records))
	for _, record := range records {
		appendNonZero(&steps, float64(record.Steps))
		appendNonZero(&calories, record.MoveCalories)
		appendNonZero(&standHours, float64(record.StandHours))
	}

	return &ActivitySummary{
		Yesterday: ActivityDay{
			Date:         last.Date.String(),
			Steps:        last.Steps,
			MoveCalories: round1(last.MoveCalories),
			StandHours:   last.StandHours,
		},
		Average: ActivityAverages{
			Steps:        int(mean(steps)),
			MoveCalories: round1(mean(calories)),
			StandHours:   int(mean(standHours)),
		},
		WindowDays:   days,
		TotalRecords: len(records),
	}, nil
}

// NotablePatterns flags threshold deviations of the latest day against the
// window average across sleep and activity.
func (a *Analytics) NotablePatterns(ctx context.Context, days int) ([]string, error) {
	patterns := []string{}

	sleep, err := a.SleepSummary(ctx, days)
	if err != nil {
		return nil, err
	}
	activity, err := a.ActivitySummary(ctx, days)
	if err != nil {
		return nil, err
	}
	if sleep == nil || activity == nil {
		return patterns, nil
	}

	if sleep.LastNight.TimeAsleepHours != 0 && sleep.Average.TimeAsleepHours != 0 {
		diff := sleep.LastNight.TimeAsleepHours - sleep.Average.TimeAsleepHours
		if math.Abs(diff) > 0.5 {
			patterns = append(patterns, fmt.Sprintf(
				"Sleep duration %s by %.0f minutes compared to %d-day average",
				direction(diff, "increased", "decreased"), math.Abs(diff*60), days))
		}
	}

	if sleep.LastNight.REMPercentage != 0 && sleep.Average.REMPercentage != 0 {
		diff := sleep.LastNight.REMPercentage - sleep.Average.REMPercentage
		if math.Abs(diff) > 2 {
			patterns = append(patterns, fmt.Sprintf(
				"REM percentage %s by %.1f%% compared to %d-day average",
				direction(diff, "increased", "decreased"), math.Abs(diff), days))
		}
	}

	if sleep.LastNight.DeepPercentage != 0 && sleep.Average.DeepPercentage != 0 {
		diff := sleep.LastNight.DeepPercentage - sleep.Average.DeepPercentage
		if math.Abs(diff) > 2 {
			patterns = append(patterns, fmt.Sprintf(
				"Deep sleep percentage %s by %.1f%% compared to %d-day average",
				direction(diff, "increased", "decreased"), math.Abs(diff), days))
		}
	}

	if activity.Yesterday.Steps != 0 && activity.Average.Steps != 0 {
		diffPct := float64(activity.Yesterday.Steps-activity.Average.Steps) / float64(activity.Average.Steps) * 100
		if math.Abs(diffPct) > 10 {
			patterns = append(patterns, fmt.Sprintf(
				"Activity levels %.1f%% %s recent average",
				math.Abs(diffPct), direction(diffPct, "above", "below")))
		}
	}

	return patterns, nil
}

// correlationWindowDays and correlationMinPoints bound the correlation window.
const (
	correlationWindowDays = 30
	correlationMinPoints  = 5
)

// Correlations computes Pearson correlations between daily steps and sleep
// duration / sleep quality over the last 30 days. Dates missing either series
// are skipped; fewer than six aligned days yields an empty map.
func (a *Analytics) Correlations(ctx context.Context) (map[string]float64, error) {
	to := domain.DateOf(a.now())
	from := to.AddDays(-correlationWindowDays)

	sleepRecords, err := a.repo.ListSleepRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	activityRecords, err := a.repo.ListActivityRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	sleepByDate := make(map[domain.Date]domain.SleepRecord, len(sleepRecords))
	for _, record := range sleepRecords {
		sleepByDate[record.Date] = record
	}
	activityByDate := make(map[domain.Date]domain.ActivityRecord, len(activityRecords))
	for _, record := range activityRecords {
		activityByDate[record.Date] = record
	}

	var steps, durations, quality []float64
	for date := from; !to.Before(date); date = date.AddDays(1) {
		sleep, haveSleep := sleepByDate[date]
		activity, haveActivity := activityByDate[date]
		if !haveSleep || !haveActivity || sleep.TimeAsleepMinutes == 0 || activity.Steps == 0 {
			continue
		}
		steps = append(steps, float64(activity.Steps))
		durations = append(durations, sleep.TimeAsleepMinutes/60)
		quality = append(quality, (sleep.DeepMinutes+sleep.REMMinutes)/sleep.TimeAsleepMinutes*100)
	}

	correlations := map[string]float64{}
	if len(steps) > correlationMinPoints {
		correlations["steps_sleep_duration"] = round3(pearson(steps, durations))
		correlations["steps_sleep_quality"] = round3(pearson(steps, quality))
	}
	return correlations, nil
}

func appendNonZero(values *[]float64, v float64) {
	if v != 0 {
		*values = append(*values, v)
	}
}

func percentage(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

func direction(diff float64, positive, negative string) string {
	if diff > 0 {
		return positive
	}
	return negative
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func stddev(values []float64) float64 {
	m := mean(values)
	var sum float64
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)))
}

// pearson computes the Pearson correlation coefficient of two equal-length
// series. It returns 0 when either series has no variance.
func pearson(xs, ys []float64) float64 {
	meanX := mean(xs)
	meanY := mean(ys)

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
