package api

import (
	"encoding/json"
	"net/http"
	"time"

	"example.com/healthstats/internal/domain"
	"example.com/healthstats/internal/insights"
)

// HealthStatus reports component reachability for health checks.
type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Ollama   string `json:"ollama"`
}

// RecordCounts itemises rows newly inserted by an ingestion run.
type RecordCounts struct {
	Sleep          int `json:"sleep"`
	Activity       int `json:"activity"`
	Vitals         int `json:"vitals"`
	DerivedMetrics int `json:"derived_metrics"`
}

// UploadResponse describes the result of an export upload.
type UploadResponse struct {
	Message      string       `json:"message"`
	RunID        string       `json:"run_id"`
	RecordsAdded RecordCounts `json:"records_added"`
}

// RecordsResponse packages date-range query results.
type RecordsResponse[T any] struct {
	Records []T `json:"records"`
	Count   int `json:"count"`
}

// SleepView exposes one daily sleep record.
type SleepView struct {
	Date              string  `json:"date"`
	TimeInBedMinutes  float64 `json:"time_in_bed_minutes"`
	TimeAsleepMinutes float64 `json:"time_asleep_minutes"`
	AwakeMinutes      float64 `json:"awake_minutes"`
	REMMinutes        float64 `json:"rem_minutes"`
	CoreMinutes       float64 `json:"core_minutes"`
	DeepMinutes       float64 `json:"deep_minutes"`
	Bedtime           *string `json:"bedtime"`
	WakeTime          *string `json:"wake_time"`
}

func toSleepView(record domain.SleepRecord) SleepView {
	view := SleepView{
		Date:              record.Date.String(),
		TimeInBedMinutes:  record.TimeInBedMinutes,
		TimeAsleepMinutes: record.TimeAsleepMinutes,
		AwakeMinutes:      record.AwakeMinutes,
		REMMinutes:        record.REMMinutes,
		CoreMinutes:       record.CoreMinutes,
		DeepMinutes:       record.DeepMinutes,
	}
	if !record.Bedtime.IsZero() {
		bedtime := record.Bedtime.Format(time.RFC3339)
		view.Bedtime = &bedtime
	}
	if !record.WakeTime.IsZero() {
		wakeTime := record.WakeTime.Format(time.RFC3339)
		view.WakeTime = &wakeTime
	}
	return view
}

// ActivityView exposes one daily activity record.
type ActivityView struct {
	Date         string  `json:"date"`
	Steps        int     `json:"steps"`
	MoveCalories float64 `json:"move_calories"`
	StandHours   int     `json:"stand_hours"`
}

func toActivityView(record domain.ActivityRecord) ActivityView {
	return ActivityView{
		Date:         record.Date.String(),
		Steps:        record.Steps,
		MoveCalories: record.MoveCalories,
		StandHours:   record.StandHours,
	}
}

// VitalsView exposes one daily vitals record.
type VitalsView struct {
	Date              string   `json:"date"`
	RestingHeartRate  *float64 `json:"resting_heart_rate"`
	SleepingHeartRate *float64 `json:"sleeping_heart_rate"`
	RespiratoryRate   *float64 `json:"respiratory_rate"`
}

func toVitalsView(record domain.VitalsRecord) VitalsView {
	return VitalsView{
		Date:              record.Date.String(),
		RestingHeartRate:  record.RestingHeartRate,
		SleepingHeartRate: record.SleepingHeartRate,
		RespiratoryRate:   record.RespiratoryRate,
	}
}

// DerivedMetricsView exposes one daily derived metrics record.
type DerivedMetricsView struct {
	Date                    string  `json:"date"`
	SleepConsistencyScore   float64 `json:"sleep_consistency_score"`
	SleepFragmentationIndex float64 `json:"sleep_fragmentation_index"`
	REMPercentage           float64 `json:"rem_percentage"`
	DeepPercentage          float64 `json:"deep_percentage"`
	SleepEfficiency         float64 `json:"sleep_efficiency"`
}

func toDerivedMetricsView(record domain.DerivedMetrics) DerivedMetricsView {
	return DerivedMetricsView{
		Date:                    record.Date.String(),
		SleepConsistencyScore:   record.SleepConsistencyScore,
		SleepFragmentationIndex: record.SleepFragmentationIndex,
		REMPercentage:           record.REMPercentage,
		DeepPercentage:          record.DeepPercentage,
		SleepEfficiency:         record.SleepEfficiency,
	}
}

// InsightsResponse packages the generated report with the context it was
// generated from.
type InsightsResponse struct {
	Error       string             `json:"error,omitempty"`
	Insights    []insights.Insight `json:"insights"`
	Summary     string             `json:"summary"`
	Model       string             `json:"model,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
	Context     insights.Context   `json:"context"`
}

// StatsResponse reports dataset totals and coverage.
type StatsResponse struct {
	TotalRecords struct {
		Sleep    int `json:"sleep"`
		Activity int `json:"activity"`
		Vitals   int `json:"vitals"`
	} `json:"total_records"`
	DateRange struct {
		FirstDate *string `json:"first_date"`
		LastDate  *string `json:"last_date"`
	} `json:"date_range"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
