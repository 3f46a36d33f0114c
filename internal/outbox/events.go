package outbox

// Topic is the Kafka topic daily aggregate events are published to.
const Topic = "health_daily_events"

// Event types emitted when an ingestion run upserts a daily record.
const (
	EventSleepDailyUpserted    = "health.sleep_daily_upserted"
	EventActivityDailyUpserted = "health.activity_daily_upserted"
	EventVitalsDailyUpserted   = "health.vitals_daily_upserted"
)

// SleepDailyUpserted is the payload for EventSleepDailyUpserted.
type SleepDailyUpserted struct {
	Date              string  `json:"date"`
	TimeInBedMinutes  float64 `json:"time_in_bed_minutes"`
	TimeAsleepMinutes float64 `json:"time_asleep_minutes"`
	AwakeMinutes      float64 `json:"awake_minutes"`
	REMMinutes        float64 `json:"rem_minutes"`
	CoreMinutes       float64 `json:"core_minutes"`
	DeepMinutes       float64 `json:"deep_minutes"`
}

// ActivityDailyUpserted is the payload for EventActivityDailyUpserted.
type ActivityDailyUpserted struct {
	Date         string  `json:"date"`
	Steps        int     `json:"steps"`
	MoveCalories float64 `json:"move_calories"`
	StandHours   int     `json:"stand_hours"`
}

// VitalsDailyUpserted is the payload for EventVitalsDailyUpserted.
type VitalsDailyUpserted struct {
	Date              string   `json:"date"`
	RestingHeartRate  *float64 `json:"resting_heart_rate,omitempty"`
	SleepingHeartRate *float64 `json:"sleeping_heart_rate,omitempty"`
	RespiratoryRate   *float64 `json:"respiratory_rate,omitempty"`
}
