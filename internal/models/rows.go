package models

import "time"

// MetricRow is one normalized metric reading. Exactly one of Qty, the
// Min/Avg/Max triple, or Meta is populated, depending on the record shape.
// Identity: (Timestamp, Metric, Source, Target).
type MetricRow struct {
	Timestamp time.Time `json:"ts"`
	Date      string    `json:"date"`
	Metric    string    `json:"metric"`
	Qty       *float64  `json:"qty"`
	Min       *float64  `json:"min"`
	Avg       *float64  `json:"avg"`
	Max       *float64  `json:"max"`
	Units     string    `json:"units"`
	Source    *string   `json:"source"`
	Target    string    `json:"target"`
	Meta      *string   `json:"meta"`
	SessionID *string   `json:"session_id"`
}

// SleepVariant tags which source schema produced a sleep row.
type SleepVariant string

const (
	SleepVariantDetailed     SleepVariant = "detailed"
	SleepVariantAggregatedV2 SleepVariant = "aggregated_v2"
	SleepVariantAggregatedV1 SleepVariant = "aggregated_v1"
)

// SleepRow is one normalized sleep summary. Phase hours are populated only
// for the aggregated_v2 variant; Meta holds the raw record snapshot only for
// the detailed variant. Identity: (Date, Source, Target).
type SleepRow struct {
	Date       string       `json:"date"`
	SleepStart *time.Time   `json:"sleep_start"`
	SleepEnd   *time.Time   `json:"sleep_end"`
	InBedStart *time.Time   `json:"in_bed_start"`
	InBedEnd   *time.Time   `json:"in_bed_end"`
	CoreH      *float64     `json:"core_h"`
	DeepH      *float64     `json:"deep_h"`
	RemH       *float64     `json:"rem_h"`
	AwakeH     *float64     `json:"awake_h"`
	AsleepH    *float64     `json:"asleep_h"`
	InBedH     *float64     `json:"in_bed_h"`
	SchemaVer  SleepVariant `json:"schema_ver"`
	Source     *string      `json:"source"`
	Target     string       `json:"target"`
	Meta       *string      `json:"meta"`
	SessionID  *string      `json:"session_id"`
}

// WorkoutRow is one normalized workout. DurationSec may be negative when the
// export reports an end before its start; that anomaly is stored as-is so
// consumers can detect it. Meta always holds the raw record snapshot.
// Identity: (Timestamp, Name, Target).
type WorkoutRow struct {
	Timestamp    time.Time `json:"ts"`
	Date         string    `json:"date"`
	Name         string    `json:"name"`
	DurationSec  int64     `json:"duration_s"`
	Energy       *float64  `json:"energy"`
	Distance     *float64  `json:"distance"`
	DistanceUnit *string   `json:"distance_unit"`
	AvgHR        *float64  `json:"avg_hr"`
	MaxHR        *float64  `json:"max_hr"`
	Target       string    `json:"target"`
	Meta         string    `json:"meta"`
	SessionID    *string   `json:"session_id"`
}

// SyncEvent records one ingestion invocation. Append-only: every call that
// commits appends exactly one row, duplicates included.
type SyncEvent struct {
	ReceivedAt       time.Time `json:"received_at"`
	Target           string    `json:"target"`
	SessionID        *string   `json:"session_id"`
	MetricsCount     int       `json:"metrics_count"`
	WorkoutsCount    int       `json:"workouts_count"`
	AutomationName   *string   `json:"automation_name"`
	AutomationPeriod *string   `json:"automation_period"`
}
