// Package models holds the Health Auto Export wire types and the normalized
// row types the rest of the system stores and queries.
package models

import "encoding/json"

// Payload is the top-level export JSON structure. Data is a pointer so a
// payload missing the envelope entirely can be told apart from an empty one.
type Payload struct {
	Data *PayloadData `json:"data"`
}

// PayloadData contains the exported lists. Individual metric data points and
// workouts stay as raw JSON: their shape varies by exporter version and is
// disambiguated structurally during normalization.
type PayloadData struct {
	Metrics  []Metric          `json:"metrics"`
	Workouts []json.RawMessage `json:"workouts"`
}

// Metric is one named metric entry with its unit label and raw data points.
type Metric struct {
	Name  string            `json:"name"`
	Units string            `json:"units"`
	Data  []json.RawMessage `json:"data"`
}

// SleepMetricName is the pseudo-metric under which the exporter ships sleep
// records. Its data points use the sleep schemas, not the metric shapes.
const SleepMetricName = "sleep_analysis"

// ScalarPoint is the standard metric data point: one quantity per instant.
type ScalarPoint struct {
	Date   string   `json:"date"`
	Qty    *float64 `json:"qty"`
	Source *string  `json:"source"`
}

// RangePoint carries a min/avg/max summary instead of a single quantity
// (heart rate and similar high-frequency metrics). The capitalized keys are
// what the exporter actually sends.
type RangePoint struct {
	Date   string   `json:"date"`
	Min    *float64 `json:"Min"`
	Avg    *float64 `json:"Avg"`
	Max    *float64 `json:"Max"`
	Source *string  `json:"source"`
}

// PairPoint is a structured pair observation, e.g. blood pressure.
type PairPoint struct {
	Date      string   `json:"date"`
	Systolic  *float64 `json:"systolic"`
	Diastolic *float64 `json:"diastolic"`
	Source    *string  `json:"source"`
}

// SleepDetailed is the per-stage sleep record (Summarize Data: OFF): one
// phase interval per record, no aggregate totals.
type SleepDetailed struct {
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
	Value     string  `json:"value"`
	Qty       float64 `json:"qty"`
	Source    string  `json:"source"`
}

// SleepAggregatedV2 is the nightly summary from exporter >= 6.6.2: phase
// totals plus a unified source field.
type SleepAggregatedV2 struct {
	SleepStart string  `json:"sleepStart"`
	SleepEnd   string  `json:"sleepEnd"`
	Core       float64 `json:"core"`
	Deep       float64 `json:"deep"`
	REM        float64 `json:"rem"`
	Awake      float64 `json:"awake"`
	Asleep     float64 `json:"asleep"`
	InBed      float64 `json:"inBed"`
	Source     string  `json:"source"`
}

// SleepAggregatedV1 is the older nightly summary: separate in-bed interval,
// no phase breakdown, per-measurement source sub-fields.
type SleepAggregatedV1 struct {
	SleepStart  string  `json:"sleepStart"`
	SleepEnd    string  `json:"sleepEnd"`
	InBedStart  string  `json:"inBedStart"`
	InBedEnd    string  `json:"inBedEnd"`
	Asleep      float64 `json:"asleep"`
	InBed       float64 `json:"inBed"`
	SleepSource *string `json:"sleepSource"`
	InBedSource *string `json:"inBedSource"`
}

// Workout is the exported workout record. Fields not modeled here survive in
// the raw snapshot kept by the normalizer.
type Workout struct {
	Name               string      `json:"name"`
	Start              string      `json:"start"`
	End                string      `json:"end"`
	ActiveEnergyBurned *Quantity   `json:"activeEnergyBurned"`
	Distance           *Quantity   `json:"distance"`
	HeartRateData      []HRSample  `json:"heartRateData"`
}

// Quantity is the {"qty": N, "units": "..."} structure.
type Quantity struct {
	Qty   float64 `json:"qty"`
	Units string  `json:"units"`
}

// HRSample is one heart-rate sample attached to a workout.
type HRSample struct {
	Date  string   `json:"date"`
	Qty   *float64 `json:"qty"`
	Units string   `json:"units"`
}
