package normalize

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/hvault/hvault/internal/haetime"
	"github.com/hvault/hvault/internal/models"
)

// TestDetectMetricShapeRange verifies that Min/Avg/Max fields classify a
// point as range-shaped.
func TestDetectMetricShapeRange(t *testing.T) {
	raw := json.RawMessage(`{"date":"2026-01-15 14:30:00 +0000","Min":58,"Avg":72,"Max":120}`)
	if got := DetectMetricShape(raw); got != ShapeRange {
		t.Errorf("shape = %d, want ShapeRange", got)
	}
}

// TestDetectMetricShapePair verifies that systolic/diastolic fields classify
// a point as pair-shaped.
func TestDetectMetricShapePair(t *testing.T) {
	raw := json.RawMessage(`{"date":"2026-01-15 14:30:00 +0000","systolic":118,"diastolic":76}`)
	if got := DetectMetricShape(raw); got != ShapePair {
		t.Errorf("shape = %d, want ShapePair", got)
	}
}

// TestDetectMetricShapeScalarDefault verifies that a plain qty point, and any
// point without shape-marking fields, defaults to scalar.
func TestDetectMetricShapeScalarDefault(t *testing.T) {
	for _, raw := range []string{
		`{"date":"2026-01-15 14:30:00 +0000","qty":58}`,
		`{"date":"2026-01-15 14:30:00 +0000"}`,
	} {
		if got := DetectMetricShape(json.RawMessage(raw)); got != ShapeScalar {
			t.Errorf("shape of %s = %d, want ShapeScalar", raw, got)
		}
	}
}

// TestDetectMetricShapePriority verifies that a record carrying both range
// and pair fields is classified as range.
func TestDetectMetricShapePriority(t *testing.T) {
	raw := json.RawMessage(`{"Min":1,"Max":2,"systolic":118}`)
	if got := DetectMetricShape(raw); got != ShapeRange {
		t.Errorf("shape = %d, want ShapeRange over ShapePair", got)
	}
}

// TestMetricScalar verifies scalar conversion: qty set, triple and meta empty.
func TestMetricScalar(t *testing.T) {
	m := models.Metric{
		Name:  "resting_heart_rate",
		Units: "count/min",
		Data: []json.RawMessage{
			json.RawMessage(`{"date":"2026-01-15 08:00:00 +0000","qty":58,"source":"Watch"}`),
		},
	}
	rows, err := Metric(m, "default", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.Qty == nil || *row.Qty != 58 {
		t.Errorf("qty = %v, want 58", row.Qty)
	}
	if row.Min != nil || row.Avg != nil || row.Max != nil {
		t.Errorf("triple = %v/%v/%v, want all nil for scalar", row.Min, row.Avg, row.Max)
	}
	if row.Meta != nil {
		t.Errorf("meta = %v, want nil for scalar", *row.Meta)
	}
	if row.Source == nil || *row.Source != "Watch" {
		t.Errorf("source = %v, want Watch", row.Source)
	}
	if row.Date != "2026-01-15" {
		t.Errorf("date = %q, want 2026-01-15", row.Date)
	}
}

// TestMetricRange verifies range conversion: triple set, qty never set.
func TestMetricRange(t *testing.T) {
	m := models.Metric{
		Name:  "heart_rate",
		Units: "count/min",
		Data: []json.RawMessage{
			json.RawMessage(`{"date":"2026-01-15 14:30:00 +0000","Min":58,"Avg":72,"Max":120}`),
		},
	}
	rows, err := Metric(m, "default", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := rows[0]
	if row.Min == nil || *row.Min != 58 {
		t.Errorf("min = %v, want 58", row.Min)
	}
	if row.Avg == nil || *row.Avg != 72 {
		t.Errorf("avg = %v, want 72", row.Avg)
	}
	if row.Max == nil || *row.Max != 120 {
		t.Errorf("max = %v, want 120", row.Max)
	}
	if row.Qty != nil {
		t.Errorf("qty = %v, want nil for range shape", *row.Qty)
	}
}

// TestMetricPair verifies pair conversion: both readings preserved in the
// structured meta payload.
func TestMetricPair(t *testing.T) {
	m := models.Metric{
		Name:  "blood_pressure",
		Units: "mmHg",
		Data: []json.RawMessage{
			json.RawMessage(`{"date":"2026-01-15 09:00:00 +0000","systolic":118,"diastolic":76}`),
		},
	}
	rows, err := Metric(m, "default", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := rows[0]
	if row.Meta == nil {
		t.Fatal("meta = nil, want pair payload")
	}
	var meta struct {
		Systolic  *float64 `json:"systolic"`
		Diastolic *float64 `json:"diastolic"`
	}
	if err := json.Unmarshal([]byte(*row.Meta), &meta); err != nil {
		t.Fatalf("decoding meta: %v", err)
	}
	if meta.Systolic == nil || *meta.Systolic != 118 {
		t.Errorf("systolic = %v, want 118", meta.Systolic)
	}
	if meta.Diastolic == nil || *meta.Diastolic != 76 {
		t.Errorf("diastolic = %v, want 76", meta.Diastolic)
	}
}

// TestMetricSkipsSleepPseudoMetric verifies that the sleep-named metric
// yields no metric rows; its records belong to the sleep normalizer.
func TestMetricSkipsSleepPseudoMetric(t *testing.T) {
	m := models.Metric{
		Name: models.SleepMetricName,
		Data: []json.RawMessage{
			json.RawMessage(`{"startDate":"2026-01-14 23:00:00 +0000","endDate":"2026-01-15 07:00:00 +0000","value":"Core"}`),
		},
	}
	rows, err := Metric(m, "default", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != nil {
		t.Errorf("got %d rows, want none for sleep pseudo-metric", len(rows))
	}
}

// TestMetricBadTimestampFailsAll verifies that one unparseable timestamp
// fails the whole metric conversion rather than dropping the point.
func TestMetricBadTimestampFailsAll(t *testing.T) {
	m := models.Metric{
		Name: "step_count",
		Data: []json.RawMessage{
			json.RawMessage(`{"date":"2026-01-15 08:00:00 +0000","qty":1200}`),
			json.RawMessage(`{"date":"not a timestamp","qty":900}`),
		},
	}
	_, err := Metric(m, "default", nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var tsErr *haetime.TimestampFormatError
	if !errors.As(err, &tsErr) {
		t.Errorf("error type = %T, want *haetime.TimestampFormatError", err)
	}
}
