// Package normalize flattens heterogeneous export records into the
// normalized row types. Shape and variant detection is structural — the
// exporter tags nothing, so records are classified once by which fields they
// carry and then handled as that narrowed case. Normalizers never touch
// storage; they return rows and errors only.
package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/hvault/hvault/internal/haetime"
	"github.com/hvault/hvault/internal/models"
)

// MetricShape classifies a metric data point's structure.
type MetricShape int

const (
	ShapeScalar MetricShape = iota // {"qty": N}
	ShapeRange                     // {"Min": N, "Avg": N, "Max": N}
	ShapePair                      // {"systolic": N, "diastolic": N}
)

// DetectMetricShape probes a raw data point for its shape. Range-triple
// fields win over pair fields, which win over a plain quantity: a record
// carrying fields of more than one shape is classified by the richest match.
func DetectMetricShape(raw json.RawMessage) MetricShape {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ShapeScalar
	}
	if hasAny(probe, "Min", "Avg", "Max") {
		return ShapeRange
	}
	if hasAny(probe, "systolic", "diastolic") {
		return ShapePair
	}
	return ShapeScalar
}

func hasAny(probe map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if _, ok := probe[k]; ok {
			return true
		}
	}
	return false
}

// pairMeta is the structured-extra payload stored for pair-shaped records.
type pairMeta struct {
	Systolic  *float64 `json:"systolic"`
	Diastolic *float64 `json:"diastolic"`
}

// Metric converts one named metric's raw data points into normalized rows.
// The sleep pseudo-metric yields no rows here; its records use the sleep
// schemas and are handled by Sleep. A data point whose timestamp matches no
// known format fails the whole conversion.
func Metric(m models.Metric, target string, sessionID *string) ([]models.MetricRow, error) {
	if m.Name == models.SleepMetricName {
		return nil, nil
	}

	rows := make([]models.MetricRow, 0, len(m.Data))
	for _, raw := range m.Data {
		row := models.MetricRow{
			Metric:    m.Name,
			Units:     m.Units,
			Target:    target,
			SessionID: sessionID,
		}

		var date string
		switch DetectMetricShape(raw) {
		case ShapeRange:
			var dp models.RangePoint
			if err := json.Unmarshal(raw, &dp); err != nil {
				return nil, fmt.Errorf("metric %s: decoding range point: %w", m.Name, err)
			}
			date = dp.Date
			row.Min = dp.Min
			row.Avg = dp.Avg
			row.Max = dp.Max
			row.Source = dp.Source

		case ShapePair:
			var dp models.PairPoint
			if err := json.Unmarshal(raw, &dp); err != nil {
				return nil, fmt.Errorf("metric %s: decoding pair point: %w", m.Name, err)
			}
			meta, err := json.Marshal(pairMeta{Systolic: dp.Systolic, Diastolic: dp.Diastolic})
			if err != nil {
				return nil, fmt.Errorf("metric %s: encoding pair meta: %w", m.Name, err)
			}
			metaStr := string(meta)
			date = dp.Date
			row.Meta = &metaStr
			row.Source = dp.Source

		default:
			var dp models.ScalarPoint
			if err := json.Unmarshal(raw, &dp); err != nil {
				return nil, fmt.Errorf("metric %s: decoding scalar point: %w", m.Name, err)
			}
			date = dp.Date
			row.Qty = dp.Qty
			row.Source = dp.Source
		}

		ts, err := haetime.Parse(date)
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", m.Name, err)
		}
		row.Timestamp = ts
		row.Date = haetime.DayKey(ts)
		rows = append(rows, row)
	}
	return rows, nil
}
