package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hvault/hvault/internal/haetime"
	"github.com/hvault/hvault/internal/models"
)

// UnrecognizedSleepShapeError reports a sleep record matching none of the
// three known schema variants. Keys lists the fields the record carried.
type UnrecognizedSleepShapeError struct {
	Keys []string
}

func (e *UnrecognizedSleepShapeError) Error() string {
	return fmt.Sprintf("sleep record matches no known schema variant (fields: %s)",
		strings.Join(e.Keys, ", "))
}

// DetectSleepVariant probes a raw sleep record and classifies it. Priority:
// an interval-start field marks the detailed per-stage form; an aggregate
// sleepStart with a unified source field marks the newer summary; a bare
// aggregate sleepStart marks the older summary. The exporter sends no
// version tag, so presence of fields is all there is to go on.
func DetectSleepVariant(raw json.RawMessage) (models.SleepVariant, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", fmt.Errorf("decoding sleep record: %w", err)
	}

	if nonEmptyString(probe["startDate"]) {
		return models.SleepVariantDetailed, nil
	}
	if _, ok := probe["sleepStart"]; ok {
		if nonEmptyString(probe["source"]) {
			return models.SleepVariantAggregatedV2, nil
		}
		return models.SleepVariantAggregatedV1, nil
	}

	keys := make([]string, 0, len(probe))
	for k := range probe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "", &UnrecognizedSleepShapeError{Keys: keys}
}

func nonEmptyString(raw json.RawMessage) bool {
	if raw == nil {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	return s != ""
}

// Sleep converts one raw sleep record into a normalized row. All variants
// populate the asleep/in-bed totals where the source provides them and a
// sleep-start instant; only aggregated_v2 carries phase hours, and only
// detailed keeps the raw record snapshot.
func Sleep(raw json.RawMessage, target string, sessionID *string) (models.SleepRow, error) {
	variant, err := DetectSleepVariant(raw)
	if err != nil {
		return models.SleepRow{}, err
	}

	switch variant {
	case models.SleepVariantDetailed:
		return sleepDetailed(raw, target, sessionID)
	case models.SleepVariantAggregatedV2:
		return sleepAggregatedV2(raw, target, sessionID)
	default:
		return sleepAggregatedV1(raw, target, sessionID)
	}
}

func sleepDetailed(raw json.RawMessage, target string, sessionID *string) (models.SleepRow, error) {
	var dp models.SleepDetailed
	if err := json.Unmarshal(raw, &dp); err != nil {
		return models.SleepRow{}, fmt.Errorf("decoding detailed sleep: %w", err)
	}

	start, err := haetime.Parse(dp.StartDate)
	if err != nil {
		return models.SleepRow{}, fmt.Errorf("sleep: %w", err)
	}
	end, err := haetime.Parse(dp.EndDate)
	if err != nil {
		return models.SleepRow{}, fmt.Errorf("sleep: %w", err)
	}

	// The record-level detail (stage value, qty) survives in the snapshot.
	meta := string(raw)
	return models.SleepRow{
		Date:       haetime.DayKey(start),
		SleepStart: &start,
		SleepEnd:   &end,
		SchemaVer:  models.SleepVariantDetailed,
		Source:     optional(dp.Source),
		Target:     target,
		Meta:       &meta,
		SessionID:  sessionID,
	}, nil
}

func sleepAggregatedV2(raw json.RawMessage, target string, sessionID *string) (models.SleepRow, error) {
	var dp models.SleepAggregatedV2
	if err := json.Unmarshal(raw, &dp); err != nil {
		return models.SleepRow{}, fmt.Errorf("decoding aggregated sleep: %w", err)
	}

	start, err := haetime.Parse(dp.SleepStart)
	if err != nil {
		return models.SleepRow{}, fmt.Errorf("sleep: %w", err)
	}
	end, err := haetime.Parse(dp.SleepEnd)
	if err != nil {
		return models.SleepRow{}, fmt.Errorf("sleep: %w", err)
	}

	return models.SleepRow{
		Date:       haetime.DayKey(start),
		SleepStart: &start,
		SleepEnd:   &end,
		CoreH:      &dp.Core,
		DeepH:      &dp.Deep,
		RemH:       &dp.REM,
		AwakeH:     &dp.Awake,
		AsleepH:    &dp.Asleep,
		InBedH:     &dp.InBed,
		SchemaVer:  models.SleepVariantAggregatedV2,
		Source:     optional(dp.Source),
		Target:     target,
		SessionID:  sessionID,
	}, nil
}

func sleepAggregatedV1(raw json.RawMessage, target string, sessionID *string) (models.SleepRow, error) {
	var dp models.SleepAggregatedV1
	if err := json.Unmarshal(raw, &dp); err != nil {
		return models.SleepRow{}, fmt.Errorf("decoding aggregated sleep: %w", err)
	}

	start, err := haetime.Parse(dp.SleepStart)
	if err != nil {
		return models.SleepRow{}, fmt.Errorf("sleep: %w", err)
	}
	end, err := haetime.Parse(dp.SleepEnd)
	if err != nil {
		return models.SleepRow{}, fmt.Errorf("sleep: %w", err)
	}

	row := models.SleepRow{
		Date:       haetime.DayKey(start),
		SleepStart: &start,
		SleepEnd:   &end,
		AsleepH:    &dp.Asleep,
		InBedH:     &dp.InBed,
		SchemaVer:  models.SleepVariantAggregatedV1,
		Source:     dp.SleepSource,
		Target:     target,
		SessionID:  sessionID,
	}

	if dp.InBedStart != "" {
		t, err := haetime.Parse(dp.InBedStart)
		if err != nil {
			return models.SleepRow{}, fmt.Errorf("sleep: %w", err)
		}
		row.InBedStart = &t
	}
	if dp.InBedEnd != "" {
		t, err := haetime.Parse(dp.InBedEnd)
		if err != nil {
			return models.SleepRow{}, fmt.Errorf("sleep: %w", err)
		}
		row.InBedEnd = &t
	}
	return row, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
