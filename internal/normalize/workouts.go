package normalize

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/hvault/hvault/internal/haetime"
	"github.com/hvault/hvault/internal/models"
)

// Workout converts one raw workout record into a normalized row. Duration is
// end minus start rounded to the nearest second; an end before its start
// yields a negative duration that is stored as-is rather than clamped, so a
// broken export stays visible downstream. Heart-rate stats are derived from
// the attached sample series and are nil when the series is empty. The raw
// record is kept verbatim as the snapshot.
func Workout(raw json.RawMessage, target string, sessionID *string) (models.WorkoutRow, error) {
	var w models.Workout
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.WorkoutRow{}, fmt.Errorf("decoding workout: %w", err)
	}

	start, err := haetime.Parse(w.Start)
	if err != nil {
		return models.WorkoutRow{}, fmt.Errorf("workout %s: %w", w.Name, err)
	}
	end, err := haetime.Parse(w.End)
	if err != nil {
		return models.WorkoutRow{}, fmt.Errorf("workout %s: %w", w.Name, err)
	}

	row := models.WorkoutRow{
		Timestamp:   start,
		Date:        haetime.DayKey(start),
		Name:        w.Name,
		DurationSec: int64(math.Round(end.Sub(start).Seconds())),
		Target:      target,
		Meta:        string(raw),
		SessionID:   sessionID,
	}

	if w.ActiveEnergyBurned != nil {
		row.Energy = &w.ActiveEnergyBurned.Qty
	}
	if w.Distance != nil {
		row.Distance = &w.Distance.Qty
		row.DistanceUnit = &w.Distance.Units
	}

	var sum, peak float64
	var n int
	for _, s := range w.HeartRateData {
		if s.Qty == nil {
			continue
		}
		sum += *s.Qty
		if n == 0 || *s.Qty > peak {
			peak = *s.Qty
		}
		n++
	}
	if n > 0 {
		avg := sum / float64(n)
		row.AvgHR = &avg
		row.MaxHR = &peak
	}

	return row, nil
}
