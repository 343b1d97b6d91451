package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/hvault/hvault/internal/models"
)

const workoutCols = "ts, date, name, duration_s, energy, distance, distance_unit, " +
	"avg_hr, max_hr, target, meta, session_id"

// UpsertWorkout writes one workout, replacing any row with a matching
// (ts, name, target) identity.
func (t *Tx) UpsertWorkout(ctx context.Context, row models.WorkoutRow) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO workouts (`+workoutCols+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 ON CONFLICT (ts, name, target) DO UPDATE SET
		 date = EXCLUDED.date, duration_s = EXCLUDED.duration_s,
		 energy = EXCLUDED.energy, distance = EXCLUDED.distance,
		 distance_unit = EXCLUDED.distance_unit,
		 avg_hr = EXCLUDED.avg_hr, max_hr = EXCLUDED.max_hr,
		 meta = EXCLUDED.meta, session_id = EXCLUDED.session_id`,
		row.Timestamp, row.Date, row.Name, row.DurationSec,
		row.Energy, row.Distance, row.DistanceUnit,
		row.AvgHR, row.MaxHR, row.Target, row.Meta, row.SessionID)
	if err != nil {
		return fmt.Errorf("upserting workout: %w", err)
	}
	return nil
}

// QueryWorkouts retrieves workouts in a time range, newest first.
func (db *DB) QueryWorkouts(ctx context.Context, start, end time.Time) ([]models.WorkoutRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+workoutCols+`
		 FROM workouts
		 WHERE ts >= $1 AND ts < $2
		 ORDER BY ts DESC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutRow
	for rows.Next() {
		var r models.WorkoutRow
		if err := rows.Scan(&r.Timestamp, &r.Date, &r.Name, &r.DurationSec,
			&r.Energy, &r.Distance, &r.DistanceUnit,
			&r.AvgHR, &r.MaxHR, &r.Target, &r.Meta, &r.SessionID); err != nil {
			return nil, fmt.Errorf("scanning workout row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// CountWorkouts returns the total number of stored workouts.
func (db *DB) CountWorkouts(ctx context.Context) (int64, error) {
	var n int64
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM workouts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting workouts: %w", err)
	}
	return n, nil
}
