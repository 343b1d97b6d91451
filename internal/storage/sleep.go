package storage

import (
	"context"
	"fmt"

	"github.com/hvault/hvault/internal/models"
)

const sleepCols = "date, sleep_start, sleep_end, in_bed_start, in_bed_end, " +
	"core_h, deep_h, rem_h, awake_h, asleep_h, in_bed_h, " +
	"schema_ver, source, target, meta, session_id"

// UpsertSleep writes one sleep summary, replacing any row with a matching
// (date, source, target) identity.
func (t *Tx) UpsertSleep(ctx context.Context, row models.SleepRow) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO sleep (`+sleepCols+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		 ON CONFLICT (date, source, target) DO UPDATE SET
		 sleep_start = EXCLUDED.sleep_start, sleep_end = EXCLUDED.sleep_end,
		 in_bed_start = EXCLUDED.in_bed_start, in_bed_end = EXCLUDED.in_bed_end,
		 core_h = EXCLUDED.core_h, deep_h = EXCLUDED.deep_h, rem_h = EXCLUDED.rem_h,
		 awake_h = EXCLUDED.awake_h, asleep_h = EXCLUDED.asleep_h, in_bed_h = EXCLUDED.in_bed_h,
		 schema_ver = EXCLUDED.schema_ver, meta = EXCLUDED.meta, session_id = EXCLUDED.session_id`,
		row.Date, row.SleepStart, row.SleepEnd, row.InBedStart, row.InBedEnd,
		row.CoreH, row.DeepH, row.RemH, row.AwakeH, row.AsleepH, row.InBedH,
		row.SchemaVer, row.Source, row.Target, row.Meta, row.SessionID)
	if err != nil {
		return fmt.Errorf("upserting sleep: %w", err)
	}
	return nil
}

// QuerySleep retrieves sleep summaries in a day-key range, newest first.
func (db *DB) QuerySleep(ctx context.Context, startDay, endDay string) ([]models.SleepRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+sleepCols+`
		 FROM sleep
		 WHERE date >= $1 AND date <= $2
		 ORDER BY date DESC`,
		startDay, endDay)
	if err != nil {
		return nil, fmt.Errorf("querying sleep: %w", err)
	}
	defer rows.Close()

	var result []models.SleepRow
	for rows.Next() {
		var r models.SleepRow
		if err := rows.Scan(&r.Date, &r.SleepStart, &r.SleepEnd, &r.InBedStart, &r.InBedEnd,
			&r.CoreH, &r.DeepH, &r.RemH, &r.AwakeH, &r.AsleepH, &r.InBedH,
			&r.SchemaVer, &r.Source, &r.Target, &r.Meta, &r.SessionID); err != nil {
			return nil, fmt.Errorf("scanning sleep row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// CountSleep returns the total number of stored sleep summaries.
func (db *DB) CountSleep(ctx context.Context) (int64, error) {
	var n int64
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM sleep`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sleep: %w", err)
	}
	return n, nil
}
