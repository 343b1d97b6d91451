package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hvault/hvault/internal/models"
)

// metricCols is the column order shared by the upsert and the scans.
const metricCols = "ts, date, metric, qty, min_val, avg_val, max_val, units, source, target, meta, session_id"

// UpsertMetrics writes metric rows, replacing any row with a matching
// (ts, metric, source, target) identity. Rows carrying the same identity
// within one batch are collapsed first (last wins) — ON CONFLICT DO UPDATE
// refuses to touch the same row twice in a single statement.
func (t *Tx) UpsertMetrics(ctx context.Context, rows []models.MetricRow) error {
	rows = dedupeMetricRows(rows)

	// 12 params per row; chunk well below the 65535 parameter limit.
	const batchSize = 5000
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := t.upsertMetricBatch(ctx, rows[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) upsertMetricBatch(ctx context.Context, rows []models.MetricRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO metrics (` + metricCols + `) VALUES `
	args := make([]any, 0, len(rows)*12)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 12
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
			base+7, base+8, base+9, base+10, base+11, base+12,
		))
		args = append(args, r.Timestamp, r.Date, r.Metric, r.Qty, r.Min, r.Avg, r.Max,
			r.Units, r.Source, r.Target, r.Meta, r.SessionID)
	}

	query += strings.Join(valueStrings, ",") + `
		ON CONFLICT (ts, metric, source, target) DO UPDATE SET
		date = EXCLUDED.date, qty = EXCLUDED.qty,
		min_val = EXCLUDED.min_val, avg_val = EXCLUDED.avg_val, max_val = EXCLUDED.max_val,
		units = EXCLUDED.units, meta = EXCLUDED.meta, session_id = EXCLUDED.session_id`

	if _, err := t.tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting metrics: %w", err)
	}
	return nil
}

type metricKey struct {
	ts     int64
	metric string
	source string
	hasSrc bool
	target string
}

func dedupeMetricRows(rows []models.MetricRow) []models.MetricRow {
	if len(rows) < 2 {
		return rows
	}
	index := make(map[metricKey]int, len(rows))
	out := rows[:0]
	for _, r := range rows {
		k := metricKey{ts: r.Timestamp.UnixNano(), metric: r.Metric, target: r.Target}
		if r.Source != nil {
			k.source = *r.Source
			k.hasSrc = true
		}
		if i, ok := index[k]; ok {
			out[i] = r
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}

// QueryMetrics retrieves metric rows by name and time range, ordered by time.
func (db *DB) QueryMetrics(ctx context.Context, metric string, start, end time.Time) ([]models.MetricRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+metricCols+`
		 FROM metrics
		 WHERE metric = $1 AND ts >= $2 AND ts < $3
		 ORDER BY ts ASC`,
		metric, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	return scanMetricRows(rows)
}

// LatestMetrics returns the most recent reading for each metric name.
func (db *DB) LatestMetrics(ctx context.Context) ([]models.MetricRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT DISTINCT ON (metric) `+metricCols+`
		 FROM metrics
		 ORDER BY metric, ts DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying latest metrics: %w", err)
	}
	defer rows.Close()

	return scanMetricRows(rows)
}

// CountMetrics returns the total number of stored metric rows.
func (db *DB) CountMetrics(ctx context.Context) (int64, error) {
	var n int64
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM metrics`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting metrics: %w", err)
	}
	return n, nil
}

func scanMetricRows(rows pgx.Rows) ([]models.MetricRow, error) {
	var result []models.MetricRow
	for rows.Next() {
		var r models.MetricRow
		if err := rows.Scan(&r.Timestamp, &r.Date, &r.Metric, &r.Qty, &r.Min, &r.Avg, &r.Max,
			&r.Units, &r.Source, &r.Target, &r.Meta, &r.SessionID); err != nil {
			return nil, fmt.Errorf("scanning metric row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
