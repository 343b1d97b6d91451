package storage

import (
	"context"
	"fmt"

	"github.com/hvault/hvault/internal/models"
)

// AppendSyncEvent appends one sync-log row. Plain insert: the sync log is
// append-only and never deduplicated.
func (t *Tx) AppendSyncEvent(ctx context.Context, ev models.SyncEvent) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO sync_log (received_at, target, session_id, metrics_count, workouts_count, automation_name, automation_period)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		ev.ReceivedAt, ev.Target, ev.SessionID, ev.MetricsCount, ev.WorkoutsCount,
		ev.AutomationName, ev.AutomationPeriod)
	if err != nil {
		return fmt.Errorf("appending sync event: %w", err)
	}
	return nil
}

// QuerySyncEvents returns the most recent sync events.
func (db *DB) QuerySyncEvents(ctx context.Context, limit int) ([]models.SyncEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT received_at, target, session_id, metrics_count, workouts_count, automation_name, automation_period
		 FROM sync_log
		 ORDER BY received_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync log: %w", err)
	}
	defer rows.Close()

	var result []models.SyncEvent
	for rows.Next() {
		var ev models.SyncEvent
		if err := rows.Scan(&ev.ReceivedAt, &ev.Target, &ev.SessionID,
			&ev.MetricsCount, &ev.WorkoutsCount, &ev.AutomationName, &ev.AutomationPeriod); err != nil {
			return nil, fmt.Errorf("scanning sync event: %w", err)
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}

// CountSyncEvents returns the total number of sync-log rows.
func (db *DB) CountSyncEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM sync_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sync events: %w", err)
	}
	return n, nil
}
