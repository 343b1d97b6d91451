package mcp

import (
	"context"
	"time"

	"github.com/hvault/hvault/internal/models"
	"github.com/hvault/hvault/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	LatestMetrics(ctx context.Context) ([]models.MetricRow, error)
	QueryMetrics(ctx context.Context, metric string, start, end time.Time) ([]models.MetricRow, error)
	QuerySleep(ctx context.Context, startDay, endDay string) ([]models.SleepRow, error)
	QueryWorkouts(ctx context.Context, start, end time.Time) ([]models.WorkoutRow, error)
	QuerySyncEvents(ctx context.Context, limit int) ([]models.SyncEvent, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
