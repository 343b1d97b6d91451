// Package ingest orchestrates one ingestion call: it routes a decoded
// export payload through the normalizers and persists the results in a
// single transaction. A malformed record anywhere in the payload fails the
// whole call — partial silent ingestion would hide data-quality problems —
// and because nothing was committed, redelivering the same payload after a
// failure is always safe.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hvault/hvault/internal/models"
	"github.com/hvault/hvault/internal/normalize"
	"github.com/hvault/hvault/internal/storage"
)

// ErrMalformedPayload marks a payload missing the expected data envelope.
var ErrMalformedPayload = errors.New("payload missing data envelope")

// Options is the ingestion metadata supplied by the entry point.
type Options struct {
	Target           string
	SessionID        *string
	AutomationName   *string
	AutomationPeriod *string
}

// Result reports how many rows one ingestion call processed.
type Result struct {
	MetricsAdded  int `json:"metricsAdded"`
	SleepAdded    int `json:"sleepAdded"`
	WorkoutsAdded int `json:"workoutsAdded"`
}

// Store is the transactional persistence surface the orchestrator writes
// through. *storage.DB satisfies it.
type Store interface {
	InTx(ctx context.Context, fn func(w storage.Writer) error) error
}

// Service drives the normalizers and the persistence layer.
type Service struct {
	db  Store
	log *slog.Logger
	now func() time.Time
}

// New creates an ingestion service.
func New(db Store, log *slog.Logger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

// Ingest processes one decoded export payload. Sleep-named metric entries go
// through the sleep normalizer record by record; every other metric entry
// goes through the metric normalizer; workouts through the workout
// normalizer. On success exactly one sync event is appended and the
// processed counts are returned. On any error nothing is persisted.
func (s *Service) Ingest(ctx context.Context, payload *models.Payload, opts Options) (*Result, error) {
	if payload == nil || payload.Data == nil {
		return nil, ErrMalformedPayload
	}

	result := &Result{}
	err := s.db.InTx(ctx, func(w storage.Writer) error {
		for _, m := range payload.Data.Metrics {
			if m.Name == models.SleepMetricName {
				for _, raw := range m.Data {
					row, err := normalize.Sleep(raw, opts.Target, opts.SessionID)
					if err != nil {
						return err
					}
					if err := w.UpsertSleep(ctx, row); err != nil {
						return fmt.Errorf("storing sleep: %w", err)
					}
					result.SleepAdded++
				}
				continue
			}

			rows, err := normalize.Metric(m, opts.Target, opts.SessionID)
			if err != nil {
				return err
			}
			if err := w.UpsertMetrics(ctx, rows); err != nil {
				return fmt.Errorf("storing metrics: %w", err)
			}
			result.MetricsAdded += len(rows)
		}

		for _, raw := range payload.Data.Workouts {
			row, err := normalize.Workout(raw, opts.Target, opts.SessionID)
			if err != nil {
				return err
			}
			if err := w.UpsertWorkout(ctx, row); err != nil {
				return fmt.Errorf("storing workout: %w", err)
			}
			result.WorkoutsAdded++
		}

		return w.AppendSyncEvent(ctx, models.SyncEvent{
			ReceivedAt:       s.now().UTC(),
			Target:           opts.Target,
			SessionID:        opts.SessionID,
			MetricsCount:     result.MetricsAdded,
			WorkoutsCount:    result.WorkoutsAdded,
			AutomationName:   opts.AutomationName,
			AutomationPeriod: opts.AutomationPeriod,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ingested payload",
		"target", opts.Target,
		"metrics", result.MetricsAdded,
		"sleep", result.SleepAdded,
		"workouts", result.WorkoutsAdded,
	)
	return result, nil
}
