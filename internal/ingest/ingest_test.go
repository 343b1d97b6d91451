package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hvault/hvault/internal/models"
	"github.com/hvault/hvault/internal/storage"
)

// fakeStore implements Store with an in-memory transaction: writes buffer in
// a fakeWriter and only land in the store when the callback succeeds,
// mirroring the commit/rollback contract of the real database.
type fakeStore struct {
	metrics  []models.MetricRow
	sleep    []models.SleepRow
	workouts []models.WorkoutRow
	events   []models.SyncEvent
}

func (s *fakeStore) InTx(ctx context.Context, fn func(w storage.Writer) error) error {
	w := &fakeWriter{}
	if err := fn(w); err != nil {
		return err
	}
	s.metrics = append(s.metrics, w.metrics...)
	s.sleep = append(s.sleep, w.sleep...)
	s.workouts = append(s.workouts, w.workouts...)
	s.events = append(s.events, w.events...)
	return nil
}

type fakeWriter struct {
	metrics  []models.MetricRow
	sleep    []models.SleepRow
	workouts []models.WorkoutRow
	events   []models.SyncEvent
}

func (w *fakeWriter) UpsertMetrics(ctx context.Context, rows []models.MetricRow) error {
	w.metrics = append(w.metrics, rows...)
	return nil
}

func (w *fakeWriter) UpsertSleep(ctx context.Context, row models.SleepRow) error {
	w.sleep = append(w.sleep, row)
	return nil
}

func (w *fakeWriter) UpsertWorkout(ctx context.Context, row models.WorkoutRow) error {
	w.workouts = append(w.workouts, row)
	return nil
}

func (w *fakeWriter) AppendSyncEvent(ctx context.Context, ev models.SyncEvent) error {
	w.events = append(w.events, ev)
	return nil
}

func testPayload(t *testing.T, raw string) *models.Payload {
	t.Helper()
	var p models.Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decoding test payload: %v", err)
	}
	return &p
}

const mixedPayload = `{
	"data": {
		"metrics": [
			{"name":"step_count","units":"count","data":[
				{"date":"2026-01-15 08:00:00 +0000","qty":1200},
				{"date":"2026-01-15 09:00:00 +0000","qty":800}
			]},
			{"name":"sleep_analysis","units":"hr","data":[
				{"sleepStart":"2026-01-14 23:00:00 +0000","sleepEnd":"2026-01-15 07:00:00 +0000","core":3.5,"deep":1.2,"rem":1.8,"awake":0.4,"asleep":6.5,"inBed":8.1,"source":"Watch"}
			]}
		],
		"workouts": [
			{"name":"Running","start":"2026-01-15 07:00:00 +0000","end":"2026-01-15 07:45:00 +0000"}
		]
	}
}`

// TestIngestMixedPayload verifies routing: metric points to the metrics
// table, sleep records to the sleep table, workouts to the workouts table,
// plus exactly one sync event with the processed counts.
func TestIngestMixedPayload(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, slog.Default())

	res, err := svc.Ingest(context.Background(), testPayload(t, mixedPayload), Options{Target: "default"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.MetricsAdded != 2 || res.SleepAdded != 1 || res.WorkoutsAdded != 1 {
		t.Errorf("result = %+v, want 2/1/1", res)
	}
	if len(store.metrics) != 2 {
		t.Errorf("stored metrics = %d, want 2", len(store.metrics))
	}
	if len(store.sleep) != 1 {
		t.Errorf("stored sleep = %d, want 1", len(store.sleep))
	}
	if len(store.workouts) != 1 {
		t.Errorf("stored workouts = %d, want 1", len(store.workouts))
	}
	if len(store.events) != 1 {
		t.Fatalf("sync events = %d, want exactly 1", len(store.events))
	}

	ev := store.events[0]
	if ev.MetricsCount != 2 || ev.WorkoutsCount != 1 {
		t.Errorf("sync event counts = %d/%d, want 2/1", ev.MetricsCount, ev.WorkoutsCount)
	}
	if ev.Target != "default" {
		t.Errorf("sync event target = %q, want default", ev.Target)
	}
	if ev.ReceivedAt.Location() != time.UTC {
		t.Errorf("sync event timestamp location = %v, want UTC", ev.ReceivedAt.Location())
	}
}

// TestIngestCountsRowsProcessed verifies that counts reflect processed rows:
// redelivering the same payload reports the same counts even though the
// upserts make the second delivery a semantic no-op.
func TestIngestCountsRowsProcessed(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, slog.Default())

	first, err := svc.Ingest(context.Background(), testPayload(t, mixedPayload), Options{Target: "default"})
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := svc.Ingest(context.Background(), testPayload(t, mixedPayload), Options{Target: "default"})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if *first != *second {
		t.Errorf("second delivery result = %+v, want same as first %+v", second, first)
	}
	if len(store.events) != 2 {
		t.Errorf("sync events = %d, want one per call", len(store.events))
	}
}

// TestIngestMalformedPayload verifies the typed error for a missing envelope.
func TestIngestMalformedPayload(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, slog.Default())

	for _, p := range []*models.Payload{nil, {}} {
		_, err := svc.Ingest(context.Background(), p, Options{Target: "default"})
		if !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("error = %v, want ErrMalformedPayload", err)
		}
	}
	if len(store.events) != 0 {
		t.Errorf("sync events = %d, want none for rejected payloads", len(store.events))
	}
}

// TestIngestBadRecordFailsWholeCall verifies that one malformed record
// anywhere in the payload persists nothing, not even the valid records
// processed before it.
func TestIngestBadRecordFailsWholeCall(t *testing.T) {
	payload := `{
		"data": {
			"metrics": [
				{"name":"step_count","units":"count","data":[{"date":"2026-01-15 08:00:00 +0000","qty":1200}]},
				{"name":"heart_rate","units":"count/min","data":[{"date":"garbage","Avg":70}]}
			],
			"workouts": []
		}
	}`
	store := &fakeStore{}
	svc := New(store, slog.Default())

	_, err := svc.Ingest(context.Background(), testPayload(t, payload), Options{Target: "default"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(store.metrics) != 0 || len(store.events) != 0 {
		t.Errorf("stored %d metrics and %d events after failure, want none",
			len(store.metrics), len(store.events))
	}
}

// TestIngestEmptyEnvelope verifies that a present but empty envelope is
// valid: zero counts and still one sync event.
func TestIngestEmptyEnvelope(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, slog.Default())

	res, err := svc.Ingest(context.Background(), testPayload(t, `{"data":{"metrics":[],"workouts":[]}}`), Options{Target: "default"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MetricsAdded != 0 || res.SleepAdded != 0 || res.WorkoutsAdded != 0 {
		t.Errorf("result = %+v, want all zero", res)
	}
	if len(store.events) != 1 {
		t.Errorf("sync events = %d, want 1", len(store.events))
	}
}

// TestIngestAutomationLabels verifies that automation metadata flows through
// to the sync event.
func TestIngestAutomationLabels(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, slog.Default())

	name, period := "watch", "manual"
	_, err := svc.Ingest(context.Background(), testPayload(t, `{"data":{"metrics":[],"workouts":[]}}`), Options{
		Target:           "default",
		AutomationName:   &name,
		AutomationPeriod: &period,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := store.events[0]
	if ev.AutomationName == nil || *ev.AutomationName != "watch" {
		t.Errorf("automation name = %v, want watch", ev.AutomationName)
	}
	if ev.AutomationPeriod == nil || *ev.AutomationPeriod != "manual" {
		t.Errorf("automation period = %v, want manual", ev.AutomationPeriod)
	}
}
