package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/hvault/hvault/internal/ingest"
	"github.com/hvault/hvault/internal/ledger"
	"github.com/hvault/hvault/internal/models"
	"github.com/hvault/hvault/internal/storage"
)

// memStore implements ingest.Store in memory: committed writes accumulate in
// the store, a failed callback discards them.
type memStore struct {
	metrics  int
	sleep    int
	workouts int
	events   int
}

type memWriter struct {
	metrics  int
	sleep    int
	workouts int
	events   int
}

func (s *memStore) InTx(ctx context.Context, fn func(w storage.Writer) error) error {
	w := &memWriter{}
	if err := fn(w); err != nil {
		return err
	}
	s.metrics += w.metrics
	s.sleep += w.sleep
	s.workouts += w.workouts
	s.events += w.events
	return nil
}

func (w *memWriter) UpsertMetrics(ctx context.Context, rows []models.MetricRow) error {
	w.metrics += len(rows)
	return nil
}

func (w *memWriter) UpsertSleep(ctx context.Context, row models.SleepRow) error {
	w.sleep++
	return nil
}

func (w *memWriter) UpsertWorkout(ctx context.Context, row models.WorkoutRow) error {
	w.workouts++
	return nil
}

func (w *memWriter) AppendSyncEvent(ctx context.Context, ev models.SyncEvent) error {
	w.events++
	return nil
}

const exportJSON = `{
	"data": {
		"metrics": [
			{"name":"step_count","units":"count","data":[{"date":"2026-01-15 08:00:00 +0000","qty":1200}]}
		],
		"workouts": []
	}
}`

func newTestImporter(t *testing.T) (*Importer, *memStore, *ledger.Ledger) {
	t.Helper()
	store := &memStore{}
	svc := ingest.New(store, slog.Default())
	led, err := ledger.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening ledger: %v", err)
	}
	t.Cleanup(func() { led.Close() })
	return New(svc, led, "default", "file-import", slog.Default()), store, led
}

// TestImportBytes verifies a plain JSON import: rows land, the outcome
// reports counts, and the ledger records the hash.
func TestImportBytes(t *testing.T) {
	imp, store, led := newTestImporter(t)

	outcome, err := imp.ImportBytes(context.Background(), "HealthAutoExport.json", []byte(exportJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Skipped {
		t.Error("outcome skipped on first import")
	}
	if outcome.Result == nil || outcome.Result.MetricsAdded != 1 {
		t.Errorf("result = %+v, want 1 metric row", outcome.Result)
	}
	if store.metrics != 1 || store.events != 1 {
		t.Errorf("store = %d metrics / %d events, want 1/1", store.metrics, store.events)
	}

	seen, err := led.Seen(outcome.Hash)
	if err != nil {
		t.Fatalf("checking ledger: %v", err)
	}
	if !seen {
		t.Error("hash not in ledger after successful import")
	}
}

// TestImportBytesSkipsSeen verifies that a redelivered file is skipped
// without touching the orchestrator.
func TestImportBytesSkipsSeen(t *testing.T) {
	imp, store, _ := newTestImporter(t)

	if _, err := imp.ImportBytes(context.Background(), "a.json", []byte(exportJSON)); err != nil {
		t.Fatalf("first import: %v", err)
	}
	// Same bytes under a different name: content hash identity.
	outcome, err := imp.ImportBytes(context.Background(), "b.json", []byte(exportJSON))
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if !outcome.Skipped {
		t.Error("outcome not skipped for duplicate content")
	}
	if store.events != 1 {
		t.Errorf("sync events = %d, want 1 (duplicate must not re-ingest)", store.events)
	}
}

// TestImportBytesFailureStaysRetryable verifies that a failed ingest leaves
// no ledger entry, so the file can be retried.
func TestImportBytesFailureStaysRetryable(t *testing.T) {
	imp, store, led := newTestImporter(t)

	bad := []byte(`{"data":{"metrics":[{"name":"x","units":"","data":[{"date":"broken","qty":1}]}],"workouts":[]}}`)
	_, err := imp.ImportBytes(context.Background(), "bad.json", bad)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if store.events != 0 {
		t.Errorf("sync events = %d, want 0 after failed import", store.events)
	}

	seen, err := led.Seen(ledger.HashBytes(bad))
	if err != nil {
		t.Fatalf("checking ledger: %v", err)
	}
	if seen {
		t.Error("failed import was recorded in the ledger")
	}
}

// TestImportBytesUndecodable verifies that decode failures come back as a
// DecodeError and leave no ledger entry.
func TestImportBytesUndecodable(t *testing.T) {
	imp, store, led := newTestImporter(t)

	bad := []byte("not json at all")
	_, err := imp.ImportBytes(context.Background(), "HealthAutoExport-bad.json", bad)
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("error = %v (%T), want *DecodeError", err, err)
	}
	if decErr.File != "HealthAutoExport-bad.json" {
		t.Errorf("DecodeError file = %q, want the import path", decErr.File)
	}
	if store.events != 0 {
		t.Errorf("sync events = %d, want 0", store.events)
	}

	seen, err := led.Seen(ledger.HashBytes(bad))
	if err != nil {
		t.Fatalf("checking ledger: %v", err)
	}
	if seen {
		t.Error("undecodable file was recorded in the ledger")
	}
}

// TestDecodePayloadZip verifies extraction of the export JSON from a zip
// archive, ignoring unrelated entries.
func TestDecodePayloadZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"readme.txt":                       "not a payload",
		"HealthAutoExport-2026-01-15.json": exportJSON,
	} {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry: %v", err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("writing zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}

	payload, err := DecodePayload(buf.Bytes(), "HealthAutoExport.zip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Data == nil || len(payload.Data.Metrics) != 1 {
		t.Errorf("payload = %+v, want one metric entry", payload)
	}
}

// TestDecodePayloadZipWithoutExport verifies the malformed-payload error for
// archives with no export entry.
func TestDecodePayloadZipWithoutExport(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("other.json")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	if _, err := f.Write([]byte("{}")); err != nil {
		t.Fatalf("writing zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}

	_, err = DecodePayload(buf.Bytes(), "archive.zip")
	if !errors.Is(err, ingest.ErrMalformedPayload) {
		t.Errorf("error = %v, want ErrMalformedPayload", err)
	}
}

// TestDecodePayloadMissingEnvelope verifies that valid JSON without the data
// envelope is rejected as malformed.
func TestDecodePayloadMissingEnvelope(t *testing.T) {
	_, err := DecodePayload([]byte(`{"metrics":[]}`), "export.json")
	if !errors.Is(err, ingest.ErrMalformedPayload) {
		t.Errorf("error = %v, want ErrMalformedPayload", err)
	}
}
