// Package watcher polls a directory for new export files on a fixed
// interval. One tick at a time: the loop blocks for the duration of a tick,
// so two ticks never overlap, and a failing tick is logged while the next
// scheduled tick proceeds independently.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/hvault/hvault/internal/importer"
)

// exportNamePattern matches the filenames the export tool writes.
var exportNamePattern = regexp.MustCompile(`(?i)^HealthAutoExport.*\.(zip|json)$`)

// Watcher drives guarded imports of a polled directory.
type Watcher struct {
	imp      *importer.Importer
	dir      string
	interval time.Duration
	log      *slog.Logger
}

// New creates a Watcher polling dir every interval.
func New(imp *importer.Importer, dir string, interval time.Duration, log *slog.Logger) *Watcher {
	return &Watcher{imp: imp, dir: dir, interval: interval, log: log}
}

// TickResult summarizes one poll of the directory.
type TickResult struct {
	Found    int `json:"found"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Run ticks immediately, then on every interval until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("watching directory", "dir", w.dir, "interval", w.interval.String())

	w.runTick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.runTick(ctx)
		}
	}
}

func (w *Watcher) runTick(ctx context.Context) {
	res, err := w.Tick(ctx)
	if err != nil {
		w.log.Error("tick failed", "dir", w.dir, "error", err)
		return
	}
	w.log.Info("tick complete",
		"dir", w.dir, "found", res.Found, "imported", res.Imported, "skipped", res.Skipped)
}

// Tick scans the directory once and imports every new export file. Files
// already in the ledger count as skipped; unreadable or undecodable files
// are skipped with a warning so one corrupt export cannot block the rest of
// the directory; an ingestion failure aborts the tick so nothing
// half-recorded is left behind.
func (w *Watcher) Tick(ctx context.Context) (*TickResult, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("reading watch dir %s: %w", w.dir, err)
	}

	res := &TickResult{}
	for _, entry := range entries {
		if entry.IsDir() || !exportNamePattern.MatchString(entry.Name()) {
			continue
		}
		res.Found++

		path := filepath.Join(w.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			w.log.Warn("skipping unreadable file", "file", path, "error", err)
			res.Skipped++
			continue
		}

		outcome, err := w.imp.ImportBytes(ctx, path, data)
		var decErr *importer.DecodeError
		if errors.As(err, &decErr) {
			w.log.Warn("skipping undecodable file", "file", path, "error", err)
			res.Skipped++
			continue
		}
		if err != nil {
			return nil, err
		}
		if outcome.Skipped {
			res.Skipped++
			continue
		}
		res.Imported++
		w.log.Info("imported export",
			"file", entry.Name(),
			"metrics", outcome.Result.MetricsAdded,
			"sleep", outcome.Result.SleepAdded,
			"workouts", outcome.Result.WorkoutsAdded,
		)
	}
	return res, nil
}
