// Package importer ingests export files from disk: plain JSON exports or
// zip archives wrapping one. Every file passes the duplicate-delivery guard
// first, and is recorded there only after the whole payload committed, so a
// re-imported or re-polled file is a cheap no-op and a failed import leaves
// the file eligible for retry.
package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/hvault/hvault/internal/ingest"
	"github.com/hvault/hvault/internal/ledger"
	"github.com/hvault/hvault/internal/models"
)

// exportJSONPattern matches the payload entry inside a zip export.
var exportJSONPattern = regexp.MustCompile(`(?i)HealthAutoExport.*\.json$`)

// Importer performs guarded one-shot file imports.
type Importer struct {
	svc        *ingest.Service
	led        *ledger.Ledger
	log        *slog.Logger
	target     string
	automation string
}

// New creates an Importer. The automation name is recorded on every sync
// event this importer produces, so watch-driven and manual imports stay
// distinguishable in the sync log.
func New(svc *ingest.Service, led *ledger.Ledger, target, automation string, log *slog.Logger) *Importer {
	return &Importer{svc: svc, led: led, log: log, target: target, automation: automation}
}

// DecodeError reports a file whose bytes could not be decoded into a
// payload. Callers scanning a directory can skip the file and keep going;
// everything after decoding still fails the import outright.
type DecodeError struct {
	File string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("undecodable export %s: %v", e.File, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// Outcome reports what happened to one file.
type Outcome struct {
	File    string         `json:"file"`
	Hash    string         `json:"hash"`
	Skipped bool           `json:"skipped"`
	Result  *ingest.Result `json:"added,omitempty"`
}

// ImportFile ingests one export file. A file whose content hash is already
// in the ledger is skipped without touching the orchestrator.
func (imp *Importer) ImportFile(ctx context.Context, path string) (*Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return imp.ImportBytes(ctx, path, data)
}

// ImportBytes ingests raw export bytes read from the named file.
func (imp *Importer) ImportBytes(ctx context.Context, path string, data []byte) (*Outcome, error) {
	hash := ledger.HashBytes(data)

	seen, err := imp.led.Seen(hash)
	if err != nil {
		return nil, err
	}
	if seen {
		imp.log.Info("skipping file: already imported", "file", path, "hash", hash)
		return &Outcome{File: path, Hash: hash, Skipped: true}, nil
	}

	payload, err := DecodePayload(data, path)
	if err != nil {
		return nil, &DecodeError{File: path, Err: err}
	}

	automationPeriod := "manual"
	res, err := imp.svc.Ingest(ctx, payload, ingest.Options{
		Target:           imp.target,
		AutomationName:   &imp.automation,
		AutomationPeriod: &automationPeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("ingesting %s: %w", path, err)
	}

	// Record only after the ingestion committed; a failed import must stay
	// retryable.
	if err := imp.led.Record(path, hash, res); err != nil {
		return nil, err
	}

	return &Outcome{File: path, Hash: hash, Result: res}, nil
}

// DecodePayload decodes raw export bytes into a payload. Files named *.zip
// are opened as archives and the HealthAutoExport JSON entry inside is used.
func DecodePayload(data []byte, name string) (*models.Payload, error) {
	if strings.HasSuffix(strings.ToLower(name), ".zip") {
		return decodeZip(data)
	}

	var payload models.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	if payload.Data == nil {
		return nil, fmt.Errorf("%s: %w", name, ingest.ErrMalformedPayload)
	}
	return &payload, nil
}

func decodeZip(data []byte) (*models.Payload, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening zip export: %w", err)
	}

	for _, f := range zr.File {
		if !exportJSONPattern.MatchString(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening zip entry %s: %w", f.Name, err)
		}
		entry, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading zip entry %s: %w", f.Name, err)
		}

		var payload models.Payload
		if err := json.Unmarshal(entry, &payload); err != nil {
			return nil, fmt.Errorf("decoding zip entry %s: %w", f.Name, err)
		}
		if payload.Data == nil {
			return nil, fmt.Errorf("zip entry %s: %w", f.Name, ingest.ErrMalformedPayload)
		}
		return &payload, nil
	}
	return nil, fmt.Errorf("no HealthAutoExport JSON entry in zip: %w", ingest.ErrMalformedPayload)
}
