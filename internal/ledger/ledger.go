// Package ledger is the duplicate-delivery guard for file-based ingestion.
// It keys on a sha256 of the raw export bytes, so the same physical file is
// never processed twice no matter which entry point (one-shot import or
// directory watch) sees it, or how often. The filename is recorded for
// display only and plays no part in identity.
package ledger

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hvault/hvault/internal/ingest"
)

// Ledger is the append-once import ledger, stored in a local SQLite file.
type Ledger struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at dir/ledger.db.
func Open(dir string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "ledger.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening ledger db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS import_ledger (
		file_hash      TEXT PRIMARY KEY,
		filename       TEXT NOT NULL,
		imported_at    TEXT NOT NULL,
		metrics_added  INTEGER NOT NULL,
		sleep_added    INTEGER NOT NULL,
		workouts_added INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger table: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Seen reports whether an export with this content hash was already ingested.
func (l *Ledger) Seen(hash string) (bool, error) {
	var count int
	err := l.db.QueryRow(
		`SELECT COUNT(*) FROM import_ledger WHERE file_hash = ?`, hash,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking ledger: %w", err)
	}
	return count > 0, nil
}

// Record marks a hash as processed. Insert-if-absent: a second call with the
// same hash is a silent no-op and never overwrites the first entry's counts.
func (l *Ledger) Record(filename, hash string, res *ingest.Result) error {
	_, err := l.db.Exec(
		`INSERT OR IGNORE INTO import_ledger (file_hash, filename, imported_at, metrics_added, sleep_added, workouts_added)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		hash, filename, time.Now().UTC().Format(time.RFC3339),
		res.MetricsAdded, res.SleepAdded, res.WorkoutsAdded)
	if err != nil {
		return fmt.Errorf("recording import: %w", err)
	}
	return nil
}

// Entry is one ledger row.
type Entry struct {
	Hash          string
	Filename      string
	ImportedAt    string
	MetricsAdded  int
	SleepAdded    int
	WorkoutsAdded int
}

// Get returns the entry for a hash, or nil if the hash is unseen.
func (l *Ledger) Get(hash string) (*Entry, error) {
	var e Entry
	err := l.db.QueryRow(
		`SELECT file_hash, filename, imported_at, metrics_added, sleep_added, workouts_added
		 FROM import_ledger WHERE file_hash = ?`, hash,
	).Scan(&e.Hash, &e.Filename, &e.ImportedAt, &e.MetricsAdded, &e.SleepAdded, &e.WorkoutsAdded)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger entry: %w", err)
	}
	return &e, nil
}

// Close closes the ledger database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// HashBytes computes the hex sha256 content hash of a raw export.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
