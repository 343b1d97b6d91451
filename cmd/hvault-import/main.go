package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/hvault/hvault/internal/config"
	"github.com/hvault/hvault/internal/importer"
	"github.com/hvault/hvault/internal/ingest"
	"github.com/hvault/hvault/internal/ledger"
	"github.com/hvault/hvault/internal/storage"
)

var exportNamePattern = regexp.MustCompile(`(?i)^HealthAutoExport.*\.(zip|json)$`)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	path := flag.String("path", "", "export file or directory of exports (required)")
	target := flag.String("target", "", "override the configured target tag")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *path == "" {
		fmt.Fprintf(os.Stderr, "Usage: hvault-import -config config.yaml -path export.json [-target name]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *target != "" {
		cfg.Ingest.Target = *target
	}

	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	led, err := ledger.Open(cfg.Ingest.LedgerDir)
	if err != nil {
		log.Error("failed to open import ledger", "error", err)
		os.Exit(1)
	}
	defer led.Close()

	svc := ingest.New(db, log)
	imp := importer.New(svc, led, cfg.Ingest.Target, "file-import", log)

	files, err := collectFiles(*path)
	if err != nil {
		log.Error("resolving import path", "path", *path, "error", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		log.Warn("no export files found", "path", *path)
		return
	}

	imported, skipped := 0, 0
	for _, f := range files {
		outcome, err := imp.ImportFile(ctx, f)
		if err != nil {
			log.Error("import failed", "file", f, "error", err)
			os.Exit(1)
		}
		if outcome.Skipped {
			skipped++
			continue
		}
		imported++
		log.Info("imported",
			"file", f,
			"metrics", outcome.Result.MetricsAdded,
			"sleep", outcome.Result.SleepAdded,
			"workouts", outcome.Result.WorkoutsAdded,
		)
	}
	log.Info("import complete", "imported", imported, "skipped", skipped)
}

// collectFiles resolves the -path flag: a single file is imported as-is, a
// directory contributes every export-named file inside it.
func collectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !exportNamePattern.MatchString(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	return files, nil
}
