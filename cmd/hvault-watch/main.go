package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hvault/hvault/internal/config"
	"github.com/hvault/hvault/internal/importer"
	"github.com/hvault/hvault/internal/ingest"
	"github.com/hvault/hvault/internal/ledger"
	"github.com/hvault/hvault/internal/storage"
	"github.com/hvault/hvault/internal/watcher"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dir := flag.String("dir", "", "directory to watch (overrides config)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *dir != "" {
		cfg.Watch.Dir = *dir
	}
	if cfg.Watch.Dir == "" {
		fmt.Fprintf(os.Stderr, "Usage: hvault-watch -config config.yaml [-dir /path/to/exports]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	info, err := os.Stat(cfg.Watch.Dir)
	if err != nil || !info.IsDir() {
		log.Error("watch path does not exist or is not a directory", "path", cfg.Watch.Dir)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
	imp := importer.New(svc, led, cfg.Ingest.Target, "watch", log)
	w := watcher.New(imp, cfg.Watch.Dir, cfg.Watch.Interval(), log)

	if err := w.Run(ctx); err != nil {
		log.Error("watcher stopped", "error", err)
		os.Exit(1)
	}
	log.Info("watcher stopped")
}
