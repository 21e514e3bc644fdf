package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"rfqingest/internal/config"
	"rfqingest/internal/listener"
	"rfqingest/internal/pipeline"
	"rfqingest/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ingestor, brandStore, err := pipeline.NewIngestorFromConfig(cfg, logger)
	must(err)
	if cfg.BrandsPath != "" {
		if err := brandStore.Watch(ctx); err != nil {
			logger.Warn("brand watcher not started, falling back to polling", "error", err)
		}
	}

	conn, err := listener.NewConnector(ctx, cfg, cfg.MailListenerProvider)
	must(err)
	svc := listener.NewService(db, cfg, conn, pipeline.NewProcessingService(db, ingestor, logger), logger)
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
