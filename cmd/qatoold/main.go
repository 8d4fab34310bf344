package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kwalker7631/kyo-qa-tool/internal/archive"
	"github.com/kwalker7631/kyo-qa-tool/internal/common"
	"github.com/kwalker7631/kyo-qa-tool/internal/core"
	"github.com/kwalker7631/kyo-qa-tool/internal/core/async"
	"github.com/kwalker7631/kyo-qa-tool/internal/export"
	"github.com/kwalker7631/kyo-qa-tool/internal/job"
	"github.com/kwalker7631/kyo-qa-tool/internal/observability"
	"github.com/kwalker7631/kyo-qa-tool/internal/ocr"
	"github.com/kwalker7631/kyo-qa-tool/internal/patterns"
	"github.com/kwalker7631/kyo-qa-tool/internal/server"
)

func main() {
	// .env is optional; real env always wins.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	patternStore, err := patterns.NewStore(cfg.Patterns.Path, logger)
	if err != nil {
		logger.Error("failed to open pattern store", "error", err)
		os.Exit(1)
	}

	resolver := archive.NewResolver(cfg.Processing.WorkDir, logger)
	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext: cfg.OCR.Pdftotext,
		Pdftoppm:  cfg.OCR.Pdftoppm,
		Tesseract: cfg.OCR.Tesseract,
		Language:  cfg.OCR.Language,
		DPI:       cfg.OCR.DPI,
		MaxPages:  cfg.OCR.MaxPages,
	}, logger)
	reports := export.NewService(cfg.Processing.OutputDir, logger)
	metrics := observability.NewCollector(prometheus.DefaultRegisterer)
	store := job.NewStore(cfg.Processing.MaxJobLog, logger)

	proc := core.NewProcessor(logger, resolver, extractor, patternStore, reports, store, metrics)
	queue := async.NewProcessorQueue(proc, store, metrics, logger,
		async.WithWorkers(cfg.Processing.Workers),
		async.WithQueueSize(cfg.Processing.QueueSize),
		async.WithJobTimeout(cfg.Processing.JobTimeout),
	)

	svc := server.New(server.Options{
		Logger:   logger,
		Config:   cfg.Server,
		WorkDir:  cfg.Processing.WorkDir,
		Launcher: queue,
		Store:    store,
		Patterns: patternStore,
		Resolver: resolver,
	})

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: svc.Routes(),
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped.")
}
