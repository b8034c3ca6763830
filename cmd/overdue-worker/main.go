package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"scadenze/internal/amqp"
	"scadenze/internal/backend"
	"scadenze/internal/config"
	applog "scadenze/internal/log"
	"scadenze/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.FromEnv("overdue-worker"))
	applog.SetDefault(logger)

	logger.Info("Starting overdue-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	res, err := backend.Open(cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	}()

	processor := services.NewOverdueProcessor(res.Store, res.Events)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run := func() {
		start := time.Now()
		count, err := processor.ProcessOverdue(ctx, start)
		if err != nil {
			logger.Error("Overdue scan failed", "error", err)
			return
		}
		logger.Info("Overdue scan complete",
			"payments_created", count,
			"duration_ms", time.Since(start).Milliseconds())
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.OverdueScanSpec, run); err != nil {
		logger.Error("Invalid overdue scan schedule", "spec", cfg.OverdueScanSpec, "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Catch up on anything missed while the worker was down.
		logger.Info("Running initial overdue scan...")
		run()
		return nil
	})

	if res.Events != nil {
		// Schedule events from the API trigger a prompt scan instead of
		// waiting for the next cron tick. Scans are idempotent, so the
		// worker's own overdue events are skipped rather than debounced.
		g.Go(func() error {
			err := res.Events.ConsumeScheduleEvents(gctx, func(ev *amqp.ScheduleEvent) error {
				if ev.Type == amqp.EventPaymentOverdue {
					return nil
				}
				_, err := processor.ProcessOverdue(gctx, time.Now())
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		logger.Info("Overdue scan scheduled", "spec", cfg.OverdueScanSpec)
		scheduler.Start()
		<-gctx.Done()

		stopCtx := scheduler.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(cfg.ShutdownTimeout):
			logger.Warn("Shutdown timeout reached waiting for running scan")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Overdue-worker shutdown complete")
}
