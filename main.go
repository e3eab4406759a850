// Package main wires the tribunal notification service: case events arrive
// over HTTP or a message queue, get classified and resolved into per-recipient
// instructions, and are dispatched immediately or parked as scheduled jobs.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"

	"tribunal-notifier/dispatch"
	"tribunal-notifier/engine"
	"tribunal-notifier/hours"
	"tribunal-notifier/provider"
	"tribunal-notifier/queue"
	"tribunal-notifier/schedule"
	"tribunal-notifier/server"
	"tribunal-notifier/storage"
)

const schedulerInterval = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	window, err := newWindow()
	if err != nil {
		logger.Error("Invalid business-hours configuration", "error", err)
		os.Exit(1)
	}

	prov := newProvider(logger)
	dispatcher := dispatch.New(prov, logger)
	scheduler := schedule.New(schedule.RealClock(), store, logger)

	eng := engine.New(&engine.Config{
		Scheduler:  scheduler,
		Dispatcher: dispatcher,
		Snapshots:  store,
		Window:     window,
		Clock:      schedule.RealClock(),
		Logger:     logger,
	})
	scheduler.SetFirer(eng.OnFire)

	if err := scheduler.Restore(ctx); err != nil {
		logger.Error("Failed to restore scheduled jobs", "error", err)
		os.Exit(1)
	}
	go scheduler.Run(ctx, schedulerInterval)

	if url := os.Getenv("AMQP_URL"); url != "" {
		exchange := envOr("AMQP_EXCHANGE", "case-events")
		consumer, err := queue.New(url, exchange, eng, logger)
		if err != nil {
			logger.Error("Failed to start queue consumer", "url", url, "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := consumer.Close(); err != nil {
				logger.Warn("Failed to close queue consumer", "error", err)
			}
		}()
		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Queue consumer stopped", "error", err)
			}
		}()
	}

	srv := server.New(&server.Config{
		Engine:    eng,
		Scheduler: scheduler,
		Snapshots: store,
		Logger:    logger,
	})

	port := envOr("PORT", "8080")
	if err := srv.ListenAndServe(port); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// newStore picks local filesystem storage when LOCAL_STORAGE is set, otherwise
// a GCS bucket named by STORAGE_BUCKET.
func newStore(ctx context.Context, logger *slog.Logger) (*storage.Store, error) {
	if localPath := os.Getenv("LOCAL_STORAGE"); localPath != "" {
		logger.Info("Using local storage", "path", localPath)
		if err := os.MkdirAll(localPath, 0o750); err != nil {
			return nil, err
		}
		return storage.New(nil, "", localPath, logger), nil
	}

	bucket := envOr("STORAGE_BUCKET", "tribunal-notifier-jobs")
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Using bucket storage", "bucket", bucket)
	return storage.New(client, bucket, "", logger), nil
}

// newWindow builds the out-of-hours gate from HOURS_START, HOURS_END and
// HOURS_TZ, defaulting to 09:00-17:00 UK time on weekdays.
func newWindow() (*hours.Window, error) {
	return hours.NewWindow(
		envOr("HOURS_START", "09:00"),
		envOr("HOURS_END", "17:00"),
		envOr("HOURS_TZ", "Europe/London"),
		hours.DefaultWeekdays,
	)
}

// newProvider uses the real notification gateway when credentials are
// configured, otherwise a mock that only logs.
func newProvider(logger *slog.Logger) provider.Provider {
	baseURL := os.Getenv("PROVIDER_BASE_URL")
	apiKey := os.Getenv("PROVIDER_API_KEY")
	if baseURL == "" || apiKey == "" {
		logger.Warn("No provider credentials configured, using mock provider")
		return provider.NewMockProvider(logger)
	}
	return provider.NewHTTP(baseURL, apiKey, os.Getenv("PROVIDER_SMS_SENDER"), logger)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
