package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeafMist/deep-research/internal/config"
	"github.com/DeafMist/deep-research/internal/elasticsearch"
	"github.com/DeafMist/deep-research/internal/logger"
)

const (
	connectAttempts = 10
	maxRetryDelay   = 30 * time.Second
)

type reportPurger interface {
	DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

func main() {
	log := logger.New("retention")
	cfg, err := config.LoadRetention()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var archive *elasticsearch.Client
	err = retryWithBackoff(ctx, log, connectAttempts, 2*time.Second, func(ctx context.Context) error {
		client, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx); err != nil {
			return err
		}
		archive = client
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("shutdown signal received during startup")
			return
		}
		log.Error("failed to connect to elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("connected to elasticsearch")

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info("retention job running",
		slog.String("index", cfg.ElasticsearchIndex),
		slog.Duration("interval", cfg.Interval),
		slog.Duration("max_age", cfg.MaxAge),
	)

	// Run immediately on start; a failed run is retried on the next tick.
	runOnce(ctx, log, archive, cfg)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		case <-ticker.C:
			runOnce(ctx, log, archive, cfg)
		}
	}
}

// retryWithBackoff calls connect until it succeeds, doubling the delay between
// attempts up to maxRetryDelay.
func retryWithBackoff(ctx context.Context, log *slog.Logger, attempts int, delay time.Duration, connect func(context.Context) error) error {
	var lastErr error
	for i := range attempts {
		if lastErr = connect(ctx); lastErr == nil {
			return nil
		}
		log.Warn("elasticsearch not ready, retrying",
			slog.Any("err", lastErr),
			slog.Int("attempt", i+1),
			slog.Int("max_retries", attempts),
			slog.Duration("retry_in", delay),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)
}

// runOnce deletes archived reports older than cfg.MaxAge and returns how many went.
func runOnce(ctx context.Context, log *slog.Logger, archive reportPurger, cfg *config.Retention) int64 {
	subCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	deleted, err := archive.DeleteOlderThan(subCtx, cfg.MaxAge, cfg.BatchSize)
	if err != nil {
		log.Warn("retention run failed (will retry on next interval)", slog.Any("err", err))
		return 0
	}

	if deleted > 0 {
		log.Info("retention run completed", slog.Int64("deleted_reports", deleted))
	} else {
		log.Debug("retention run completed, no expired reports found")
	}
	return deleted
}
