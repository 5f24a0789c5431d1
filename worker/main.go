package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/deep-research/internal/bootstrap"
	"github.com/DeafMist/deep-research/internal/config"
	"github.com/DeafMist/deep-research/internal/dedupe"
	"github.com/DeafMist/deep-research/internal/elasticsearch"
	"github.com/DeafMist/deep-research/internal/logger"
	"github.com/DeafMist/deep-research/internal/models"
	"github.com/DeafMist/deep-research/internal/queue"
)

const dlqAttempts = 5

type researcher interface {
	Research(ctx context.Context, query string) (*models.ResearchResult, error)
}

type resultPublisher interface {
	PublishJSON(ctx context.Context, key string, v any, headers ...kafka.Header) error
}

type reportIndexer interface {
	IndexReport(ctx context.Context, doc models.ReportDocument) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	rt, err := bootstrap.Build(&cfg.Pipeline, log, nil)
	if err != nil {
		log.Error("init research runtime", slog.Any("err", err))
		os.Exit(1)
	}
	defer rt.Close()

	results := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaResultTopic)
	defer results.Close()

	proc := &jobProcessor{
		log:     log,
		agent:   rt.Agent,
		results: results,
		seen:    dedupe.NewTracker(cfg.DedupeCapacity, cfg.DedupeTTL),
		now:     time.Now,
	}
	if rt.Archive != nil {
		proc.archive = rt.Archive
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaRequestTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	defer reader.Close()

	dlqTopic := cfg.KafkaRequestTopic + "_dlq"
	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       dlqTopic,
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaRequestTopic),
		slog.String("result_topic", cfg.KafkaResultTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", dlqTopic),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := proc.process(ctx, msg); err != nil {
			if ctx.Err() != nil {
				// leave the offset uncommitted so the job is redelivered
				log.Info("context canceled mid-job, stopping")
				return
			}
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)

			if !sendToDLQ(ctx, log, dlqWriter, msg, err, time.Second) {
				log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// jobProcessor runs one queued research job end to end.
type jobProcessor struct {
	log     *slog.Logger
	agent   researcher
	results resultPublisher
	archive reportIndexer // optional
	seen    *dedupe.Tracker
	now     func() time.Time
}

func (p *jobProcessor) process(ctx context.Context, msg kafka.Message) error {
	var job models.ResearchJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return fmt.Errorf("decode job: %w", err)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	log := p.log.With(slog.String("job_id", job.ID))
	if !p.seen.Claim(job.ID) {
		log.Debug("duplicate job")
		return nil
	}

	result, err := p.agent.Research(ctx, job.Query)
	if err != nil {
		p.seen.Release(job.ID)
		return fmt.Errorf("research job %s: %w", job.ID, err)
	}

	if err := p.results.PublishJSON(ctx, job.ID, models.JobResult{ID: job.ID, Result: result}); err != nil {
		p.seen.Release(job.ID)
		return err
	}

	if p.archive != nil {
		doc := elasticsearch.NewReportDocument(result, p.now().UTC())
		if err := p.archive.IndexReport(ctx, doc); err != nil {
			log.Warn("archive report", slog.String("id", doc.ID), slog.Any("err", err))
		}
	}

	log.Info("job completed",
		slog.String("query", result.Query),
		slog.Int("sources", len(result.Sources)),
	)
	return nil
}

// sendToDLQ writes msg to the dead-letter topic with error context, retrying
// with exponential backoff. It reports whether the write succeeded.
func sendToDLQ(ctx context.Context, log *slog.Logger, w messageWriter, msg kafka.Message, cause error, baseBackoff time.Duration) bool {
	headers := make([]kafka.Header, 0, len(msg.Headers)+4)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
		kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
		kafka.Header{Key: "error", Value: []byte(cause.Error())},
		kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
	)
	dlqMsg := kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}

	for attempt := range dlqAttempts {
		dlqErr := w.WriteMessages(ctx, dlqMsg)
		if dlqErr == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}

		backoff := baseBackoff * time.Duration(1<<uint(attempt))
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", dlqErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			log.Info("context canceled during DLQ retry")
			return false
		}
	}
	return false
}
