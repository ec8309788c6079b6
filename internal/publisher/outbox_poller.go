// Package publisher relays queued outbox events to Kafka.
package publisher

import (
	"context"
	"time"

	"github.com/mogesh-developer/billing-webapp/internal/metrics"
	"github.com/mogesh-developer/billing-webapp/internal/store"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const batchSize = 100

type Repository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*store.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	DeleteProcessedEvents(ctx context.Context, before time.Time) (int64, error)
}

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxPoller struct {
	timeout     time.Duration
	eventTick   time.Duration
	cleanupTick time.Duration
	retention   time.Duration
	repo        Repository
	writer      Writer
	metrics     *metrics.ServerMetrics
	logger      *zap.Logger
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
}

func NewOutboxPoller(repo Repository, writer Writer, m *metrics.ServerMetrics, logger *zap.Logger) *OutboxPoller {
	return &OutboxPoller{
		timeout:     5 * time.Second,
		eventTick:   time.Second,
		cleanupTick: time.Hour,
		retention:   7 * 24 * time.Hour,
		repo:        repo,
		writer:      writer,
		metrics:     m,
		logger:      logger,
	}
}

// Run polls until ctx is done, then closes the writer.
func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	cleanupTicker := time.NewTicker(p.cleanupTick)
	defer eventTicker.Stop()
	defer cleanupTicker.Stop()
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.logger.Warn("failed to close kafka writer", zap.Error(err))
		}
	}()

	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-cleanupTicker.C:
			p.cleanupProcessedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.logger.Error("failed to fetch events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.metrics.OutboxEvents.WithLabelValues("publish_failed").Inc()
			p.logger.Warn("failed to publish event", zap.Int64("event_id", event.ID), zap.Error(err))
			// keep order: later events wait for this one
			return
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.logger.Warn("failed to mark event as processed", zap.Int64("event_id", event.ID), zap.Error(err))
			return
		}
		p.metrics.OutboxEvents.WithLabelValues("published").Inc()
	}
}

func (p *OutboxPoller) cleanupProcessedEvents(ctx context.Context) {
	n, err := p.repo.DeleteProcessedEvents(ctx, time.Now().Add(-p.retention))
	if err != nil {
		p.logger.Warn("failed to clean up outbox", zap.Error(err))
		return
	}
	if n > 0 {
		p.logger.Info("cleaned up outbox", zap.Int64("deleted", n))
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *store.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // bill number
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
		Time: event.CreatedAt,
	}
	return p.writer.WriteMessages(ctx, msg)
}
