// Package outbox relays audit rows from the postgres outbox table to Kafka.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"carreg/pkg/platform/audit/store/postgres"
)

const (
	defaultInterval  = 2 * time.Second
	defaultBatchSize = 100
)

// Source yields unpublished outbox rows and records their delivery.
type Source interface {
	FetchUnpublished(ctx context.Context, limit int) ([]postgres.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Producer is the subset of *kgo.Client used by the relay.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Relay polls the outbox and produces each row keyed by its aggregate id,
// so events of one vehicle stay ordered within a partition.
type Relay struct {
	source    Source
	producer  Producer
	topic     string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func NewRelay(source Source, producer Producer, topic string, opts ...Option) *Relay {
	r := &Relay{
		source:    source,
		producer:  producer,
		topic:     topic,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.RelayOnce(ctx); err != nil {
			r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RelayOnce publishes one batch and returns how many rows were marked.
// Rows are marked only after the broker acknowledged the whole batch.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.source.FetchUnpublished(ctx, r.batchSize)
	if err != nil || len(entries) == 0 {
		return 0, err
	}

	records := make([]*kgo.Record, 0, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		records = append(records, &kgo.Record{
			Topic: r.topic,
			Key:   []byte(e.AggregateID),
			Value: e.Payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(e.EventType)},
				{Key: "event_id", Value: []byte(e.ID.String())},
			},
			Timestamp: e.CreatedAt,
		})
		ids = append(ids, e.ID)
	}

	if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return 0, err
	}
	if err := r.source.MarkPublished(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}
