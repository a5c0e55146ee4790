// Package outbox relays recorded verification results from the Postgres
// outbox table to Kafka. Delivery is at-least-once: a row is marked published
// only after the broker acknowledged it.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"faceverify/internal/verification/metrics"
)

// Publisher delivers one record to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

const (
	DefaultInterval  = time.Second
	DefaultBatchSize = 100
)

const claimBatch = `
	SELECT id::text, aggregate_id, event_type, payload
	FROM outbox
	WHERE published_at IS NULL
	ORDER BY created_at
	LIMIT $1
	FOR UPDATE SKIP LOCKED
`

const markPublished = `
	UPDATE outbox SET published_at = NOW() WHERE id = ANY($1::uuid[])
`

type entry struct {
	ID          string
	AggregateID string
	EventType   string
	Payload     []byte
}

// Relay polls the outbox and publishes pending rows in creation order.
// Several relays may run against one database; SKIP LOCKED keeps them off
// each other's rows.
type Relay struct {
	pool      *pgxpool.Pool
	publisher Publisher
	topic     string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func New(pool *pgxpool.Pool, publisher Publisher, topic string, opts ...Option) (*Relay, error) {
	if pool == nil {
		return nil, errors.New("pgx pool is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	r := &Relay{
		pool:      pool,
		publisher: publisher,
		topic:     topic,
		interval:  DefaultInterval,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run relays until ctx is cancelled. Tick errors are logged and retried on
// the next interval.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// drain a backlog without waiting for the next tick
			for {
				n, err := r.Tick(ctx)
				if err != nil {
					if ctx.Err() == nil && r.logger != nil {
						r.logger.ErrorContext(ctx, "outbox relay tick failed", "error", err)
					}
					break
				}
				if n < r.batchSize {
					break
				}
			}
		}
	}
}

// Tick publishes one batch and reports how many rows it marked published.
// Publishing stops at the first failure so per-key order is preserved; the
// remaining rows stay pending for the next tick.
func (r *Relay) Tick(ctx context.Context) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, claimBatch, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim outbox batch: %w", err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[entry])
	if err != nil {
		return 0, fmt.Errorf("read outbox batch: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	published := make([]string, 0, len(entries))
	var publishErr error
	for _, e := range entries {
		if err := r.publisher.Publish(ctx, r.topic, []byte(e.AggregateID), e.Payload); err != nil {
			publishErr = fmt.Errorf("publish outbox entry %s: %w", e.ID, err)
			r.metrics.IncrementOutboxPublished("failed", 1)
			if r.logger != nil {
				r.logger.WarnContext(ctx, "outbox publish failed",
					"entry_id", e.ID,
					"event_type", e.EventType,
					"error", err,
				)
			}
			break
		}
		published = append(published, e.ID)
	}

	if len(published) > 0 {
		if _, err := tx.Exec(ctx, markPublished, published); err != nil {
			return 0, fmt.Errorf("mark outbox entries published: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return 0, fmt.Errorf("commit outbox tx: %w", err)
		}
		r.metrics.IncrementOutboxPublished("published", len(published))
	}

	return len(published), publishErr
}
