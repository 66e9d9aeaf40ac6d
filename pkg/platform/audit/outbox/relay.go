// Package outbox moves audit events from the PostgreSQL outbox to Kafka.
package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"immo/pkg/platform/audit/store/postgres"
	"immo/pkg/platform/circuit"
	txcontext "immo/pkg/platform/tx"
)

// Publisher sends one keyed record downstream.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type Relay struct {
	db        *sql.DB
	store     *postgres.Store
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	breaker   *circuit.Breaker
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) { r.interval = d }
}

func WithBatchSize(n int) Option {
	return func(r *Relay) { r.batchSize = n }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Relay) { r.breaker = b }
}

func NewRelay(db *sql.DB, store *postgres.Store, publisher Publisher, opts ...Option) *Relay {
	r := &Relay{
		db:        db,
		store:     store,
		publisher: publisher,
		logger:    slog.New(slog.DiscardHandler),
		interval:  time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = circuit.New("audit-outbox")
	}
	return r
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.RunOnce(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				r.logger.ErrorContext(ctx, "outbox relay batch failed", "error", err)
				continue
			}
			if n > 0 {
				r.logger.DebugContext(ctx, "outbox relay published batch", "count", n)
			}
		}
	}
}

// RunOnce publishes one batch. Entries are marked published only if every
// record in the batch was acknowledged; otherwise the batch is retried whole
// and consumers deduplicate on event id. While the breaker is open each run
// probes the publisher with a single entry.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	limit := r.batchSize
	if r.breaker.IsOpen() {
		limit = 1
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	txCtx := txcontext.WithTx(ctx, tx)

	entries, err := r.store.ClaimBatch(txCtx, limit)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if err := r.publisher.Publish(ctx, e.SubjectID, e.Payload); err != nil {
			if _, change := r.breaker.RecordFailure(); change.Opened {
				r.logger.WarnContext(ctx, "outbox publisher degraded, probing with single entries",
					"breaker", r.breaker.Name(),
					"error", err,
				)
			}
			return 0, err
		}
		ids = append(ids, e.ID)
	}
	if err := r.store.MarkPublished(txCtx, ids, time.Now()); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox tx: %w", err)
	}
	if len(ids) > 0 {
		if _, change := r.breaker.RecordSuccess(); change.Closed {
			r.logger.InfoContext(ctx, "outbox publisher recovered", "breaker", r.breaker.Name())
		}
	}
	return len(ids), nil
}
