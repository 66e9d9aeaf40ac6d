// Package publisher delivers audit events to a Store without letting a slow or
// failing sink affect the business operation that produced them.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	audit "immo/pkg/platform/audit"
)

var (
	ErrBufferFull = errors.New("audit buffer full")
	ErrClosed     = errors.New("audit publisher closed")
)

// Metrics counts publisher outcomes. Nil-safe.
type Metrics struct {
	Emitted prometheus.Counter
	Dropped prometheus.Counter
	Failed  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Emitted: f.NewCounter(prometheus.CounterOpts{
			Name: "immo_audit_events_emitted_total",
			Help: "Audit events persisted by the publisher",
		}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "immo_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full",
		}),
		Failed: f.NewCounter(prometheus.CounterOpts{
			Name: "immo_audit_events_failed_total",
			Help: "Audit events the store failed to persist",
		}),
	}
}

func (m *Metrics) incEmitted() {
	if m != nil {
		m.Emitted.Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) incFailed() {
	if m != nil {
		m.Failed.Inc()
	}
}

// Publisher writes events to a store, synchronously by default or through a
// bounded buffer drained by background workers when WithAsyncBuffer is set.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics

	bufferSize int
	workers    int
	queue      chan audit.Event
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous delivery with a buffer of n events.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) { p.bufferSize = n }
}

func WithWorkers(n int) Option {
	return func(p *Publisher) { p.workers = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:   store,
		logger:  slog.New(slog.DiscardHandler),
		workers: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		if p.workers < 1 {
			p.workers = 1
		}
		p.queue = make(chan audit.Event, p.bufferSize)
		for range p.workers {
			p.wg.Add(1)
			go p.run()
		}
	}
	return p
}

// Emit stamps the event and hands it to the store. In async mode it never
// blocks: a full buffer returns ErrBufferFull.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.queue == nil {
		return p.persist(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.metrics.incDropped()
		return ErrBufferFull
	}
}

// Record is the fire-and-forget entry point used by services: failures are
// logged and never returned.
func (p *Publisher) Record(ctx context.Context, event audit.Event) {
	if err := p.Emit(ctx, event); err != nil {
		p.logger.WarnContext(ctx, "audit event not recorded",
			"action", event.Action,
			"subject_type", event.SubjectType,
			"subject_id", event.SubjectID,
			"error", err,
		)
	}
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.incFailed()
		return err
	}
	p.metrics.incEmitted()
	return nil
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.persist(ctx, event); err != nil {
			p.logger.Error("failed to persist audit event",
				"action", event.Action,
				"event_id", event.ID,
				"error", err,
			)
		}
		cancel()
	}
}

// Close stops accepting events and drains the buffer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.queue != nil {
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}
