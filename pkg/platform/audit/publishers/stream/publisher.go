// Package stream mirrors recorded audit entries to an external event stream
// for SIEM consumption.
//
// Publication is fire-and-forget. The durable audit store stays the source of
// truth; entries the mirror cannot deliver are logged and counted, never
// retried into the request path.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"time"

	audit "medgate/pkg/platform/audit"
)

// Sink delivers a batch of entries to the stream.
type Sink interface {
	Publish(ctx context.Context, entries []audit.Entry) error
}

// DropRecorder counts entries the mirror gave up on.
type DropRecorder interface {
	IncAuditMirrorDropped()
}

// ErrCircuitOpen reports that the mirror is shedding entries while the broker
// recovers.
var ErrCircuitOpen = errors.New("audit mirror circuit open")

const (
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
	defaultFlushTimeout  = 5 * time.Second
)

// Publisher buffers entries and ships them to a Sink from a background loop.
type Publisher struct {
	sink     Sink
	buffer   *RingBuffer
	breaker  *CircuitBreaker
	logger   *slog.Logger
	drops    DropRecorder
	batch    int
	interval time.Duration
	wake     chan struct{}
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m DropRecorder) Option {
	return func(p *Publisher) {
		p.drops = m
	}
}

// WithBufferSize bounds how many undelivered entries are held in memory.
func WithBufferSize(n int) Option {
	return func(p *Publisher) {
		p.buffer = NewRingBuffer(n)
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(p *Publisher) {
		if cb != nil {
			p.breaker = cb
		}
	}
}

func New(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:     sink,
		buffer:   NewRingBuffer(0),
		breaker:  NewCircuitBreaker(0, 0),
		logger:   slog.Default(),
		batch:    defaultBatchSize,
		interval: defaultFlushInterval,
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish queues entry without blocking.
func (p *Publisher) Publish(ctx context.Context, entry audit.Entry) {
	if p.buffer.Enqueue(entry) {
		p.dropped(ctx, 1, "buffer full")
	}
	if p.buffer.Len() >= p.batch {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
}

// Run ships batches until ctx is cancelled, then makes a final bounded
// attempt to drain what is left.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultFlushTimeout)
			p.Flush(drainCtx)
			cancel()
			return nil
		case <-ticker.C:
			p.Flush(ctx)
		case <-p.wake:
			p.Flush(ctx)
		}
	}
}

// Flush publishes everything currently buffered.
func (p *Publisher) Flush(ctx context.Context) {
	for p.buffer.Len() > 0 {
		batch := p.buffer.DequeueBatch(p.batch)
		if !p.breaker.Allow() {
			p.dropped(ctx, len(batch), "circuit open")
			continue
		}
		if err := p.sink.Publish(ctx, batch); err != nil {
			if p.breaker.RecordFailure() {
				p.logger.WarnContext(ctx, "audit mirror circuit opened", "error", err)
			}
			p.dropped(ctx, len(batch), "publish failed")
			p.logger.WarnContext(ctx, "audit mirror publish failed", "entries", len(batch), "error", err)
			return
		}
		p.breaker.RecordSuccess()
	}
}

// Health fails while the breaker is open. A broker that answers pings but
// rejects batches still reads as down.
func (p *Publisher) Health(context.Context) error {
	if p.breaker.IsOpen() {
		return ErrCircuitOpen
	}
	return nil
}

func (p *Publisher) dropped(ctx context.Context, n int, reason string) {
	p.logger.DebugContext(ctx, "audit mirror dropped entries", "count", n, "reason", reason)
	if p.drops == nil {
		return
	}
	for range n {
		p.drops.IncAuditMirrorDropped()
	}
}
