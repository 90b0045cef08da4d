package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sink receives audit events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// Publisher stamps and forwards audit events. With an async buffer, events
// are queued and delivered by a background goroutine so domain paths never
// wait on a sink.
type Publisher struct {
	sink   Sink
	logger *slog.Logger

	events chan Event
	wg     sync.WaitGroup
	async  bool
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables async delivery with the given buffer size. A full
// buffer drops events rather than blocking the emitter.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

// WithLogger sets a logger for delivery errors.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher delivering to sink.
func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.deliver()
	}
	return p
}

func (p *Publisher) deliver() {
	defer p.wg.Done()
	for event := range p.events {
		if err := p.sink.Emit(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to deliver audit event",
				"action", event.Action,
				"error", err,
			)
		}
	}
}

// Emit stamps and forwards one event. In async mode it never blocks; events
// are dropped when the buffer is full.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if !p.async {
		return p.sink.Emit(ctx, event)
	}

	select {
	case p.events <- event:
	default:
		if p.logger != nil {
			p.logger.Warn("audit buffer full, dropping event", "action", event.Action)
		}
	}
	return nil
}

// Close drains the async buffer and stops the delivery goroutine.
func (p *Publisher) Close() {
	if p.async {
		close(p.events)
		p.wg.Wait()
	}
}
