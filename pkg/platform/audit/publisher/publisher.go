// Package publisher delivers audit events to an audit.Store, either inline
// or through a bounded asynchronous buffer.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "carreg/pkg/platform/audit"
)

// ErrBufferFull is returned when the async buffer cannot take another event.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher writes events to a store. In async mode Emit enqueues and a
// single goroutine persists; Close drains whatever is still queued.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	buffer int
	queue  chan audit.Event
	wg     sync.WaitGroup

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

type Option func(*Publisher)

// WithAsyncBuffer enables async mode with a queue of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.buffer = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer > 0 {
		p.queue = make(chan audit.Event, p.buffer)
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit records event. Missing timestamps and categories are filled in.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.queue == nil {
		return p.store.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return p.store.Append(ctx, event)
	}

	select {
	case p.queue <- event:
		return nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrBufferFull
}

// List returns the events recorded for subject.
func (p *Publisher) List(ctx context.Context, subject string) ([]audit.Event, error) {
	return p.store.ListBySubject(ctx, subject)
}

// Close stops accepting async events and waits until the queue is drained.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.queue == nil {
			return
		}
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.queue {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("failed to persist audit event",
				"action", event.Action,
				"subject", event.Subject,
				"error", err,
			)
		}
	}
}
