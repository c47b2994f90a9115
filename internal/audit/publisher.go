package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// appendTimeout bounds each background write so a stuck sink cannot hold the
// drain on Close forever.
const appendTimeout = 5 * time.Second

// Publisher records consent audit events into a Store, either inline or
// through a bounded buffer drained by one goroutine.
type Publisher struct {
	store   Store
	logger  *slog.Logger
	events  chan Event
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer queues up to size events and persists them in the
// background. A size of zero keeps emission synchronous.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
		}
	}
}

// WithPublisherLogger sets the logger for background failures and drops.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}
	if p.events != nil {
		p.wg.Go(p.drain)
	}
	return p
}

func (p *Publisher) drain() {
	for event := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		err := p.store.Append(ctx, event)
		cancel()
		if err != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"principal", event.Principal,
			)
		}
	}
}

// Emit records event, stamping it when Timestamp is zero. In async mode a
// full buffer drops the event rather than blocking the consent operation;
// after Close events are written inline.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.events == nil || p.closed {
		return p.store.Append(ctx, event)
	}
	select {
	case p.events <- event:
	default:
		p.dropped.Add(1)
		p.logger.Warn("audit buffer full, event dropped",
			"action", event.Action,
			"principal", event.Principal,
		)
	}
	return nil
}

// Dropped reports how many events a full buffer discarded.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close stops accepting buffered events and waits for the queue to drain.
// It is safe to call more than once.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed || p.events == nil {
		p.closed = true
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()
	p.wg.Wait()
}

// List returns the events recorded for a hashed principal.
func (p *Publisher) List(ctx context.Context, principal string) ([]Event, error) {
	lister, ok := p.store.(Lister)
	if !ok {
		return nil, ErrNotListable
	}
	return lister.ListByPrincipal(ctx, principal)
}
