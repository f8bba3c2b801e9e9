// Package events delivers claim lifecycle events to downstream consumers
// without ever blocking the engine.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/freelanceshield/claims-engine/internal/service/claims"
)

const defaultQueueSize = 1024

// Handler consumes a single event. Handlers run on the publisher's
// worker goroutine and must not block indefinitely.
type Handler func(ctx context.Context, event claims.Event)

// Publisher is an asynchronous claims.EventSink. Events are queued on a
// bounded channel and fanned out to handlers by a single worker. When
// the queue is full the event is dropped and counted; lifecycle events
// are advisory and never gate engine correctness.
type Publisher struct {
	logger   *zap.Logger
	queue    chan claims.Event
	handlers []Handler

	dropped atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithQueueSize overrides the default queue capacity.
func WithQueueSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.queue = make(chan claims.Event, n)
		}
	}
}

// WithHandler registers an additional consumer for every event.
func WithHandler(h Handler) Option {
	return func(p *Publisher) {
		p.handlers = append(p.handlers, h)
	}
}

// NewPublisher starts the delivery worker. Close must be called to
// drain the queue on shutdown.
func NewPublisher(logger *zap.Logger, opts ...Option) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Publisher{
		logger: logger,
		queue:  make(chan claims.Event, defaultQueueSize),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Publish enqueues the event, dropping it if the queue is full or the
// publisher has been closed.
func (p *Publisher) Publish(ctx context.Context, event claims.Event) {
	select {
	case <-p.done:
		p.dropped.Add(1)
		return
	default:
	}
	select {
	case p.queue <- event:
	default:
		p.dropped.Add(1)
		p.logger.Warn("event queue full, dropping event",
			zap.String("type", string(event.Type)),
			zap.String("claim_id", event.ClaimID.String()),
		)
	}
}

// Dropped reports how many events were discarded since start.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close stops accepting events, drains anything already queued and
// waits for the worker to finish.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

func (p *Publisher) run() {
	defer p.wg.Done()
	ctx := context.Background()
	for {
		select {
		case event := <-p.queue:
			p.deliver(ctx, event)
		case <-p.done:
			// Drain whatever was queued before shutdown.
			for {
				select {
				case event := <-p.queue:
					p.deliver(ctx, event)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, event claims.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshaling event", zap.Error(err))
		return
	}
	p.logger.Info("claim event",
		zap.String("type", string(event.Type)),
		zap.String("claim_id", event.ClaimID.String()),
		zap.ByteString("payload", payload),
	)
	for _, h := range p.handlers {
		h(ctx, event)
	}
}
