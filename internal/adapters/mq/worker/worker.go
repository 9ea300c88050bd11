// Package worker dispatches queued interview events to their sinks.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/codevoice/internal/adapters/mq/queue"
	"github.com/okian/codevoice/pkg/logger"
	"github.com/okian/codevoice/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Event abstracts what workers read off the queue.
type Event = queue.Event

// Sink receives dispatched events, e.g. a log or a message broker.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker delivers events to every sink.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown stops the worker without waiting for the queue to drain.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue Queue
	sinks []Sink
	name  string

	shutdown chan struct{}
	done     chan struct{}

	deliverTimeout time.Duration
	logger         logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, sinks []Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		sinks:    sinks,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	eventChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if err := w.dispatch(ctx, event); err != nil {
				w.logger.Error(ctx, "error dispatching event", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// dispatch delivers to every sink; one failing sink does not starve the others.
func (w *InMemoryWorker) dispatch(ctx context.Context, event Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordDispatchLatency(float64(time.Since(start).Milliseconds()))
	}()

	var errs []error
	for _, s := range w.sinks {
		if err := w.deliver(ctx, s, event); err != nil {
			metrics.RecordDispatchError(s.Name())
			errs = append(errs, fmt.Errorf("sink %s: event %s: %w", s.Name(), event.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (w *InMemoryWorker) deliver(ctx context.Context, s Sink, event Event) error { //nolint:gocritic // hugeParam: mirrors dispatch
	if w.deliverTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.deliverTimeout)
		defer cancel()
	}
	return s.Deliver(ctx, event)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. A non-positive count uses runtime.NumCPU.
// opts apply to every worker after its name and logger.
func NewPool(workerCount int, queue Queue, sinks []Sink, log logger.Logger, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	if log == nil {
		log = logger.Nop()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  log,
	}

	for i := range workerCount {
		workerOpts := append([]Option{
			WithLogger(log),
			WithName("worker-" + strconv.Itoa(i)),
		}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, sinks, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
// Workers still busy when ctx (or the pool timeout) expires are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool drain: %w", shutdownCtx.Err())
	}
	return nil
}
