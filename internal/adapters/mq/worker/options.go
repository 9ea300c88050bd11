package worker

import (
	"time"

	"github.com/okian/codevoice/pkg/logger"
)

// Option configures an InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName names the worker in logs.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets the worker logger.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDeliverTimeout bounds each sink delivery so a stalled broker cannot
// hold a worker. Zero leaves deliveries bounded only by the run context.
func WithDeliverTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d > 0 {
			w.deliverTimeout = d
		}
	}
}
