package ledger

import (
	"time"

	"github.com/okian/codevoice/internal/adapters/lock"
	"github.com/okian/codevoice/pkg/logger"
)

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithLocker sets the per-session lock, lock.Local by default.
func WithLocker(l lock.Locker) Option {
	return func(led *Ledger) {
		if l != nil {
			led.locker = l
		}
	}
}

// WithPublisher sets where lifecycle events go.
func WithPublisher(p Publisher) Option {
	return func(led *Ledger) {
		if p != nil {
			led.pub = p
		}
	}
}

// WithLogger sets the ledger logger.
func WithLogger(l logger.Logger) Option {
	return func(led *Ledger) {
		if l != nil {
			led.log = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(led *Ledger) {
		if now != nil {
			led.now = now
		}
	}
}
