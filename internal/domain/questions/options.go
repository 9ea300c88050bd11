package questions

import "github.com/okian/codevoice/pkg/logger"

// Option applies a configuration option to the Bank.
type Option func(*Bank)

// WithLogger sets the bank logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Bank) {
		if l != nil {
			b.log = l
		}
	}
}

// WithRandom replaces the uniform index source, mainly for tests.
func WithRandom(intn func(n int) int) Option {
	return func(b *Bank) {
		if intn != nil {
			b.intn = intn
		}
	}
}
