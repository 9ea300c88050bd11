package policy

import "github.com/okian/codevoice/pkg/logger"

// Option applies a configuration option to the Policy.
type Option func(*Policy)

// WithTemperature sets the sampling temperature for replies.
func WithTemperature(t float64) Option {
	return func(p *Policy) {
		if t >= 0 {
			p.temperature = t
		}
	}
}

// WithLogger sets the policy logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Policy) {
		if l != nil {
			p.log = l
		}
	}
}
