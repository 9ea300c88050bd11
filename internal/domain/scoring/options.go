package scoring

import "github.com/okian/codevoice/pkg/logger"

// Option applies a configuration option to the LLMEvaluator.
type Option func(*LLMEvaluator)

// WithTemperature sets the sampling temperature for grading.
func WithTemperature(t float64) Option {
	return func(e *LLMEvaluator) {
		if t >= 0 {
			e.temperature = t
		}
	}
}

// WithLogger sets the evaluator logger.
func WithLogger(l logger.Logger) Option {
	return func(e *LLMEvaluator) {
		if l != nil {
			e.log = l
		}
	}
}
