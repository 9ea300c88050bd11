package interview

import (
	"github.com/okian/codevoice/internal/domain/dedupe"
	"github.com/okian/codevoice/internal/domain/model"
	"github.com/okian/codevoice/pkg/logger"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxQuestions sets the question-count limit.
func WithMaxQuestions(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxQuestions = n
		}
	}
}

// WithMaxFollowUps caps consecutive follow-ups on one question.
func WithMaxFollowUps(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxFollowUps = n
		}
	}
}

// WithDefaults applies when a StartRequest leaves difficulty or topic empty.
func WithDefaults(d model.Difficulty, topic string) Option {
	return func(o *Orchestrator) {
		if d != "" {
			o.defaultDifficulty = d
		}
		o.defaultTopic = topic
	}
}

// WithDeduper drops answers whose utterance id was already handled.
func WithDeduper(d dedupe.Deduper) Option {
	return func(o *Orchestrator) {
		o.dedupe = d
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}
