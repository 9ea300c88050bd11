// Package sink provides delivery targets for interview events.
package sink

import (
	"context"

	"github.com/okian/codevoice/internal/domain/model"
	"github.com/okian/codevoice/pkg/logger"
)

// Log writes each event as a structured log line.
type Log struct {
	log logger.Logger
}

// NewLog constructs a log sink.
func NewLog(l logger.Logger) *Log {
	if l == nil {
		l = logger.Nop()
	}
	return &Log{log: l}
}

// Name implements worker.Sink.
func (*Log) Name() string { return "log" }

// Deliver implements worker.Sink.
func (s *Log) Deliver(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: matches Sink
	fields := []logger.Field{
		logger.String("event_id", e.ID),
		logger.String("session_id", e.SessionID),
		logger.String("status", string(e.Status)),
		logger.Float64("total_score", e.TotalScore),
	}
	if e.TurnID != "" {
		fields = append(fields, logger.String("turn_id", e.TurnID), logger.Int("score", e.Score))
	}
	s.log.Info(ctx, string(e.Type), fields...)
	return nil
}
