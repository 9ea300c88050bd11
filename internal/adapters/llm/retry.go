package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/okian/codevoice/pkg/logger"
	"github.com/okian/codevoice/pkg/metrics"
)

// Retrying wraps a Completer with bounded exponential backoff.
// Permanent errors and context cancellation are not retried.
type Retrying struct {
	next       Completer
	maxRetries uint64
	initial    time.Duration
	log        logger.Logger
}

var _ Completer = (*Retrying)(nil)

// NewRetrying retries next up to maxRetries extra times.
func NewRetrying(next Completer, maxRetries int, log logger.Logger) *Retrying {
	if log == nil {
		log = logger.Nop()
	}
	return &Retrying{
		next:       next,
		maxRetries: uint64(max(0, maxRetries)),
		initial:    200 * time.Millisecond,
		log:        log,
	}
}

// Complete implements Completer.
func (r *Retrying) Complete(ctx context.Context, req Request) (string, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initial
	eb.MaxInterval = 2 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, r.maxRetries), ctx)

	op := func() (string, error) {
		out, err := r.next.Complete(ctx, req)
		if err == nil {
			return out, nil
		}
		var perm *PermanentError
		if errors.As(err, &perm) || errors.Is(err, ErrMissingCredential) || ctx.Err() != nil {
			return "", backoff.Permanent(err)
		}
		return "", err
	}
	notify := func(err error, wait time.Duration) {
		metrics.RecordLLMRetry()
		r.log.Debug(ctx, "retrying completion",
			logger.String("purpose", req.Purpose),
			logger.Duration("wait", wait),
			logger.Error(err))
	}
	return backoff.RetryNotifyWithData(op, policy, notify)
}
