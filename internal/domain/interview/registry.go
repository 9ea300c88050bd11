package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/codevoice/internal/domain/model"
	"github.com/okian/codevoice/pkg/logger"
	"github.com/okian/codevoice/pkg/metrics"
)

// Registry keeps live orchestrators by session id. Calls for one session are
// serialized by its Orchestrator; different sessions run in parallel.
type Registry struct {
	mu      sync.RWMutex
	live    map[string]*Orchestrator
	factory func() *Orchestrator
	log     logger.Logger
}

// NewRegistry builds a Registry; factory returns a fresh Orchestrator per Start.
func NewRegistry(factory func() *Orchestrator, log logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		live:    make(map[string]*Orchestrator),
		factory: factory,
		log:     log,
	}
}

// Start opens a new interview and tracks it until it completes.
func (r *Registry) Start(ctx context.Context, req StartRequest) (Reply, error) {
	o := r.factory()
	reply, err := o.Start(ctx, req)
	if err != nil {
		return Reply{}, err
	}
	if reply.State != StateSessionComplete {
		r.mu.Lock()
		r.live[reply.SessionID] = o
		n := len(r.live)
		r.mu.Unlock()
		metrics.UpdateLiveSessions(n)
	}
	return reply, nil
}

// Answer forwards an utterance to the session's orchestrator.
func (r *Registry) Answer(ctx context.Context, sessionID string, req AnswerRequest) (Reply, error) {
	o, err := r.get(sessionID)
	if err != nil {
		return Reply{}, err
	}
	reply, err := o.Answer(ctx, req)
	if o.State() == StateSessionComplete {
		r.drop(sessionID)
	}
	if errors.Is(err, ErrSessionComplete) {
		return Reply{}, fmt.Errorf("%w: %w", ErrNotLive, err)
	}
	return reply, err
}

// Complete ends a live interview as COMPLETED.
func (r *Registry) Complete(ctx context.Context, sessionID string) (model.Session, error) {
	return r.end(ctx, sessionID, (*Orchestrator).Complete)
}

// Abandon ends a live interview as FAILED.
func (r *Registry) Abandon(ctx context.Context, sessionID string) (model.Session, error) {
	return r.end(ctx, sessionID, (*Orchestrator).Abandon)
}

// State returns the state of a live interview.
func (r *Registry) State(sessionID string) (State, error) {
	o, err := r.get(sessionID)
	if err != nil {
		return "", err
	}
	return o.State(), nil
}

// Len reports the number of live interviews.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// Shutdown abandons every live interview.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	ids := make([]string, 0, len(r.live))
	for id := range r.live {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if _, err := r.Abandon(ctx, id); err != nil && !errors.Is(err, ErrNotLive) {
			errs = append(errs, fmt.Errorf("abandon %s: %w", id, err))
		}
	}
	if len(ids) > 0 {
		r.log.Info(ctx, "abandoned live interviews", logger.Int("count", len(ids)))
	}
	return errors.Join(errs...)
}

func (r *Registry) end(
	ctx context.Context,
	sessionID string,
	fn func(*Orchestrator, context.Context) (model.Session, error),
) (model.Session, error) {
	o, err := r.get(sessionID)
	if err != nil {
		return model.Session{}, err
	}
	sess, err := fn(o, ctx)
	if err != nil {
		return model.Session{}, err
	}
	r.drop(sessionID)
	return sess, nil
}

func (r *Registry) get(sessionID string) (*Orchestrator, error) {
	r.mu.RLock()
	o, ok := r.live[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLive, sessionID)
	}
	return o, nil
}

func (r *Registry) drop(sessionID string) {
	r.mu.Lock()
	delete(r.live, sessionID)
	n := len(r.live)
	r.mu.Unlock()
	metrics.UpdateLiveSessions(n)
}
