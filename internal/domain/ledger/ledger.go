// Package ledger records session lifecycle and turns, and keeps each session's
// running score equal to the mean of its turn scores.
//
// Every write that reads turns and recomputes the score runs under a
// per-session lock and inside a store transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/codevoice/internal/adapters/lock"
	"github.com/okian/codevoice/internal/adapters/repository"
	"github.com/okian/codevoice/internal/domain/model"
	"github.com/okian/codevoice/pkg/logger"
	"github.com/okian/codevoice/pkg/metrics"
)

// Placeholder candidate used when a session starts without one.
const (
	PlaceholderUsername = "test_user"
	PlaceholderEmail    = "test@example.com"
)

// Publisher receives lifecycle events after a write commits.
type Publisher interface {
	Publish(ctx context.Context, e model.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.Event) {}

// TurnInput is one exchange to persist.
type TurnInput struct {
	SessionID string
	// QuestionID is empty when the turn has no stored question.
	QuestionID string
	// Message is what was spoken to the candidate.
	Message string
	// Transcript is nil when no transcript was delivered; it may be empty.
	Transcript *string
	AudioRef   string
	Score      int
	Feedback   string
}

// Ledger owns session and turn persistence.
type Ledger struct {
	store  repository.Store
	locker lock.Locker
	pub    Publisher
	log    logger.Logger
	now    func() time.Time
}

// New constructs a Ledger over store.
func New(store repository.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		locker: lock.NewLocal(),
		pub:    nopPublisher{},
		log:    logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create starts a session in STARTED with zero score. An empty candidateID
// resolves the placeholder candidate, creating it on first use.
func (l *Ledger) Create(ctx context.Context, candidateID string) (model.Session, error) {
	var cand model.Candidate
	var err error
	if candidateID == "" {
		cand, err = l.FindOrCreateCandidate(ctx, PlaceholderUsername, PlaceholderEmail)
	} else {
		cand, err = l.store.GetCandidate(ctx, candidateID)
		if errors.Is(err, repository.ErrNotFound) {
			return model.Session{}, fmt.Errorf("%w: %s", ErrCandidateNotFound, candidateID)
		}
	}
	if err != nil {
		metrics.RecordLedgerError("create")
		return model.Session{}, fmt.Errorf("create session: %w", err)
	}

	sess := model.Session{
		ID:          uuid.NewString(),
		CandidateID: cand.ID,
		Status:      model.StatusStarted,
		StartedAt:   l.now(),
	}
	if err := l.store.CreateSession(ctx, &sess); err != nil {
		metrics.RecordLedgerError("create")
		return model.Session{}, fmt.Errorf("create session: %w", err)
	}

	metrics.RecordSessionStarted()
	l.publish(ctx, model.EventSessionStarted, sess, nil)
	return sess, nil
}

// FindOrCreateCandidate returns the candidate with username, creating it if needed.
func (l *Ledger) FindOrCreateCandidate(ctx context.Context, username, email string) (model.Candidate, error) {
	cand, err := l.store.FindCandidateByUsername(ctx, username)
	if err == nil {
		return cand, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Candidate{}, err
	}
	cand = model.Candidate{ID: uuid.NewString(), Username: username, Email: email, CreatedAt: l.now()}
	err = l.store.CreateCandidate(ctx, &cand)
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a creation race; the winner's row is the one to use.
		return l.store.FindCandidateByUsername(ctx, username)
	}
	return cand, err
}

// RecordTurn appends a turn and recomputes the running score. The session
// must be STARTED. Scores are clamped to [0,10].
func (l *Ledger) RecordTurn(ctx context.Context, in TurnInput) (model.Turn, model.Session, error) {
	var turn model.Turn
	var sess model.Session
	err := l.withSession(ctx, in.SessionID, func(tx repository.Store, s model.Session) (model.Session, error) {
		if s.Status != model.StatusStarted {
			return s, fmt.Errorf("%w: %s is %s", ErrSessionClosed, s.ID, s.Status)
		}
		turns, err := tx.ListTurns(ctx, s.ID)
		if err != nil {
			return s, err
		}
		turn = model.Turn{
			ID:         uuid.NewString(),
			SessionID:  s.ID,
			Message:    in.Message,
			Transcript: in.Transcript,
			Score:      model.ClampScore(in.Score),
			Feedback:   in.Feedback,
			Seq:        int64(len(turns)) + 1,
			CreatedAt:  l.now(),
		}
		if in.QuestionID != "" {
			qid := in.QuestionID
			turn.QuestionID = &qid
		}
		if in.AudioRef != "" {
			ref := in.AudioRef
			turn.AudioRef = &ref
		}
		if err := tx.AppendTurn(ctx, &turn); err != nil {
			return s, err
		}
		s.TotalScore = model.MeanScore(append(turns, turn))
		return s, tx.UpdateSession(ctx, &s)
	}, &sess)
	if err != nil {
		l.fail(ctx, "record_turn", in.SessionID, err)
		return model.Turn{}, model.Session{}, err
	}

	metrics.RecordTurn(turn.Score)
	l.publish(ctx, model.EventTurnRecorded, sess, &turn)
	return turn, sess, nil
}

// Complete marks the session COMPLETED and stamps the end time. Completing a
// COMPLETED session returns it unchanged; a FAILED one is ErrSessionClosed.
func (l *Ledger) Complete(ctx context.Context, sessionID string) (model.Session, error) {
	return l.finish(ctx, sessionID, model.StatusCompleted)
}

// Fail marks the session FAILED, e.g. when the participant disconnects.
// The score is left as recorded.
func (l *Ledger) Fail(ctx context.Context, sessionID string) (model.Session, error) {
	return l.finish(ctx, sessionID, model.StatusFailed)
}

func (l *Ledger) finish(ctx context.Context, sessionID string, target model.Status) (model.Session, error) {
	var sess model.Session
	changed := false
	err := l.withSession(ctx, sessionID, func(tx repository.Store, s model.Session) (model.Session, error) {
		switch s.Status {
		case target:
			return s, nil
		case model.StatusStarted:
		default:
			return s, fmt.Errorf("%w: %s is %s", ErrSessionClosed, s.ID, s.Status)
		}
		end := l.now()
		s.Status = target
		s.EndedAt = &end
		changed = true
		return s, tx.UpdateSession(ctx, &s)
	}, &sess)
	if err != nil {
		l.fail(ctx, "finish", sessionID, err)
		return model.Session{}, err
	}
	if changed {
		metrics.RecordSessionFinished(string(target))
		typ := model.EventSessionCompleted
		if target == model.StatusFailed {
			typ = model.EventSessionFailed
		}
		l.publish(ctx, typ, sess, nil)
	}
	return sess, nil
}

// Get returns a session without its turns.
func (l *Ledger) Get(ctx context.Context, sessionID string) (model.Session, error) {
	s, err := l.store.GetSession(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return s, err
}

// Transcript returns the session's turns in creation order.
func (l *Ledger) Transcript(ctx context.Context, sessionID string) ([]model.Turn, error) {
	turns, err := l.store.ListTurns(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return turns, err
}

// withSession locks sessionID, opens a transaction, reads the session for
// update and hands it to fn. The session fn returns is copied to out.
func (l *Ledger) withSession(
	ctx context.Context,
	sessionID string,
	fn func(tx repository.Store, s model.Session) (model.Session, error),
	out *model.Session,
) error {
	unlock, err := l.locker.Lock(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("lock session %s: %w", sessionID, err)
	}
	defer unlock()

	return l.store.Transact(ctx, func(tx repository.Store) error {
		s, err := tx.LockSession(ctx, sessionID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		if err != nil {
			return err
		}
		updated, err := fn(tx, s)
		if err != nil {
			return err
		}
		*out = updated
		return nil
	})
}

func (l *Ledger) fail(ctx context.Context, op, sessionID string, err error) {
	if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionClosed) {
		return
	}
	metrics.RecordLedgerError(op)
	l.log.Error(ctx, "ledger write failed",
		logger.String("op", op),
		logger.String("session_id", sessionID),
		logger.Error(err))
}

func (l *Ledger) publish(ctx context.Context, typ model.EventType, s model.Session, t *model.Turn) {
	e := model.Event{
		ID:          uuid.NewString(),
		Type:        typ,
		SessionID:   s.ID,
		CandidateID: s.CandidateID,
		TotalScore:  s.TotalScore,
		Status:      s.Status,
		At:          l.now(),
	}
	if t != nil {
		e.TurnID = t.ID
		e.Score = t.Score
		if t.QuestionID != nil {
			e.QuestionID = *t.QuestionID
		}
	}
	l.pub.Publish(ctx, e)
}
