// Package interview drives one spoken interview: it asks a question, grades
// each transcribed answer, replies, records the exchange and decides whether
// to follow up, move on or finish.
//
// An Orchestrator belongs to a single session and handles one exchange at a
// time. The Registry holds the live ones for the HTTP surface.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/okian/codevoice/internal/domain/dedupe"
	"github.com/okian/codevoice/internal/domain/ledger"
	"github.com/okian/codevoice/internal/domain/model"
	"github.com/okian/codevoice/internal/domain/policy"
	"github.com/okian/codevoice/internal/domain/questions"
	"github.com/okian/codevoice/internal/domain/scoring"
	"github.com/okian/codevoice/pkg/logger"
	"github.com/okian/codevoice/pkg/metrics"
)

// ClosingText ends the final reply of a completed interview.
const ClosingText = "That concludes our interview. Thank you for your time."

// Ledger persists the session and its turns.
type Ledger interface {
	Create(ctx context.Context, candidateID string) (model.Session, error)
	RecordTurn(ctx context.Context, in ledger.TurnInput) (model.Turn, model.Session, error)
	Complete(ctx context.Context, sessionID string) (model.Session, error)
	Fail(ctx context.Context, sessionID string) (model.Session, error)
}

// QuestionSource draws the next question.
type QuestionSource interface {
	Select(ctx context.Context, req questions.SelectRequest) (model.Question, error)
}

// Responder turns a score into an action and the text to speak.
type Responder interface {
	Decide(ctx context.Context, in policy.Input) (policy.Decision, error)
}

// Deps are the collaborators an Orchestrator needs. All are required.
type Deps struct {
	Ledger    Ledger
	Questions QuestionSource
	Evaluator scoring.Evaluator
	Policy    Responder
}

// StartRequest opens an interview. Empty fields take the configured defaults.
type StartRequest struct {
	CandidateID string
	Difficulty  model.Difficulty
	Topic       string
}

// AnswerRequest is one finalized candidate utterance.
type AnswerRequest struct {
	Transcript string
	AudioRef   string
	// UtteranceID makes redelivery safe; a repeated id returns the first reply.
	UtteranceID string
}

// Reply is what the caller should speak next plus the bookkeeping behind it.
type Reply struct {
	SessionID  string       `json:"session_id"`
	State      State        `json:"state"`
	Message    string       `json:"message"`
	QuestionID string       `json:"question_id,omitempty"`
	Action     model.Action `json:"action,omitempty"`
	Score      int          `json:"score"`
	Feedback   string       `json:"feedback,omitempty"`
	TotalScore float64      `json:"total_score"`
	Forced     bool         `json:"forced,omitempty"`
	Duplicate  bool         `json:"duplicate,omitempty"`
}

// Orchestrator runs the turn state machine for one session.
type Orchestrator struct {
	mu sync.Mutex

	deps              Deps
	maxQuestions      int
	maxFollowUps      int
	defaultDifficulty model.Difficulty
	defaultTopic      string
	dedupe            dedupe.Deduper
	log               logger.Logger

	state      State
	session    model.Session
	difficulty model.Difficulty
	topic      string
	question   model.Question
	asked      []string
	followUps  int
	followUp   string
	last       Reply
}

// New constructs an Orchestrator in AWAITING_QUESTION.
func New(deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:              deps,
		maxQuestions:      5,
		maxFollowUps:      2,
		defaultDifficulty: model.Medium,
		log:               logger.Nop(),
		state:             StateAwaitingQuestion,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SessionID returns the ledger session id, empty before Start.
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.ID
}

// Start creates the session and asks the first question. When the bank is
// empty the session is marked FAILED and the error wraps
// questions.ErrNoQuestionsAvailable.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) (Reply, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateAwaitingQuestion || o.session.ID != "" {
		return Reply{}, fmt.Errorf("%w: start in %s", ErrInvalidState, o.state)
	}

	o.difficulty = req.Difficulty
	if o.difficulty == "" {
		o.difficulty = o.defaultDifficulty
	}
	o.topic = req.Topic
	if o.topic == "" {
		o.topic = o.defaultTopic
	}

	sess, err := o.deps.Ledger.Create(ctx, req.CandidateID)
	if err != nil {
		return Reply{}, err
	}
	o.session = sess
	o.log = o.log.With(logger.String("session_id", sess.ID))

	if err := o.ask(ctx); err != nil {
		o.close(ctx, o.deps.Ledger.Fail)
		return Reply{}, err
	}

	o.last = Reply{
		SessionID:  sess.ID,
		State:      o.state,
		Message:    o.question.Text,
		QuestionID: o.question.ID,
	}
	o.log.Info(ctx, "interview started",
		logger.String("difficulty", string(o.difficulty)),
		logger.String("topic", o.topic),
		logger.String("question_id", o.question.ID))
	return o.last, nil
}

// Answer handles one utterance: grade it, reply, record the turn and pick the
// next step. Exactly one turn is recorded per accepted utterance.
func (o *Orchestrator) Answer(ctx context.Context, req AnswerRequest) (Reply, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.dedupe != nil && req.UtteranceID != "" {
		if o.dedupe.SeenAndRecord(ctx, dedupe.Key(o.session.ID, req.UtteranceID)) {
			metrics.RecordDuplicateAnswer()
			dup := o.last
			dup.Duplicate = true
			return dup, nil
		}
	}

	switch o.state {
	case StateAwaitingAnswer:
	case StateSessionComplete:
		o.forget(ctx, req.UtteranceID)
		return Reply{}, ErrSessionComplete
	default:
		o.forget(ctx, req.UtteranceID)
		return Reply{}, fmt.Errorf("%w: answer in %s", ErrInvalidState, o.state)
	}

	o.moveTo(StateAnswerReceived)
	res, err := o.deps.Evaluator.Evaluate(ctx, scoring.Input{
		Question:       o.question.Text,
		ExpectedPoints: o.question.ExpectedPoints,
		Transcript:     req.Transcript,
		FollowUp:       o.followUp,
	})
	if err != nil {
		o.log.Debug(ctx, "evaluation degraded", logger.Error(err))
	}
	o.moveTo(StateScored)

	decision, err := o.deps.Policy.Decide(ctx, policy.Input{
		Score:        res.Score,
		Feedback:     res.Feedback,
		Question:     o.question.Text,
		ForceAdvance: o.followUps >= o.maxFollowUps,
	})
	if err != nil {
		o.log.Debug(ctx, "response degraded", logger.Error(err))
	}
	o.moveTo(StateResponded)
	metrics.RecordAction(string(decision.Action), string(decision.Band))
	if decision.Forced {
		metrics.RecordForcedAdvance()
	}

	transcript := req.Transcript
	_, sess, err := o.deps.Ledger.RecordTurn(ctx, ledger.TurnInput{
		SessionID:  o.session.ID,
		QuestionID: o.question.ID,
		Message:    decision.Text,
		Transcript: &transcript,
		AudioRef:   req.AudioRef,
		Score:      res.Score,
		Feedback:   res.Feedback,
	})
	if err != nil {
		// Nothing was spoken yet, so the caller may resend the utterance.
		o.moveTo(StateAwaitingAnswer)
		o.forget(ctx, req.UtteranceID)
		if errors.Is(err, ledger.ErrSessionClosed) {
			o.state = StateSessionComplete
			return Reply{}, fmt.Errorf("%w: %w", ErrSessionComplete, err)
		}
		return Reply{}, err
	}
	o.session = sess

	reply := Reply{
		SessionID:  sess.ID,
		Action:     decision.Action,
		Score:      res.Score,
		Feedback:   res.Feedback,
		TotalScore: sess.TotalScore,
		Forced:     decision.Forced,
	}

	speak := []string{decision.Text}
	switch {
	case decision.Action == model.ActionFollowUp:
		o.followUps++
		o.followUp = decision.Text
		o.moveTo(StateAwaitingAnswer)
		reply.QuestionID = o.question.ID
	case len(o.asked) >= o.maxQuestions:
		o.finish(ctx)
		speak = append(speak, ClosingText)
	default:
		o.moveTo(StateAwaitingQuestion)
		if err := o.ask(ctx); err != nil {
			o.log.Warn(ctx, "no next question, completing", logger.Error(err))
			o.finish(ctx)
			speak = append(speak, ClosingText)
			break
		}
		speak = append(speak, o.question.Text)
		reply.QuestionID = o.question.ID
	}

	reply.State = o.state
	reply.TotalScore = o.session.TotalScore
	reply.Message = strings.Join(speak, " ")
	o.last = reply
	return reply, nil
}

// Complete ends the interview early and marks the session COMPLETED.
func (o *Orchestrator) Complete(ctx context.Context) (model.Session, error) {
	return o.end(ctx, o.deps.Ledger.Complete)
}

// Abandon ends the interview after a disconnect and marks the session FAILED.
// The score stays as recorded.
func (o *Orchestrator) Abandon(ctx context.Context) (model.Session, error) {
	return o.end(ctx, o.deps.Ledger.Fail)
}

func (o *Orchestrator) end(ctx context.Context, fn func(context.Context, string) (model.Session, error)) (model.Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.ID == "" {
		return model.Session{}, fmt.Errorf("%w: not started", ErrInvalidState)
	}
	sess, err := fn(ctx, o.session.ID)
	if err != nil {
		return model.Session{}, err
	}
	o.session = sess
	o.state = StateSessionComplete
	o.last = Reply{SessionID: sess.ID, State: o.state, TotalScore: sess.TotalScore}
	return sess, nil
}

// ask selects an unasked question and moves to AWAITING_ANSWER.
func (o *Orchestrator) ask(ctx context.Context) error {
	q, err := o.deps.Questions.Select(ctx, questions.SelectRequest{
		Difficulty: o.difficulty,
		Topic:      o.topic,
		Exclude:    o.asked,
	})
	if err != nil {
		return err
	}
	o.question = q
	o.asked = append(o.asked, q.ID)
	o.followUps = 0
	o.followUp = ""
	o.moveTo(StateQuestionAsked)
	o.moveTo(StateAwaitingAnswer)
	return nil
}

func (o *Orchestrator) finish(ctx context.Context) {
	o.close(ctx, o.deps.Ledger.Complete)
	o.log.Info(ctx, "interview complete",
		logger.Int("questions", len(o.asked)),
		logger.Float64("total_score", o.session.TotalScore))
}

// close runs a terminal ledger write. Failures are logged; the conversation
// ends either way.
func (o *Orchestrator) close(ctx context.Context, fn func(context.Context, string) (model.Session, error)) {
	sess, err := fn(ctx, o.session.ID)
	if err != nil {
		o.log.Error(ctx, "closing session failed", logger.Error(err))
	} else {
		o.session = sess
	}
	o.state = StateSessionComplete
}

func (o *Orchestrator) forget(ctx context.Context, utteranceID string) {
	if o.dedupe != nil && utteranceID != "" {
		o.dedupe.Unrecord(ctx, dedupe.Key(o.session.ID, utteranceID))
	}
}
