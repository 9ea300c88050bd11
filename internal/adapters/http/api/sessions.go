package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/codevoice/internal/domain/interview"
	"github.com/okian/codevoice/internal/domain/model"
	"github.com/okian/codevoice/pkg/logger"
)

// startRequest is the body of POST /sessions. Every field is optional.
type startRequest struct {
	CandidateID string `json:"candidate_id"`
	Difficulty  string `json:"difficulty"`
	Topic       string `json:"topic"`
}

// answerRequest is the body of POST /sessions/{id}/answers. The transcript
// must be present but may be empty.
type answerRequest struct {
	Transcript  *string `json:"transcript"`
	UtteranceID string  `json:"utterance_id"`
	AudioRef    string  `json:"audio_ref"`
}

type sessionResponse struct {
	model.Session
	State interview.State `json:"state,omitempty"`
}

// SessionsHandler exposes the interview lifecycle to the voice pipeline.
type SessionsHandler struct {
	interviews Interviews
	sessions   Sessions
	log        logger.Logger
}

// NewSessionsHandler creates a sessions handler.
func NewSessionsHandler(interviews Interviews, sessions Sessions, log logger.Logger) *SessionsHandler {
	return &SessionsHandler{interviews: interviews, sessions: sessions, log: log}
}

// HandleStart handles POST /sessions.
func (h *SessionsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_session"
	var req startRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	start := interview.StartRequest{
		CandidateID: strings.TrimSpace(req.CandidateID),
		Topic:       strings.TrimSpace(req.Topic),
	}
	if strings.TrimSpace(req.Difficulty) != "" {
		d, err := model.ParseDifficulty(req.Difficulty)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		start.Difficulty = d
	}

	reply, err := h.interviews.Start(r.Context(), start)
	if err != nil {
		fail(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}

// HandleAnswer handles POST /sessions/{id}/answers.
func (h *SessionsHandler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	const op = "api.answer"
	id := r.PathValue("id")
	var req answerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Transcript == nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing transcript")))
		return
	}

	reply, err := h.interviews.Answer(r.Context(), id, interview.AnswerRequest{
		Transcript:  *req.Transcript,
		AudioRef:    req.AudioRef,
		UtteranceID: req.UtteranceID,
	})
	if err != nil {
		fail(r.Context(), w, h.log, h.explain(r, op, id, err))
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// HandleComplete handles POST /sessions/{id}/complete.
func (h *SessionsHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	h.end(w, r, "api.complete", h.interviews.Complete)
}

// HandleAbandon handles POST /sessions/{id}/abandon.
func (h *SessionsHandler) HandleAbandon(w http.ResponseWriter, r *http.Request) {
	h.end(w, r, "api.abandon", h.interviews.Abandon)
}

// HandleGet handles GET /sessions/{id}: the session with its ordered turns.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		fail(r.Context(), w, h.log, err)
		return
	}
	turns, err := h.sessions.Transcript(r.Context(), id)
	if err != nil {
		fail(r.Context(), w, h.log, err)
		return
	}
	sess.Turns = turns

	resp := sessionResponse{Session: sess}
	if state, err := h.interviews.State(id); err == nil {
		resp.State = state
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionsHandler) end(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	fn func(ctx context.Context, sessionID string) (model.Session, error),
) {
	id := r.PathValue("id")
	sess, err := fn(r.Context(), id)
	if err != nil {
		fail(r.Context(), w, h.log, h.explain(r, op, id, err))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// explain turns "not live" into not-found or a conflict naming the status.
func (h *SessionsHandler) explain(r *http.Request, op, id string, err error) error {
	if !errors.Is(err, interview.ErrNotLive) {
		return err
	}
	sess, getErr := h.sessions.Get(r.Context(), id)
	if getErr != nil {
		return getErr
	}
	return WrapKind(op, ErrConflict, errors.New("session is "+strings.ToLower(string(sess.Status))))
}
