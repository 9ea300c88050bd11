// Package api serves the interview service over HTTP: session lifecycle for
// the voice pipeline, question bank administration and health.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/codevoice/internal/domain/interview"
	"github.com/okian/codevoice/internal/domain/model"
	"github.com/okian/codevoice/internal/domain/questions"
	"github.com/okian/codevoice/pkg/logger"
)

// Interviews drives live interviews.
type Interviews interface {
	Start(ctx context.Context, req interview.StartRequest) (interview.Reply, error)
	Answer(ctx context.Context, sessionID string, req interview.AnswerRequest) (interview.Reply, error)
	Complete(ctx context.Context, sessionID string) (model.Session, error)
	Abandon(ctx context.Context, sessionID string) (model.Session, error)
	State(sessionID string) (interview.State, error)
}

// Sessions reads persisted sessions.
type Sessions interface {
	Get(ctx context.Context, sessionID string) (model.Session, error)
	Transcript(ctx context.Context, sessionID string) ([]model.Turn, error)
}

// Questions administers the bank.
type Questions interface {
	Add(ctx context.Context, req questions.AddRequest) (model.Question, error)
	Remove(ctx context.Context, id string) error
	List(ctx context.Context, difficulty, topic string) ([]model.Question, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	sessionsHandler  *SessionsHandler
	questionsHandler *QuestionsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(interviews Interviews, sessions Sessions, bank Questions, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		healthHandler:    NewHealthHandler(),
		sessionsHandler:  NewSessionsHandler(interviews, sessions, log),
		questionsHandler: NewQuestionsHandler(bank, log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", instrument("healthz", s.healthHandler.HandleHealth))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleHealth)

	mux.HandleFunc("POST /sessions", instrument("sessions", s.sessionsHandler.HandleStart))
	mux.HandleFunc("GET /sessions/{id}", instrument("session", s.sessionsHandler.HandleGet))
	mux.HandleFunc("POST /sessions/{id}/answers", instrument("answers", s.sessionsHandler.HandleAnswer))
	mux.HandleFunc("POST /sessions/{id}/complete", instrument("complete", s.sessionsHandler.HandleComplete))
	mux.HandleFunc("POST /sessions/{id}/abandon", instrument("abandon", s.sessionsHandler.HandleAbandon))

	mux.HandleFunc("GET /questions", instrument("questions", s.questionsHandler.HandleList))
	mux.HandleFunc("POST /questions", instrument("questions", s.questionsHandler.HandleAdd))
	mux.HandleFunc("DELETE /questions/{id}", instrument("questions", s.questionsHandler.HandleRemove))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with the status its kind maps to. Server errors are logged.
func fail(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.Error(err))
	}
	writeError(w, status, code, err)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
