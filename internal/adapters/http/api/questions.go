package api

import (
	"net/http"

	"github.com/okian/codevoice/internal/domain/model"
	"github.com/okian/codevoice/internal/domain/questions"
	"github.com/okian/codevoice/pkg/logger"
)

type questionList struct {
	Questions []model.Question `json:"questions"`
}

// QuestionsHandler administers the question bank.
type QuestionsHandler struct {
	bank Questions
	log  logger.Logger
}

// NewQuestionsHandler creates a questions handler.
func NewQuestionsHandler(bank Questions, log logger.Logger) *QuestionsHandler {
	return &QuestionsHandler{bank: bank, log: log}
}

// HandleAdd handles POST /questions.
func (h *QuestionsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_question"
	var req questions.AddRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	q, err := h.bank.Add(r.Context(), req)
	if err != nil {
		fail(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

// HandleList handles GET /questions?difficulty=&topic=.
func (h *QuestionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	qs, err := h.bank.List(r.Context(), q.Get("difficulty"), q.Get("topic"))
	if err != nil {
		fail(r.Context(), w, h.log, err)
		return
	}
	if qs == nil {
		qs = []model.Question{}
	}
	writeJSON(w, http.StatusOK, questionList{Questions: qs})
}

// HandleRemove handles DELETE /questions/{id}.
func (h *QuestionsHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.bank.Remove(r.Context(), r.PathValue("id")); err != nil {
		fail(r.Context(), w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
