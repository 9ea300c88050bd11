package api

import (
	"errors"
	"net/http"

	"github.com/okian/codevoice/internal/domain/interview"
	"github.com/okian/codevoice/internal/domain/ledger"
	"github.com/okian/codevoice/internal/domain/model"
	"github.com/okian/codevoice/internal/domain/questions"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// KindError tags an underlying error with the operation and a sentinel kind.
// errors.Is matches both the kind and the wrapped error.
type KindError struct {
	Op   string
	Kind error
	Err  error
}

func (e *KindError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *KindError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns a KindError without an underlying cause.
func NewKind(op string, kind error) error {
	return &KindError{Op: op, Kind: kind}
}

// WrapKind tags err with op and kind.
func WrapKind(op string, kind, err error) error {
	return &KindError{Op: op, Kind: kind, Err: err}
}

// statusFor maps domain errors to a status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, questions.ErrInvalidQuestion),
		errors.Is(err, model.ErrInvalidDifficulty):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ledger.ErrSessionNotFound),
		errors.Is(err, ledger.ErrCandidateNotFound),
		errors.Is(err, questions.ErrQuestionNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrConflict),
		errors.Is(err, interview.ErrNotLive),
		errors.Is(err, interview.ErrSessionComplete),
		errors.Is(err, interview.ErrInvalidState),
		errors.Is(err, ledger.ErrSessionClosed):
		return http.StatusConflict, "conflict"
	case errors.Is(err, questions.ErrNoQuestionsAvailable):
		return http.StatusServiceUnavailable, "no_questions"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
