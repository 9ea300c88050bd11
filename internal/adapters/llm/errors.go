package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable marks any failure to obtain a completion.
	ErrUnavailable = errors.New("language model unavailable")
	// ErrMissingCredential is returned when no API key is configured.
	ErrMissingCredential = fmt.Errorf("%w: missing credential", ErrUnavailable)
	// ErrEmptyResponse means the model answered with no choices.
	ErrEmptyResponse = fmt.Errorf("%w: empty response", ErrUnavailable)
)
