// Package llm adapts language-model endpoints to a single text-completion call.
package llm

import "context"

// Request is one completion call: a system instruction plus a user prompt.
type Request struct {
	// Purpose labels metrics and logs, e.g. "evaluate" or "respond".
	Purpose     string
	System      string
	Prompt      string
	Temperature float64
	// MaxTokens overrides the client default when positive.
	MaxTokens int
}

// Completer maps a prompt to free-form text. Implementations return an error
// wrapping ErrUnavailable when the model cannot be reached; callers treat it
// as recoverable.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Disabled is a Completer for deployments without a model. Every call fails
// with ErrMissingCredential so callers degrade immediately.
type Disabled struct{}

// Complete implements Completer.
func (Disabled) Complete(context.Context, Request) (string, error) {
	return "", ErrMissingCredential
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
