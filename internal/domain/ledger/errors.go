package ledger

import "errors"

// Identity errors are surfaced to callers and never retried.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrCandidateNotFound = errors.New("candidate not found")
	// ErrSessionClosed rejects writes to a COMPLETED or FAILED session.
	ErrSessionClosed = errors.New("session closed")
)
