package interview

import "errors"

var (
	// ErrInvalidState is returned when a call does not fit the current state,
	// such as answering before the interview started.
	ErrInvalidState = errors.New("invalid interview state")
	// ErrSessionComplete is returned for calls on a finished interview.
	ErrSessionComplete = errors.New("interview already complete")
	// ErrNotLive is returned by the Registry for unknown or finished sessions.
	ErrNotLive = errors.New("interview not live")
)
