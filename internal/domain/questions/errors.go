package questions

import "errors"

var (
	// ErrNoQuestionsAvailable means the bank is empty; an interview cannot start.
	ErrNoQuestionsAvailable = errors.New("no questions available")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrInvalidQuestion      = errors.New("invalid question")
)
