// Package repository defines the interview store interface and its implementations.
package repository

import (
	"context"

	"github.com/okian/codevoice/internal/domain/model"
)

// QuestionFilter narrows ListQuestions. Zero fields match everything.
type QuestionFilter struct {
	Difficulty model.Difficulty
	// Topic matches as a case-insensitive substring.
	Topic string
	// Exclude drops questions by id.
	Exclude []string
}

// Store provides read/write access to questions, candidates, sessions and turns.
type Store interface {
	CreateQuestion(ctx context.Context, q *model.Question) error
	// DeleteQuestion removes a question and nulls turn references to it.
	// Returns ErrNotFound if the id is unknown.
	DeleteQuestion(ctx context.Context, id string) error
	ListQuestions(ctx context.Context, f QuestionFilter) ([]model.Question, error)
	CountQuestions(ctx context.Context) (int64, error)

	CreateCandidate(ctx context.Context, c *model.Candidate) error
	GetCandidate(ctx context.Context, id string) (model.Candidate, error)
	// FindCandidateByUsername returns ErrNotFound if no candidate has the name.
	FindCandidateByUsername(ctx context.Context, username string) (model.Candidate, error)

	CreateSession(ctx context.Context, s *model.Session) error
	// GetSession returns the session without turns.
	GetSession(ctx context.Context, id string) (model.Session, error)
	// LockSession reads a session for update. Inside Transact it holds the row
	// until the transaction ends.
	LockSession(ctx context.Context, id string) (model.Session, error)
	UpdateSession(ctx context.Context, s *model.Session) error

	AppendTurn(ctx context.Context, t *model.Turn) error
	// ListTurns returns turns ordered by creation time, then Seq.
	ListTurns(ctx context.Context, sessionID string) ([]model.Turn, error)

	// Transact runs fn against a store bound to one transaction.
	// A non-nil error from fn rolls the transaction back where supported.
	Transact(ctx context.Context, fn func(tx Store) error) error
}
