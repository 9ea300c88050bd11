// Package questions owns the question bank: filtered random selection,
// administration and seeding from a YAML file.
package questions

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/codevoice/internal/adapters/repository"
	"github.com/okian/codevoice/internal/domain/model"
	"github.com/okian/codevoice/pkg/logger"
	"github.com/okian/codevoice/pkg/metrics"
)

// Repository is the persistence the bank needs.
type Repository interface {
	CreateQuestion(ctx context.Context, q *model.Question) error
	DeleteQuestion(ctx context.Context, id string) error
	ListQuestions(ctx context.Context, f repository.QuestionFilter) ([]model.Question, error)
	CountQuestions(ctx context.Context) (int64, error)
}

// SelectRequest narrows Select. Topic is optional.
type SelectRequest struct {
	Difficulty model.Difficulty
	Topic      string
	// Exclude lists ids already asked; they are only repeated once every
	// other question is exhausted.
	Exclude []string
}

// AddRequest carries a new bank entry.
type AddRequest struct {
	Topic          string `json:"topic" yaml:"topic"`
	Difficulty     string `json:"difficulty" yaml:"difficulty"`
	Text           string `json:"text" yaml:"text"`
	ExpectedPoints string `json:"expected_points" yaml:"expected_points"`
}

// Bank selects and administers questions.
type Bank struct {
	repo Repository
	log  logger.Logger
	intn func(n int) int
}

// New constructs a Bank over repo.
func New(repo Repository, opts ...Option) *Bank {
	b := &Bank{repo: repo, intn: rand.IntN}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.Nop()
	}
	return b
}

// Select picks a question uniformly at random. Pools are tried in order:
// filtered minus excluded, all minus excluded, filtered, all. It fails with
// ErrNoQuestionsAvailable only when the bank is empty.
func (b *Bank) Select(ctx context.Context, req SelectRequest) (model.Question, error) {
	filtered := repository.QuestionFilter{Difficulty: req.Difficulty, Topic: req.Topic}
	pools := []pool{
		{"filtered", withExclude(filtered, req.Exclude)},
		{"unfiltered", repository.QuestionFilter{Exclude: req.Exclude}},
	}
	if len(req.Exclude) > 0 {
		pools = append(pools,
			pool{"filtered_repeat", filtered},
			pool{"unfiltered_repeat", repository.QuestionFilter{}},
		)
	}

	for i, p := range pools {
		qs, err := b.repo.ListQuestions(ctx, p.filter)
		if err != nil {
			return model.Question{}, fmt.Errorf("select question: %w", err)
		}
		if len(qs) == 0 {
			continue
		}
		if i > 0 {
			metrics.RecordQuestionFallback(p.name)
			b.log.Debug(ctx, "question pool fallback",
				logger.String("pool", p.name),
				logger.String("difficulty", string(req.Difficulty)),
				logger.String("topic", req.Topic))
		}
		return qs[b.intn(len(qs))], nil
	}
	return model.Question{}, ErrNoQuestionsAvailable
}

// Add validates and stores a new question.
func (b *Bank) Add(ctx context.Context, req AddRequest) (model.Question, error) {
	d, err := model.ParseDifficulty(req.Difficulty)
	if err != nil {
		return model.Question{}, fmt.Errorf("%w: %w", ErrInvalidQuestion, err)
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return model.Question{}, fmt.Errorf("%w: text must not be empty", ErrInvalidQuestion)
	}
	q := model.Question{
		ID:             uuid.NewString(),
		Topic:          strings.TrimSpace(req.Topic),
		Difficulty:     d,
		Text:           text,
		ExpectedPoints: strings.TrimSpace(req.ExpectedPoints),
	}
	if err := b.repo.CreateQuestion(ctx, &q); err != nil {
		return model.Question{}, fmt.Errorf("add question: %w", err)
	}
	return q, nil
}

// Remove deletes a question; turns that referenced it keep a null reference.
func (b *Bank) Remove(ctx context.Context, id string) error {
	if err := b.repo.DeleteQuestion(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("remove question: %w", err)
	}
	return nil
}

// List returns questions matching the optional difficulty and topic.
func (b *Bank) List(ctx context.Context, difficulty, topic string) ([]model.Question, error) {
	f := repository.QuestionFilter{Topic: topic}
	if strings.TrimSpace(difficulty) != "" {
		d, err := model.ParseDifficulty(difficulty)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidQuestion, err)
		}
		f.Difficulty = d
	}
	qs, err := b.repo.ListQuestions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return qs, nil
}

type pool struct {
	name   string
	filter repository.QuestionFilter
}

func withExclude(f repository.QuestionFilter, exclude []string) repository.QuestionFilter {
	f.Exclude = exclude
	return f
}
