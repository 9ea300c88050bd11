// Package scoring grades a transcribed answer against a question's expected points.
package scoring

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/codevoice/internal/adapters/llm"
	"github.com/okian/codevoice/internal/domain/model"
	"github.com/okian/codevoice/pkg/logger"
	"github.com/okian/codevoice/pkg/metrics"
)

// NeutralScore replaces a missing or unusable model score.
const NeutralScore = 5

// Fixed texts for answers that are never sent to the model.
const (
	DegradedReasoning = "Evaluation failed"
	DegradedFeedback  = "Unable to evaluate answer due to technical error"
	EmptyReasoning    = "No answer was given"
	EmptyFeedback     = "I didn't catch an answer there."
)

const systemPrompt = `You are an expert technical interviewer evaluating a candidate's answer.

Your task:
1. Compare the candidate's answer against the expected key points
2. Assign a score from 0-10 (10 = perfect answer covering all points)
3. Provide clear reasoning for the score
4. Give constructive feedback

Be fair but rigorous. Partial credit for partially correct answers.`

const userPrompt = `Question: %s
%s
Expected Key Points:
%s

Candidate's Answer:
%s

Provide your evaluation in this format:
SCORE: [0-10]
REASONING: [Why you gave this score]
FEEDBACK: [Constructive feedback for the candidate]`

var leadingInt = regexp.MustCompile(`^[+-]?\d+`)

// Input is one answer to grade.
type Input struct {
	Question       string
	ExpectedPoints string
	Transcript     string
	// FollowUp is the hint or simpler question the answer responds to, if any.
	// Grading still uses ExpectedPoints.
	FollowUp string
}

// Result is always well formed, even when the evaluation degraded.
type Result struct {
	Score     int
	Reasoning string
	Feedback  string
	Raw       string
}

// Evaluator scores answers.
type Evaluator interface {
	Evaluate(ctx context.Context, in Input) (Result, error)
}

// LLMEvaluator grades through a language model.
type LLMEvaluator struct {
	llm         llm.Completer
	temperature float64
	log         logger.Logger
}

var _ Evaluator = (*LLMEvaluator)(nil)

// NewLLMEvaluator constructs an evaluator over completer.
func NewLLMEvaluator(completer llm.Completer, opts ...Option) *LLMEvaluator {
	e := &LLMEvaluator{llm: completer, temperature: 0.3}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Nop()
	}
	return e
}

// Evaluate grades in.Transcript. An empty transcript scores 0 without a model
// call. When the model is unavailable the result carries score 0 and a fixed
// apology, and the error wraps ErrEvaluationUnavailable.
func (e *LLMEvaluator) Evaluate(ctx context.Context, in Input) (Result, error) {
	if strings.TrimSpace(in.Transcript) == "" {
		return Result{Score: 0, Reasoning: EmptyReasoning, Feedback: EmptyFeedback}, nil
	}

	followUp := ""
	if in.FollowUp != "" {
		followUp = "Follow-up asked: " + in.FollowUp + "\n"
	}
	raw, err := e.llm.Complete(ctx, llm.Request{
		Purpose:     "evaluate",
		System:      systemPrompt,
		Prompt:      fmt.Sprintf(userPrompt, in.Question, followUp, in.ExpectedPoints, in.Transcript),
		Temperature: e.temperature,
	})
	if err != nil {
		metrics.RecordLLMDegraded("evaluate")
		e.log.Warn(ctx, "evaluation degraded", logger.Error(err))
		return Result{Score: 0, Reasoning: DegradedReasoning, Feedback: DegradedFeedback},
			fmt.Errorf("%w: %w", ErrEvaluationUnavailable, err)
	}
	return Parse(raw), nil
}

// Parse reads SCORE, REASONING and FEEDBACK lines. Missing, non-numeric or
// out-of-range scores become NeutralScore; missing text fields stay empty.
func Parse(raw string) Result {
	res := Result{Score: NeutralScore, Raw: raw}
	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := field(line)
		if !ok {
			continue
		}
		switch key {
		case "SCORE":
			res.Score = parseScore(value)
		case "REASONING":
			res.Reasoning = value
		case "FEEDBACK":
			res.Feedback = value
		}
	}
	return res
}

// field splits "KEY: value", tolerating surrounding markdown emphasis.
func field(line string) (string, string, bool) {
	line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "*_#- "))
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	key = strings.ToUpper(strings.Trim(key, "*_ "))
	return key, strings.TrimSpace(strings.Trim(strings.TrimSpace(value), "*_")), true
}

// parseScore accepts a leading integer, so "8/10" reads as 8.
func parseScore(s string) int {
	m := leadingInt.FindString(strings.Trim(s, "[] "))
	if m == "" {
		return NeutralScore
	}
	n, err := strconv.Atoi(m)
	if err != nil || n < model.MinScore || n > model.MaxScore {
		return NeutralScore
	}
	return n
}
