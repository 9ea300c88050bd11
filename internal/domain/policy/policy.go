// Package policy turns a score into the interviewer's next move and spoken reply.
package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/codevoice/internal/adapters/llm"
	"github.com/okian/codevoice/internal/domain/model"
	"github.com/okian/codevoice/pkg/logger"
	"github.com/okian/codevoice/pkg/metrics"
)

// Band edges.
const (
	StrongMin  = 7
	PartialMin = 4
)

// FallbackText is spoken when the model cannot produce a reply.
const FallbackText = "I apologize, I'm having trouble processing that. Let's continue."

const systemPrompt = `You are a friendly AI technical interviewer conducting a voice interview.

Guidelines:
- Speak naturally as if in a real conversation
- Keep responses concise (2-3 sentences max)
- Don't use markdown formatting (no asterisks, underscores, etc.)
- Be encouraging and constructive
- Sound human, not robotic

%s`

const userPrompt = `Question: %s

Evaluation Feedback: %s

Generate a natural spoken response:`

var instructions = map[model.Band]string{
	model.BandStrong:  "The candidate did well. Acknowledge their answer positively and indicate you'll move to the next question.",
	model.BandPartial: "The candidate's answer was okay but could be improved. Provide the feedback and move on.",
	model.BandWeak:    "The candidate struggled with this question. Provide a hint or ask a simpler follow-up to help them.",
}

const exhaustedInstruction = "The candidate still struggled after follow-ups. Briefly state the key point they missed, without a question, and say you'll move to the next question."

// BandFor places a score in its band.
func BandFor(score int) model.Band {
	switch {
	case score >= StrongMin:
		return model.BandStrong
	case score >= PartialMin:
		return model.BandPartial
	default:
		return model.BandWeak
	}
}

// ActionFor is the pure score-to-action mapping: below 4 follows up.
func ActionFor(score int) model.Action {
	if BandFor(score) == model.BandWeak {
		return model.ActionFollowUp
	}
	return model.ActionAdvance
}

// Input is one decision request.
type Input struct {
	Score    int
	Feedback string
	Question string
	// ForceAdvance overrides a follow-up once the per-question cap is reached.
	ForceAdvance bool
}

// Decision is the next action plus the text to speak.
type Decision struct {
	Action model.Action
	Band   model.Band
	Text   string
	// Forced is set when ForceAdvance changed the action.
	Forced bool
}

// Policy generates replies through a language model.
type Policy struct {
	llm         llm.Completer
	temperature float64
	log         logger.Logger
}

// New constructs a Policy over completer.
func New(completer llm.Completer, opts ...Option) *Policy {
	p := &Policy{llm: completer, temperature: 0.7}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Nop()
	}
	return p
}

// Decide maps in.Score to an action and asks the model for the reply.
// If the model fails, the text is FallbackText, the action is ADVANCE and the
// error wraps ErrResponseUnavailable.
func (p *Policy) Decide(ctx context.Context, in Input) (Decision, error) {
	band := BandFor(in.Score)
	d := Decision{Action: ActionFor(in.Score), Band: band}
	instruction := instructions[band]
	if d.Action == model.ActionFollowUp && in.ForceAdvance {
		d.Action = model.ActionAdvance
		d.Forced = true
		instruction = exhaustedInstruction
	}

	raw, err := p.llm.Complete(ctx, llm.Request{
		Purpose:     "respond",
		System:      fmt.Sprintf(systemPrompt, instruction),
		Prompt:      fmt.Sprintf(userPrompt, in.Question, in.Feedback),
		Temperature: p.temperature,
	})
	text := Speakable(raw)
	if err == nil && text == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		metrics.RecordLLMDegraded("respond")
		p.log.Warn(ctx, "response degraded", logger.Int("score", in.Score), logger.Error(err))
		d.Action = model.ActionAdvance
		d.Text = FallbackText
		return d, fmt.Errorf("%w: %w", ErrResponseUnavailable, err)
	}
	d.Text = text
	return d, nil
}

var markup = strings.NewReplacer("*", "", "_", "", "#", "", "`", "", "\r", " ", "\n", " ")

// Speakable strips markup and collapses whitespace so the text can go to TTS.
func Speakable(s string) string {
	return strings.Join(strings.Fields(markup.Replace(s)), " ")
}
