package interview

import "fmt"

// State is a step of one interview conversation.
type State string

const (
	StateAwaitingQuestion State = "AWAITING_QUESTION"
	StateQuestionAsked    State = "QUESTION_ASKED"
	StateAwaitingAnswer   State = "AWAITING_ANSWER"
	StateAnswerReceived   State = "ANSWER_RECEIVED"
	StateScored           State = "SCORED"
	StateResponded        State = "RESPONDED"
	StateSessionComplete  State = "SESSION_COMPLETE"
)

// transitions lists the legal next states. SESSION_COMPLETE is reachable from
// every live state through Abandon or an early Complete.
var transitions = map[State][]State{ //nolint:gochecknoglobals // read-only table
	StateAwaitingQuestion: {StateQuestionAsked},
	StateQuestionAsked:    {StateAwaitingAnswer},
	StateAwaitingAnswer:   {StateAnswerReceived},
	StateAnswerReceived:   {StateScored, StateAwaitingAnswer},
	StateScored:           {StateResponded, StateAwaitingAnswer},
	StateResponded:        {StateAwaitingQuestion, StateAwaitingAnswer},
}

func canTransition(from, to State) bool {
	if from == StateSessionComplete {
		return false
	}
	if to == StateSessionComplete {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (o *Orchestrator) moveTo(to State) {
	if !canTransition(o.state, to) {
		// Only reachable through a bug in this package.
		panic(fmt.Sprintf("interview: illegal transition %s -> %s", o.state, to))
	}
	o.state = to
}
