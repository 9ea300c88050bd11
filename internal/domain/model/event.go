package model

import "time"

// EventType names a session lifecycle change.
type EventType string

const (
	EventSessionStarted   EventType = "session.started"
	EventTurnRecorded     EventType = "turn.recorded"
	EventSessionCompleted EventType = "session.completed"
	EventSessionFailed    EventType = "session.failed"
)

// Event is emitted by the ledger after a committed write.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	SessionID   string    `json:"session_id"`
	CandidateID string    `json:"candidate_id,omitempty"`
	TurnID      string    `json:"turn_id,omitempty"`
	QuestionID  string    `json:"question_id,omitempty"`
	Score       int       `json:"score,omitempty"`
	TotalScore  float64   `json:"total_score"`
	Status      Status    `json:"status"`
	At          time.Time `json:"at"`
}
