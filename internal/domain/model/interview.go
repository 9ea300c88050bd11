// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty grades a question.
type Difficulty string

const (
	Easy   Difficulty = "EASY"
	Medium Difficulty = "MEDIUM"
	Hard   Difficulty = "HARD"
)

// ParseDifficulty accepts any casing of EASY, MEDIUM or HARD.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToUpper(strings.TrimSpace(s))); d {
	case Easy, Medium, Hard:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
	}
}

// Status is the lifecycle state of a session.
type Status string

const (
	StatusStarted   Status = "STARTED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Score bounds for a single turn.
const (
	MinScore = 0
	MaxScore = 10
)

// ClampScore forces s into [MinScore, MaxScore].
func ClampScore(s int) int {
	return max(MinScore, min(MaxScore, s))
}

// Question is an immutable bank entry.
type Question struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	Topic          string     `gorm:"size:100;index" json:"topic"`
	Difficulty     Difficulty `gorm:"size:10;index" json:"difficulty"`
	Text           string     `gorm:"type:text;not null" json:"text"`
	ExpectedPoints string     `gorm:"type:text" json:"expected_points"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Candidate is the person being interviewed.
type Candidate struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex" json:"username"`
	Email     string    `gorm:"size:254" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one end-to-end interview attempt.
// TotalScore is the mean of all turn scores, 0 with no turns.
type Session struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	CandidateID string     `gorm:"size:36;index;not null" json:"candidate_id"`
	Candidate   *Candidate `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Status      Status     `gorm:"size:10;not null" json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	TotalScore  float64    `json:"total_score"`
	Turns       []Turn     `gorm:"constraint:OnDelete:CASCADE" json:"turns,omitempty"`
}

// Turn is one exchange. Turns are never mutated after creation.
type Turn struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID  string    `gorm:"size:36;index:idx_turn_order,priority:1;not null" json:"session_id"`
	QuestionID *string   `gorm:"size:36" json:"question_id,omitempty"`
	Question   *Question `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	// Message is the text spoken to the candidate that prompted this answer.
	Message    string  `gorm:"type:text" json:"message"`
	Transcript *string `gorm:"type:text" json:"transcript,omitempty"`
	AudioRef   *string `gorm:"size:255" json:"audio_ref,omitempty"`
	Score      int     `gorm:"not null;default:0" json:"score"`
	Feedback   string  `gorm:"type:text" json:"feedback"`
	// Seq breaks CreatedAt ties within a session.
	Seq       int64     `gorm:"index:idx_turn_order,priority:3" json:"seq"`
	CreatedAt time.Time `gorm:"index:idx_turn_order,priority:2" json:"created_at"`
}

// MeanScore returns the arithmetic mean of turn scores, or 0 for none.
func MeanScore(turns []Turn) float64 {
	if len(turns) == 0 {
		return 0
	}
	var sum int
	for _, t := range turns {
		sum += t.Score
	}
	return float64(sum) / float64(len(turns))
}

// Action is the orchestrator's next move after a scored answer.
type Action string

const (
	ActionAdvance  Action = "ADVANCE"
	ActionFollowUp Action = "FOLLOW_UP"
)

// Band names a score range.
type Band string

const (
	BandStrong  Band = "strong"  // score >= 7
	BandPartial Band = "partial" // 4 <= score < 7
	BandWeak    Band = "weak"    // score < 4
)
