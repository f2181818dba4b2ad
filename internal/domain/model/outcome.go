package model

import "time"

type Verdict string

const (
	VerdictAccepted       Verdict = "accepted"
	VerdictCaseLocked     Verdict = "case_locked"
	VerdictAlreadySolved  Verdict = "already_solved"
	VerdictExecutionError Verdict = "execution_error" // Submission failed to run
	VerdictGradingError   Verdict = "grading_error"   // Predicate itself faulted
	VerdictIncorrect      Verdict = "incorrect_solution"
	VerdictTimeout        Verdict = "timeout"
)

// Outcome is the result of grading one submission.
type Outcome struct {
	ID           string         `json:"id"`
	CaseID       string         `json:"case_id"`
	Runtime      string         `json:"runtime"`
	Verdict      Verdict        `json:"verdict"`
	Message      string         `json:"message,omitempty"`
	RewardPoints int            `json:"reward_points,omitempty"`
	AwardedBadge string         `json:"awarded_badge,omitempty"`
	Output       string         `json:"output,omitempty"`   // What the submission printed
	Bindings     map[string]any `json:"bindings,omitempty"` // Top-level names the submission left behind
	DurationMs   int64          `json:"duration_ms"`
	GradedAt     time.Time      `json:"graded_at"`
}

func (o *Outcome) Accepted() bool {
	return o.Verdict == VerdictAccepted
}
