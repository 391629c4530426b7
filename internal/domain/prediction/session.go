package prediction

import (
	"fmt"
	"time"

	"github.com/yanqian/power-predictor/pkg/util"
)

// Session is the form state owned by one user: the raw fields plus the current outcome.
type Session struct {
	ID          string    `json:"id"`
	Input       RawInput  `json:"input"`
	Outcome     Outcome   `json:"outcome"`
	Attempts    int       `json:"attempts"`
	SubmittedAt time.Time `json:"submittedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewSession starts a form in the idle state with the timestamp prefilled.
func NewSession(id string, now time.Time) Session {
	return Session{
		ID:        id,
		Input:     RawInput{Timestamp: util.MinuteStamp(now)},
		Outcome:   Idle(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Event is an input to the lifecycle state machine.
type Event interface {
	apply(s Session) (Session, error)
}

// Apply computes the session that results from ev. The argument is never modified.
func Apply(s Session, ev Event) (Session, error) {
	return ev.apply(s)
}

// FieldChanged replaces one raw field value. Allowed in every state; an in-flight
// submission already holds its own snapshot of the input.
type FieldChanged struct {
	Field Field
	Value string
}

func (e FieldChanged) apply(s Session) (Session, error) {
	input, err := s.Input.With(e.Field, e.Value)
	if err != nil {
		return s, err
	}
	s.Input = input
	return s, nil
}

// SubmitStarted moves the session to Submitting and clears the prior outcome.
// A submission older than StaleAfter is treated as lost and may be replaced;
// a zero StaleAfter never replaces one.
type SubmitStarted struct {
	At         time.Time
	StaleAfter time.Duration
}

func (e SubmitStarted) apply(s Session) (Session, error) {
	if s.Outcome.Status == StatusSubmitting {
		if e.StaleAfter <= 0 || e.At.Sub(s.SubmittedAt) < e.StaleAfter {
			return s, ErrSubmissionInFlight
		}
	}
	s.Outcome = Submitting()
	s.Attempts++
	s.SubmittedAt = e.At
	return s, nil
}

// SubmitResolved records the terminal outcome of the in-flight submission.
// Attempt is the session's attempt count when that submission started; a
// resolution for a replaced submission is rejected with ErrStaleResolution.
type SubmitResolved struct {
	Attempt int
	Outcome Outcome
}

func (e SubmitResolved) apply(s Session) (Session, error) {
	if e.Attempt != s.Attempts {
		return s, fmt.Errorf("%w: attempt %d, current %d", ErrStaleResolution, e.Attempt, s.Attempts)
	}
	if s.Outcome.Status != StatusSubmitting {
		return s, ErrNotSubmitting
	}
	if !e.Outcome.Status.Terminal() {
		return s, fmt.Errorf("%w: %s", ErrNonTerminalOutcome, e.Outcome.Status)
	}
	s.Outcome = e.Outcome
	return s, nil
}
