package prediction

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownField       = errors.New("unknown form field")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrNotSubmitting      = errors.New("session has no submission in flight")
	ErrNonTerminalOutcome = errors.New("outcome does not resolve a submission")
	ErrStaleResolution    = errors.New("submission was replaced by a newer attempt")
	ErrSessionNotFound    = errors.New("session not found")
)

// ValidationError reports that the raw input could not be turned into a Payload.
// Fields is kept for diagnostics; users only see Message.
type ValidationError struct {
	Message string
	Fields  []Field
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, string(f))
	}
	return fmt.Sprintf("%s (invalid: %s)", e.Message, strings.Join(names, ", "))
}

// RemoteError is returned by a PredictClient when the predictor answered with a failure status.
type RemoteError struct {
	StatusCode int
	Detail     string
}

func (e *RemoteError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("predictor returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("predictor returned status %d: %s", e.StatusCode, e.Detail)
}
