package prediction

import (
	"encoding/json"
	"math"
	"strconv"
)

// Status tags the variant held by an Outcome.
type Status string

const (
	StatusIdle            Status = "idle"
	StatusSubmitting      Status = "submitting"
	StatusValidationError Status = "validation_error"
	StatusNetworkError    Status = "network_error"
	StatusAPIError        Status = "api_error"
	StatusSuccess         Status = "success"
)

// Terminal reports whether the status is stable until the next submit.
func (s Status) Terminal() bool {
	switch s {
	case StatusValidationError, StatusNetworkError, StatusAPIError, StatusSuccess:
		return true
	default:
		return false
	}
}

// Outcome is the single current result of the most recent submission attempt.
// Message is set for the three error variants, Prediction only for success.
type Outcome struct {
	Status     Status
	Message    string
	Prediction float64
}

// Idle is the outcome of a form that has never been submitted.
func Idle() Outcome { return Outcome{Status: StatusIdle} }

// Submitting marks a request in flight.
func Submitting() Outcome { return Outcome{Status: StatusSubmitting} }

// ValidationFailed reports input that was rejected before any request was sent.
func ValidationFailed(message string) Outcome {
	return Outcome{Status: StatusValidationError, Message: message}
}

// NetworkFailed reports a transport failure or an unreadable response.
func NetworkFailed(message string) Outcome {
	return Outcome{Status: StatusNetworkError, Message: message}
}

// APIFailed reports a failure status from the predictor.
func APIFailed(message string) Outcome {
	return Outcome{Status: StatusAPIError, Message: message}
}

// Succeeded rounds the predicted value to two decimals.
func Succeeded(value float64) Outcome {
	return Outcome{Status: StatusSuccess, Prediction: roundCents(value)}
}

// IsError reports whether the outcome carries an error message.
func (o Outcome) IsError() bool {
	return o.Status == StatusValidationError || o.Status == StatusNetworkError || o.Status == StatusAPIError
}

// Display renders the prediction with exactly two decimals, e.g. "17.40".
func (o Outcome) Display() string {
	if o.Status != StatusSuccess {
		return ""
	}
	return strconv.FormatFloat(o.Prediction, 'f', 2, 64)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

type outcomeWire struct {
	Status     Status   `json:"status"`
	Message    string   `json:"message,omitempty"`
	Prediction *float64 `json:"prediction,omitempty"`
	Display    string   `json:"display,omitempty"`
}

// MarshalJSON renders {status, message?, prediction?, display?}; the prediction
// fields are present only for success.
func (o Outcome) MarshalJSON() ([]byte, error) {
	wire := outcomeWire{Status: o.Status, Message: o.Message}
	if o.Status == StatusSuccess {
		value := o.Prediction
		wire.Prediction = &value
		wire.Display = o.Display()
	}
	return json.Marshal(wire)
}

// UnmarshalJSON reads the MarshalJSON shape. A missing status decodes as idle.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var wire outcomeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*o = Outcome{Status: wire.Status, Message: wire.Message}
	if wire.Prediction != nil {
		o.Prediction = *wire.Prediction
	}
	if o.Status == "" {
		o.Status = StatusIdle
	}
	return nil
}
