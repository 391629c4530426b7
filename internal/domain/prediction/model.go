package prediction

import (
	"fmt"
	"time"

	"github.com/yanqian/power-predictor/pkg/util"
)

// Field names a single form input. Values double as the JSON keys expected by the predictor.
type Field string

const (
	FieldTemperature         Field = "Temperature"
	FieldHumidity            Field = "Humidity"
	FieldWindSpeed           Field = "WindSpeed"
	FieldGeneralDiffuseFlows Field = "GeneralDiffuseFlows"
	FieldDiffuseFlows        Field = "DiffuseFlows"
	FieldTimestamp           Field = "Timestamp"
)

// NumericFields lists the readings that must parse as finite numbers, in form order.
var NumericFields = []Field{
	FieldTemperature,
	FieldHumidity,
	FieldWindSpeed,
	FieldGeneralDiffuseFlows,
	FieldDiffuseFlows,
}

// TimestampLayout is the minute-resolution local date-time accepted from the form.
const TimestampLayout = util.MinuteLayout

// RawInput holds the unvalidated field values exactly as the user typed them.
type RawInput struct {
	Temperature         string `json:"Temperature"`
	Humidity            string `json:"Humidity"`
	WindSpeed           string `json:"WindSpeed"`
	GeneralDiffuseFlows string `json:"GeneralDiffuseFlows"`
	DiffuseFlows        string `json:"DiffuseFlows"`
	Timestamp           string `json:"Timestamp"`
}

// Get returns the raw value of a field.
func (r RawInput) Get(field Field) (string, error) {
	switch field {
	case FieldTemperature:
		return r.Temperature, nil
	case FieldHumidity:
		return r.Humidity, nil
	case FieldWindSpeed:
		return r.WindSpeed, nil
	case FieldGeneralDiffuseFlows:
		return r.GeneralDiffuseFlows, nil
	case FieldDiffuseFlows:
		return r.DiffuseFlows, nil
	case FieldTimestamp:
		return r.Timestamp, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

// With returns a copy of r with one field replaced.
func (r RawInput) With(field Field, value string) (RawInput, error) {
	switch field {
	case FieldTemperature:
		r.Temperature = value
	case FieldHumidity:
		r.Humidity = value
	case FieldWindSpeed:
		r.WindSpeed = value
	case FieldGeneralDiffuseFlows:
		r.GeneralDiffuseFlows = value
	case FieldDiffuseFlows:
		r.DiffuseFlows = value
	case FieldTimestamp:
		r.Timestamp = value
	default:
		return r, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return r, nil
}

// Payload is the normalized request body sent to the remote predictor.
type Payload struct {
	Temperature         float64 `json:"Temperature" validate:"finite"`
	Humidity            float64 `json:"Humidity" validate:"finite"`
	WindSpeed           float64 `json:"WindSpeed" validate:"finite"`
	GeneralDiffuseFlows float64 `json:"GeneralDiffuseFlows" validate:"finite"`
	DiffuseFlows        float64 `json:"DiffuseFlows" validate:"finite"`
	Timestamp           string  `json:"Timestamp" validate:"required"`
}

// Record is one entry of the prediction log.
type Record struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId,omitempty"`
	Payload   Payload   `json:"payload"`
	Outcome   Outcome   `json:"outcome"`
	LatencyMS int64     `json:"latencyMs"`
	CreatedAt time.Time `json:"createdAt"`
}

// Messages are the user-facing texts shown for each failure class.
type Messages struct {
	Validation string
	API        string
	Network    string
}

// Config wires runtime settings for the prediction domain.
type Config struct {
	Messages     Messages
	SessionTTL   time.Duration
	StaleAfter   time.Duration
	HistoryLimit int
}

// DefaultMessages mirror the texts the web form has always displayed.
func DefaultMessages() Messages {
	return Messages{
		Validation: "Please enter valid numerical values for all fields.",
		API:        "Failed to get prediction from API.",
		Network:    "Could not connect to the prediction service.",
	}
}

func (m Messages) withDefaults() Messages {
	def := DefaultMessages()
	if m.Validation == "" {
		m.Validation = def.Validation
	}
	if m.API == "" {
		m.API = def.API
	}
	if m.Network == "" {
		m.Network = def.Network
	}
	return m
}
