package prediction

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// secondsSuffix turns the form's minute-resolution timestamp into whole-second ISO-8601.
const secondsSuffix = ":00"

var (
	errEmptyReading      = errors.New("reading is empty")
	errNonNumericReading = errors.New("reading is not a number")
)

var payloadValidator = newPayloadValidator()

func newPayloadValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	}); err != nil {
		panic(err)
	}
	return v
}

// Normalize converts raw form values into a Payload, or returns a *ValidationError.
// An empty field is missing; "0" is a valid reading.
func Normalize(raw RawInput) (Payload, error) {
	return normalize(raw, DefaultMessages().Validation)
}

func normalize(raw RawInput, message string) (Payload, error) {
	var (
		readings = make(map[Field]float64, len(NumericFields))
		invalid  []Field
	)
	for _, field := range NumericFields {
		value, _ := raw.Get(field)
		parsed, err := parseReading(value)
		if err != nil {
			invalid = append(invalid, field)
			continue
		}
		readings[field] = parsed
	}

	payload := Payload{
		Temperature:         readings[FieldTemperature],
		Humidity:            readings[FieldHumidity],
		WindSpeed:           readings[FieldWindSpeed],
		GeneralDiffuseFlows: readings[FieldGeneralDiffuseFlows],
		DiffuseFlows:        readings[FieldDiffuseFlows],
	}
	if ts := strings.TrimSpace(raw.Timestamp); ts != "" {
		payload.Timestamp = ts + secondsSuffix
	}

	if err := payloadValidator.Struct(payload); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return Payload{}, &ValidationError{Message: message, Fields: append(invalid, FieldTimestamp)}
		}
		for _, fe := range fieldErrs {
			invalid = appendUnique(invalid, Field(fe.Field()))
		}
	}
	if len(invalid) > 0 {
		return Payload{}, &ValidationError{Message: message, Fields: invalid}
	}
	return payload, nil
}

// parseReading only answers "is this text a number"; finiteness is checked by the validator.
func parseReading(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, errEmptyReading
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			// out of range parses to ±Inf, which the validator rejects
			return parsed, nil
		}
		return 0, errNonNumericReading
	}
	return parsed, nil
}

func appendUnique(fields []Field, field Field) []Field {
	for _, f := range fields {
		if f == field {
			return fields
		}
	}
	return append(fields, field)
}
