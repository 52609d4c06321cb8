package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrValidationFailed is wrapped by every error in this package so callers
// can re-prompt on any of them with a single errors.Is check.
var ErrValidationFailed = errors.New("validation failed")

// ValidationError reports a required field left empty.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// ParseError reports a field whose text is not the number it must be.
type ParseError struct {
	Field string
	Value string
	Want  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s must be %s, got %q", e.Field, e.Want, e.Value)
}

func (e *ParseError) Unwrap() error { return ErrValidationFailed }

// Required trims value and fails when nothing is left.
func Required(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", &ValidationError{Field: field, Reason: "is required"}
	}
	return v, nil
}

func NonNegativeInt(field, value string) (int, error) {
	v := strings.TrimSpace(value)
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &ParseError{Field: field, Value: v, Want: "a whole number of 0 or more"}
	}
	return n, nil
}

func PositiveInt(field, value string) (int, error) {
	v := strings.TrimSpace(value)
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, &ParseError{Field: field, Value: v, Want: "a whole number greater than 0"}
	}
	return n, nil
}
