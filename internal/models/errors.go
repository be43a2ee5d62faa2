package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is matched by every validation failure.
var ErrInvalid = errors.New("invalid input")

// ValidationError describes a malformed snapshot entity or parameter.
type ValidationError struct {
	Entity string
	ID     string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid ")
	sb.WriteString(e.Entity)
	if e.ID != "" {
		fmt.Fprintf(&sb, " %s", e.ID)
	}
	if e.Field != "" {
		fmt.Fprintf(&sb, ": %s", e.Field)
	}
	sb.WriteString(" ")
	sb.WriteString(e.Reason)
	return sb.String()
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// InvalidParam builds a ValidationError for a bad call parameter such as a
// limit or window size.
func InvalidParam(name string, value any, reason string) error {
	return &ValidationError{Entity: "parameter", Field: name, Reason: fmt.Sprintf("%s (got %v)", reason, value)}
}
