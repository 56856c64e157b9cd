package models

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned for an unknown donation id.
	ErrNotFound = errors.New("donation not found")

	// ErrConflict is returned when a status transition is attempted on a
	// donation that is no longer pending.
	ErrConflict = errors.New("donation is not pending")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries one message per invalid field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
