package models

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySet is returned by operations that need at least one record
	ErrEmptySet = errors.New("record set is empty")

	// ErrInvalidRange is returned when a date range or period query matches no records
	ErrInvalidRange = errors.New("no records for the requested period")

	// ErrNotEnoughData is returned when a graph is requested for fewer than 3 records
	ErrNotEnoughData = errors.New("not enough data")

	// ErrUnknownMonth is returned when a month outside January..December is used for calendar arithmetic
	ErrUnknownMonth = errors.New("unknown month")
)

// ValidationConstraints describes the values a committed record may take
const ValidationConstraints = "Month: 1-12. Day: 1-31. Pressure: >0. Humidity: 0-100. " +
	"Wind direction: N, S, E, W, NE, NW, SE or SW."

// ValidationError represents a record that violates the validity invariant.
// Row is the zero-based position in the set, or -1 for a standalone record.
type ValidationError struct {
	Row     int
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("row %d: %s %s: %s", e.Row+1, e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Field, e.Value, e.Message)
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
