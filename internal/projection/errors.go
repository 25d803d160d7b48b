package projection

import (
	"errors"
	"fmt"
)

var (
	// ErrUnhandledEventType is returned when a router has no entry for an event type.
	ErrUnhandledEventType = errors.New("unhandled event type")

	// ErrOrderingViolation is returned when an event addresses a row that earlier
	// events of the same stream must already have created.
	ErrOrderingViolation = errors.New("stream ordering violation")

	// ErrMissingTarget is returned when a payload lacks an id needed to locate a row.
	ErrMissingTarget = errors.New("event payload is missing a target id")
)

// UnhandledEventTypeError carries the category and event type that did not route.
type UnhandledEventTypeError struct {
	Category  Category
	EventType string
}

func (e *UnhandledEventTypeError) Error() string {
	return fmt.Sprintf("%s: %q in category %q", ErrUnhandledEventType, e.EventType, e.Category)
}

func (e *UnhandledEventTypeError) Unwrap() error {
	return ErrUnhandledEventType
}

// OrderingViolationError identifies the row that should have existed.
type OrderingViolationError struct {
	Table         string
	ID            string
	EventID       string
	StreamVersion int64
}

func (e *OrderingViolationError) Error() string {
	return fmt.Sprintf("%s: %s %s missing at stream_version %d (event %s)",
		ErrOrderingViolation, e.Table, e.ID, e.StreamVersion, e.EventID)
}

func (e *OrderingViolationError) Unwrap() error {
	return ErrOrderingViolation
}

func missingTarget(eventType, field string) error {
	return fmt.Errorf("%w: %s requires %q", ErrMissingTarget, eventType, field)
}
