package v1

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// eventTypePattern is the fixed `<entity>.<action>` shape, lower snake case on both sides.
var eventTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`)

// Event is the atomic unit of the system.
// It separates the "Envelope" (stream addressing, routing keys) from the "Letter" (EventData).
type Event struct {
	// --- System Attributes (The Envelope) ---

	// ID is globally unique. Assigned by the event store at append time when empty.
	ID string `json:"id"`

	// StreamID identifies the aggregate instance the event belongs to.
	StreamID string `json:"stream_id"`

	// StreamType is the coarse category used for first-level routing
	// (e.g. "organization", "access_grant").
	StreamType string `json:"stream_type"`

	// StreamVersion increases by exactly one per event within a stream.
	// Zero on append means "next version"; the store assigns it.
	StreamVersion int64 `json:"stream_version"`

	// EventType is the fine-grained dispatch key, `<entity>.<action>`
	// (e.g. "organization.deactivated").
	EventType string `json:"event_type"`

	// EventMetadata carries provenance (who, why, trace correlation).
	// Never used for routing.
	EventMetadata map[string]interface{} `json:"event_metadata,omitempty"`

	// CreatedAt is authoritative for every projection timestamp derived from this event.
	CreatedAt time.Time `json:"created_at"`

	// ProcessedAt is set exactly once, by the dispatcher, after full processing.
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	// Seq is the global append order (BIGSERIAL). Not part of the public envelope.
	Seq int64 `json:"-"`

	// --- User Payload (The Letter) ---

	// EventData shape is defined per EventType and is not validated upstream;
	// handlers read it through the eventdata accessors.
	EventData map[string]interface{} `json:"event_data"`
}

// Validate ensures the event has all required envelope attributes.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.StreamID) == "" {
		return fmt.Errorf("stream_id is required")
	}

	if strings.TrimSpace(e.StreamType) == "" {
		return fmt.Errorf("stream_type is required")
	}

	if e.EventType == "" {
		return fmt.Errorf("event_type is required")
	}

	if !eventTypePattern.MatchString(e.EventType) {
		return fmt.Errorf("event_type %q must have the form <entity>.<action>", e.EventType)
	}

	if e.StreamVersion < 0 {
		return fmt.Errorf("stream_version must be >= 0")
	}

	if e.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}

	return nil
}

// Entity returns the part of EventType before the dot.
func (e *Event) Entity() string {
	entity, _, _ := strings.Cut(e.EventType, ".")
	return entity
}

// Action returns the part of EventType after the dot.
func (e *Event) Action() string {
	_, action, _ := strings.Cut(e.EventType, ".")
	return action
}

// IsProcessed reports whether the dispatcher has marked this event.
func (e *Event) IsProcessed() bool {
	return e.ProcessedAt != nil
}
