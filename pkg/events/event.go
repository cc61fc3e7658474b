package events

import "time"

// Event defines the contract for all domain events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "PROFILE_GENERATION_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	ProfileGenerationStarted   = "PROFILE_GENERATION_STARTED"
	ProfileGenerationCompleted = "PROFILE_GENERATION_COMPLETED"
	ProfileGenerationFailed    = "PROFILE_GENERATION_FAILED"
	RolePlaySessionStarted     = "ROLEPLAY_SESSION_STARTED"
	RolePlaySessionEnded       = "ROLEPLAY_SESSION_ENDED"
)

// OccurredAtKey carries the event time inside the published payload.
const OccurredAtKey = "occurred_at"

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
