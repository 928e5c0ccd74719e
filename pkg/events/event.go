package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "COACH_TURN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent embeds the common fields so concrete events stay small.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
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

// NewTurnCompletedEvent records one finished coaching turn with its
// classification outcome.
func NewTurnCompletedEvent(userId, scoreId, category, reason string) Event {
	return BaseEvent{
		Type: "COACH_TURN_COMPLETED",
		Data: map[string]interface{}{
			"user_id":  userId,
			"score_id": scoreId,
			"category": category,
			"reason":   reason,
		},
		OccurredAt: time.Now(),
	}
}
