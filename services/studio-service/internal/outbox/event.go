package outbox

import (
	"encoding/json"
	"fmt"
)

// Topics. The event type doubles as the Kafka topic name.
const (
	TopicSessionCreated   = "studio.session.created.v1"
	TopicSessionUpdated   = "studio.session.updated.v1"
	TopicSessionCancelled = "studio.session.cancelled.v1"
	TopicSessionCompleted = "studio.session.completed.v1"
	TopicElevationGranted = "studio.elevation.granted.v1"
	TopicElevationDenied  = "studio.elevation.denied.v1"
)

const (
	AggregateSession = "session"
	AggregateUser    = "user"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// NewEvent marshals payload to JSON.
func NewEvent(eventType, aggregateType, aggregateID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       raw,
	}, nil
}
