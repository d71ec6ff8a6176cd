// Package events defines the messages exchanged with the host event bus.
package events

import (
	"time"

	"github.com/dukex/eca/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every engine message.
const Topic = "eca.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// EventRaisedEvent asks the engine to dispatch an event.
	EventRaisedEvent EventType = "event.raised"
	// ExecutionReportedEvent carries the report of a finished dispatch.
	ExecutionReportedEvent EventType = "execution.reported"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]any),
	}
}

// EventRaised is an external occurrence to dispatch. Payload becomes the event instance.
type EventRaised struct {
	BaseEvent

	EventName string         `json:"event_name" validate:"required"`
	Payload   map[string]any `json:"payload,omitempty"`
}

func (e EventRaised) GetType() EventType {
	return EventRaisedEvent
}

func NewEventRaised(eventName string, payload map[string]any) *EventRaised {
	return &EventRaised{
		BaseEvent: NewBaseEvent(EventRaisedEvent),
		EventName: eventName,
		Payload:   payload,
	}
}

// ExecutionReported answers an EventRaised with the dispatch report.
type ExecutionReported struct {
	BaseEvent

	RaisedID string                  `json:"raised_id"`
	Report   *models.ExecutionReport `json:"report"`
}

func (e ExecutionReported) GetType() EventType {
	return ExecutionReportedEvent
}

func NewExecutionReported(raisedID string, report *models.ExecutionReport) *ExecutionReported {
	return &ExecutionReported{
		BaseEvent: NewBaseEvent(ExecutionReportedEvent),
		RaisedID:  raisedID,
		Report:    report,
	}
}
