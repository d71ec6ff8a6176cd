// Package custom provides the "custom" event, raised by hosts or by the raise action.
package custom

import "github.com/dukex/eca/pkg/token"

// Prefix is prepended to every custom event id.
const Prefix = "custom:"

// EventName returns the dispatched name of the custom event eventID.
func EventName(eventID string) string {
	return Prefix + eventID
}

type Event struct{}

func NewEvent() *Event {
	return &Event{}
}

func (*Event) ID() string {
	return "custom"
}

func (*Event) Name() string {
	return "Custom event"
}

func (*Event) Description() string {
	return "Reacts to custom:<event_id>. Fields of a map payload become tokens."
}

func (*Event) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event_id": map[string]any{
				"type":        "string",
				"description": "Identifier of the custom event, e.g. ping",
				"minLength":   1,
			},
		},
		"required": []any{"event_id"},
	}
}

func (*Event) EventName(config map[string]string) string {
	return EventName(config["event_id"])
}

// ExtractContextFields copies the fields of map payloads. Any other payload is exposed as the
// "payload" token.
func (*Event) ExtractContextFields(instance any) map[string]any {
	switch payload := instance.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		fields := make(map[string]any, len(payload))
		for k, v := range payload {
			fields[k] = token.DeepCopy(v)
		}

		return fields
	case map[string]string:
		fields := make(map[string]any, len(payload))
		for k, v := range payload {
			fields[k] = v
		}

		return fields
	default:
		return map[string]any{"payload": instance}
	}
}
