// Package payload provides the "payload" event, filtered by a key/value wildcard.
package payload

import (
	"github.com/dukex/eca/pkg/protocol"
	"github.com/dukex/eca/pkg/token"
)

// Payload is the event instance understood by the payload event.
type Payload struct {
	Key   string         `json:"key"`
	Value string         `json:"value"`
	Data  map[string]any `json:"data,omitempty"`
}

// FromMap reads a payload from decoded JSON, such as an HTTP request body.
func FromMap(m map[string]any) Payload {
	p := Payload{}
	p.Key, _ = m["key"].(string)
	p.Value, _ = m["value"].(string)

	if data, ok := m["data"].(map[string]any); ok {
		p.Data = data
	}

	return p
}

type Event struct{}

func NewEvent() *Event {
	return &Event{}
}

func (*Event) ID() string {
	return "payload"
}

func (*Event) Name() string {
	return "Payload event"
}

func (*Event) Description() string {
	return "Reacts to a configured event name when the payload key and value match the configured wildcard."
}

func (*Event) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event": map[string]any{
				"type":        "string",
				"description": "Dispatched event name",
				"minLength":   1,
			},
			"key": map[string]any{
				"type":        "string",
				"description": "Payload key to match, * or empty for any",
			},
			"value": map[string]any{
				"type":        "string",
				"description": "Payload value to match, * or empty for any",
			},
		},
		"required": []any{"event"},
	}
}

func (*Event) EventName(config map[string]string) string {
	return config["event"]
}

func (*Event) Wildcard(config map[string]string) string {
	return protocol.JoinWildcard(config["key"], config["value"])
}

func (*Event) AppliesForWildcard(instance any, _ string, wildcard string) bool {
	p, ok := asPayload(instance)
	if !ok {
		return wildcard == protocol.AnyWildcard || wildcard == protocol.JoinWildcard("", "")
	}

	return protocol.MatchWildcard(wildcard, protocol.JoinWildcard(p.Key, p.Value))
}

func (*Event) ExtractContextFields(instance any) map[string]any {
	p, ok := asPayload(instance)
	if !ok {
		return map[string]any{}
	}

	fields := map[string]any{
		"key":   p.Key,
		"value": p.Value,
	}

	for k, v := range p.Data {
		fields[k] = token.DeepCopy(v)
	}

	return fields
}

func asPayload(instance any) (Payload, bool) {
	switch p := instance.(type) {
	case Payload:
		return p, true
	case *Payload:
		if p == nil {
			return Payload{}, false
		}

		return *p, true
	case map[string]any:
		return FromMap(p), true
	default:
		return Payload{}, false
	}
}
