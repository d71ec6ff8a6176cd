// Package kafka provides the "kafka" event, raised for each record consumed from a topic.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/dukex/eca/pkg/protocol"
	"github.com/dukex/eca/pkg/token"
)

// Prefix is prepended to the topic to build the dispatched event name.
const Prefix = "kafka:"

// PluginID is the id of the event plugin.
const PluginID = "kafka"

// EventName returns the dispatched name of records consumed from topic.
func EventName(topic string) string {
	return Prefix + topic
}

// Message is the instance dispatched for a consumed record.
type Message struct {
	Topic      string            `json:"topic"`
	Partition  int32             `json:"partition"`
	Offset     int64             `json:"offset"`
	Key        string            `json:"key"`
	Value      any               `json:"value"`
	Headers    map[string]string `json:"headers"`
	ReceivedAt time.Time         `json:"received_at"`
}

// NewMessage converts a consumed record. A value that is not JSON is kept as a string.
func NewMessage(record *sarama.ConsumerMessage, receivedAt time.Time) Message {
	msg := Message{
		Topic:      record.Topic,
		Partition:  record.Partition,
		Offset:     record.Offset,
		Key:        string(record.Key),
		Headers:    make(map[string]string, len(record.Headers)),
		ReceivedAt: receivedAt.UTC(),
	}

	for _, header := range record.Headers {
		if header != nil {
			msg.Headers[string(header.Key)] = string(header.Value)
		}
	}

	if len(record.Value) > 0 {
		if err := json.Unmarshal(record.Value, &msg.Value); err != nil {
			msg.Value = string(record.Value)
		}
	}

	return msg
}

type Event struct{}

func NewEvent() *Event {
	return &Event{}
}

func (*Event) ID() string {
	return PluginID
}

func (*Event) Name() string {
	return "Kafka topic"
}

func (*Event) Description() string {
	return "Reacts to records consumed from a Kafka topic, optionally restricted to one record key."
}

func (*Event) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topic": map[string]any{
				"type":        "string",
				"description": "Topic to consume",
				"minLength":   1,
			},
			"key": map[string]any{
				"type":        "string",
				"description": "Record key to match, * or empty for any",
			},
		},
		"required": []any{"topic"},
	}
}

func (*Event) EventName(config map[string]string) string {
	return EventName(config["topic"])
}

func (*Event) Wildcard(config map[string]string) string {
	if config["key"] == "" {
		return protocol.AnyWildcard
	}

	return config["key"]
}

func (*Event) WildcardOf(instance any) (string, bool) {
	msg, ok := asMessage(instance)
	if !ok {
		return "", false
	}

	return msg.Key, true
}

func (*Event) ExtractContextFields(instance any) map[string]any {
	msg, ok := asMessage(instance)
	if !ok {
		return map[string]any{}
	}

	headers := make(map[string]any, len(msg.Headers))
	for name, value := range msg.Headers {
		headers[name] = value
	}

	return map[string]any{
		"topic":       msg.Topic,
		"partition":   msg.Partition,
		"offset":      msg.Offset,
		"key":         msg.Key,
		"message":     token.DeepCopy(msg.Value),
		"headers":     headers,
		"received_at": msg.ReceivedAt.Format(time.RFC3339),
	}
}

func asMessage(instance any) (Message, bool) {
	switch msg := instance.(type) {
	case Message:
		return msg, true
	case *Message:
		if msg == nil {
			return Message{}, false
		}

		return *msg, true
	default:
		return Message{}, false
	}
}
