package custom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvent_EventName(t *testing.T) {
	assert.Equal(t, "custom:ping", NewEvent().EventName(map[string]string{"event_id": "ping"}))
	assert.Equal(t, "custom:ping", EventName("ping"))
}

func TestEvent_ExtractContextFields(t *testing.T) {
	event := NewEvent()

	payload := map[string]any{"list": []any{"a"}}
	fields := event.ExtractContextFields(payload)
	assert.Equal(t, payload, fields)

	fields["list"].([]any)[0] = "changed"
	assert.Equal(t, "a", payload["list"].([]any)[0])

	assert.Equal(t, map[string]any{"k": "v"}, event.ExtractContextFields(map[string]string{"k": "v"}))
	assert.Equal(t, map[string]any{"payload": 42}, event.ExtractContextFields(42))
	assert.Empty(t, event.ExtractContextFields(nil))
}
