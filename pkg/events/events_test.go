package events

import (
	"encoding/json"
	"testing"

	"github.com/dukex/eca/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRaised_JSON(t *testing.T) {
	t.Parallel()

	original := NewEventRaised("custom:ping", map[string]any{"user": "ana"})
	assert.Equal(t, EventRaisedEvent, original.GetType())
	assert.NotEmpty(t, original.ID)

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"event.raised"`)
	assert.Contains(t, string(data), `"event_name":"custom:ping"`)

	var decoded EventRaised
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, "ana", decoded.Payload["user"])
}

func TestExecutionReported_CarriesReport(t *testing.T) {
	t.Parallel()

	report := &models.ExecutionReport{ID: "r1", EventName: "custom:ping"}
	reported := NewExecutionReported("raised-1", report)

	assert.Equal(t, ExecutionReportedEvent, reported.GetType())
	assert.Equal(t, "raised-1", reported.RaisedID)
	assert.Same(t, report, reported.Report)
}
