package schedule

import (
	"testing"
	"time"

	"github.com/dukex/eca/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_EventName(t *testing.T) {
	assert.Equal(t, "schedule:nightly", NewEvent().EventName(map[string]string{"schedule_id": "nightly", "cron": "@daily"}))
}

func TestEvent_Wildcard(t *testing.T) {
	event := NewEvent()

	morning := event.Wildcard(map[string]string{"schedule_id": "daily", "cron": " 0 9 * * * "})
	assert.Equal(t, "0 9 * * *", morning)
	assert.Equal(t, protocol.AnyWildcard, event.Wildcard(map[string]string{"schedule_id": "daily"}))

	tick := Tick{ScheduleID: "daily", Cron: "0 9 * * *"}
	assert.True(t, event.AppliesForWildcard(tick, "schedule:daily", morning))
	assert.False(t, event.AppliesForWildcard(tick, "schedule:daily", "0 17 * * *"))
	assert.True(t, event.AppliesForWildcard(tick, "schedule:daily", protocol.AnyWildcard))
	assert.True(t, event.AppliesForWildcard(map[string]any{}, "schedule:daily", morning))
}

func TestEvent_ExtractContextFields(t *testing.T) {
	firedAt := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)

	fields := NewEvent().ExtractContextFields(Tick{ScheduleID: "nightly", Cron: "@daily", FiredAt: firedAt})
	assert.Equal(t, map[string]any{"schedule_id": "nightly", "fired_at": "2024-05-01T03:00:00Z"}, fields)

	assert.Empty(t, NewEvent().ExtractContextFields("other"))
}

func TestParseCron(t *testing.T) {
	schedule, err := ParseCron("0 * * * *")
	require.NoError(t, err)

	from := time.Date(2024, 5, 1, 3, 15, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC), schedule.Next(from))

	_, err = ParseCron("not a cron")
	assert.Error(t, err)
}
