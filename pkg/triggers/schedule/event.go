// Package schedule provides the "schedule" event, fired on a cron schedule by the scheduler.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukex/eca/pkg/protocol"
	"github.com/robfig/cron/v3"
)

// Prefix is prepended to every schedule id.
const Prefix = "schedule:"

// EventName returns the dispatched name of the schedule scheduleID.
func EventName(scheduleID string) string {
	return Prefix + scheduleID
}

// Tick is the instance dispatched each time a schedule fires.
type Tick struct {
	ScheduleID string    `json:"schedule_id"`
	Cron       string    `json:"cron"`
	FiredAt    time.Time `json:"fired_at"`
}

// ParseCron parses a standard five field expression or a descriptor such as @hourly.
func ParseCron(expr string) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	return schedule, nil
}

type Event struct{}

func NewEvent() *Event {
	return &Event{}
}

func (*Event) ID() string {
	return "schedule"
}

func (*Event) Name() string {
	return "Schedule"
}

func (*Event) Description() string {
	return "Fires schedule:<schedule_id> on a cron expression."
}

func (*Event) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"schedule_id": map[string]any{
				"type":        "string",
				"description": "Identifier of the schedule",
				"minLength":   1,
			},
			"cron": map[string]any{
				"type":        "string",
				"description": "Standard cron expression or descriptor",
				"minLength":   1,
				"examples":    []any{"*/5 * * * *", "@hourly"},
			},
		},
		"required": []any{"schedule_id", "cron"},
	}
}

func (*Event) EventName(config map[string]string) string {
	return EventName(config["schedule_id"])
}

// Wildcard is the cron expression, so models sharing a schedule id only react to the ticks
// of their own expression.
func (*Event) Wildcard(config map[string]string) string {
	expr := strings.TrimSpace(config["cron"])
	if expr == "" {
		return protocol.AnyWildcard
	}

	return expr
}

// AppliesForWildcard compares whole expressions; a cron expression is full of "*" fields
// and must not be read as a segment pattern. Instances other than Tick, such as events
// posted to the API, reach every model of the schedule id.
func (*Event) AppliesForWildcard(instance any, _ string, wildcard string) bool {
	if wildcard == protocol.AnyWildcard {
		return true
	}

	tick, ok := instance.(Tick)
	if !ok {
		return true
	}

	return strings.TrimSpace(tick.Cron) == wildcard
}

func (*Event) ExtractContextFields(instance any) map[string]any {
	tick, ok := instance.(Tick)
	if !ok {
		return map[string]any{}
	}

	return map[string]any{
		"schedule_id": tick.ScheduleID,
		"fired_at":    tick.FiredAt.UTC().Format(time.RFC3339),
	}
}
