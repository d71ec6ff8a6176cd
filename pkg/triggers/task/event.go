// Package task provides the "task" event, dispatched when a deferred task becomes due.
package task

import (
	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/protocol"
	"github.com/dukex/eca/pkg/token"
)

const (
	TaskIDToken    = "task_id"
	TaskNameToken  = "task_name"
	TaskValueToken = "task_value"
)

type Event struct{}

func NewEvent() *Event {
	return &Event{}
}

func (*Event) ID() string {
	return "task"
}

func (*Event) Name() string {
	return "Task processing"
}

func (*Event) Description() string {
	return "Reacts to due tasks. The task's snapshotted data, task_name and task_value become tokens."
}

func (*Event) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_name": map[string]any{
				"type":        "string",
				"description": "Task name to react to, * or empty for any",
			},
			"task_value": map[string]any{
				"type":        "string",
				"description": "Task value to react to, * or empty for any",
			},
		},
	}
}

func (*Event) EventName(map[string]string) string {
	return models.TaskProcessingEvent
}

func (*Event) Wildcard(config map[string]string) string {
	if config["task_name"] == "" && config["task_value"] == "" {
		return protocol.AnyWildcard
	}

	return protocol.JoinWildcard(config["task_name"], config["task_value"])
}

func (*Event) WildcardOf(instance any) (string, bool) {
	t, ok := asTask(instance)
	if !ok {
		return "", false
	}

	return t.Name + protocol.WildcardSeparator + t.ValueOrEmpty(), true
}

func (*Event) ExtractContextFields(instance any) map[string]any {
	t, ok := asTask(instance)
	if !ok {
		return map[string]any{}
	}

	fields := make(map[string]any, len(t.Data)+3)
	for k, v := range t.Data {
		fields[k] = token.DeepCopy(v)
	}

	fields[TaskIDToken] = t.ID
	fields[TaskNameToken] = t.Name
	fields[TaskValueToken] = t.ValueOrEmpty()

	return fields
}

func asTask(instance any) (models.Task, bool) {
	switch t := instance.(type) {
	case models.Task:
		return t, true
	case *models.Task:
		if t == nil {
			return models.Task{}, false
		}

		return *t, true
	default:
		return models.Task{}, false
	}
}
