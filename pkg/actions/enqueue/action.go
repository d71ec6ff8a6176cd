// Package enqueue provides the "task_enqueue" action, which schedules deferred work.
package enqueue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/protocol"
	"github.com/dukex/eca/pkg/template"
	"github.com/dukex/eca/pkg/token"
)

type Action struct{}

func NewAction() *Action {
	return &Action{}
}

func (*Action) ID() string {
	return "task_enqueue"
}

func (*Action) Name() string {
	return "Enqueue task"
}

func (*Action) Description() string {
	return "Enqueues a task carrying a snapshot of selected tokens. The task is dispatched as " +
		"task:processing once its delay has passed."
}

func (*Action) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_name": map[string]any{
				"type":        "string",
				"description": "Name of the task. Supports templating.",
				"minLength":   1,
			},
			"task_value": map[string]any{
				"type":        "string",
				"description": "Optional value of the task. Supports templating.",
			},
			"delay": map[string]any{
				"type":        "string",
				"description": "How long to wait before processing, as a Go duration",
				"pattern":     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))*$`,
				"examples":    []any{"60s", "1h30m"},
			},
			"tokens": map[string]any{
				"type":        "string",
				"description": "Comma separated token names to snapshot. Empty snapshots every token.",
			},
		},
		"required": []any{"task_name"},
	}
}

func (*Action) Execute(ctx context.Context, env protocol.Env, config map[string]string, tokens *token.Context) error {
	data := tokens.Data()

	name, err := template.RenderString(config["task_name"], data)
	if err != nil {
		return fmt.Errorf("failed to render task name: %w", err)
	}

	task := models.Task{
		Name:      name,
		Data:      tokens.Snapshot(splitNames(config["tokens"])...),
		NotBefore: env.Now(),
	}

	if raw, ok := config["task_value"]; ok && raw != "" {
		value, err := template.RenderString(raw, data)
		if err != nil {
			return fmt.Errorf("failed to render task value: %w", err)
		}

		task.Value = &value
	}

	if raw := config["delay"]; raw != "" {
		delay, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid delay %q: %w", raw, err)
		}

		task.NotBefore = task.NotBefore.Add(delay)
	}

	return env.EnqueueTask(ctx, task)
}

func splitNames(list string) []string {
	var names []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	return names
}
