// Package raise provides the "raise" action, which dispatches a custom sub-event.
package raise

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/eca/pkg/protocol"
	"github.com/dukex/eca/pkg/template"
	"github.com/dukex/eca/pkg/token"
	"github.com/dukex/eca/pkg/triggers/custom"
)

type Action struct{}

func NewAction() *Action {
	return &Action{}
}

func (*Action) ID() string {
	return "raise"
}

func (*Action) Name() string {
	return "Raise custom event"
}

func (*Action) Description() string {
	return "Dispatches custom:<event_id> on the current call stack, passing a snapshot of tokens as the event payload."
}

func (*Action) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event_id": map[string]any{
				"type":        "string",
				"description": "Identifier of the custom event. Supports templating.",
				"minLength":   1,
			},
			"tokens": map[string]any{
				"type":        "string",
				"description": "Comma separated token names passed to the sub-event. Empty passes every token.",
			},
		},
		"required": []any{"event_id"},
	}
}

func (*Action) Execute(ctx context.Context, env protocol.Env, config map[string]string, tokens *token.Context) error {
	eventID, err := template.RenderTokens(config["event_id"], tokens)
	if err != nil {
		return fmt.Errorf("failed to render event id: %w", err)
	}

	var names []string
	for _, name := range strings.Split(config["tokens"], ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	payload := tokens.Snapshot(names...)
	delete(payload, "event_name")

	report, err := env.Dispatch(ctx, custom.EventName(eventID), payload)
	if err != nil {
		return err
	}

	env.Logger().DebugContext(ctx, "Raised custom event", "event_id", eventID, "models", len(report.Models))

	return nil
}
