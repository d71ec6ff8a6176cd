// Package log provides the "log" action, which writes a rendered message to a named channel.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/eca/pkg/protocol"
	"github.com/dukex/eca/pkg/template"
	"github.com/dukex/eca/pkg/token"
)

const DefaultChannel = "default"

type Action struct{}

func NewAction() *Action {
	return &Action{}
}

func (*Action) ID() string {
	return "log"
}

func (*Action) Name() string {
	return "Log"
}

func (*Action) Description() string {
	return "Logs a message at a specified level on a channel. Supports templating for dynamic content."
}

func (*Action) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "The message to log. Supports templating for dynamic content.",
				"minLength":   1,
				"examples": []any{
					"Pong!",
					"Order {{ .order_id }} received",
				},
			},
			"channel": map[string]any{
				"type":        "string",
				"description": "Channel the entry is tagged with",
				"default":     DefaultChannel,
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level for the message",
				"default":     "info",
				"enum":        []any{"debug", "info", "warn", "warning", "error"},
			},
		},
		"required": []any{"message"},
	}
}

func (*Action) Execute(ctx context.Context, env protocol.Env, config map[string]string, tokens *token.Context) error {
	message, err := template.RenderTokens(config["message"], tokens)
	if err != nil {
		return fmt.Errorf("failed to render message: %w", err)
	}

	channel := config["channel"]
	if channel == "" {
		channel = DefaultChannel
	}

	env.Logger().Log(ctx, parseLevel(config["level"]), message, "channel", channel)

	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
