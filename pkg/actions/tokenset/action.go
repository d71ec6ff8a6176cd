// Package tokenset provides the "token_set" action.
package tokenset

import (
	"context"
	"fmt"

	"github.com/dukex/eca/pkg/protocol"
	"github.com/dukex/eca/pkg/template"
	"github.com/dukex/eca/pkg/token"
)

// Action stores a rendered value in the token context. Values that render to JSON, numbers
// or booleans are stored with that type unless "raw" is "true".
type Action struct{}

func NewAction() *Action {
	return &Action{}
}

func (*Action) ID() string {
	return "token_set"
}

func (*Action) Name() string {
	return "Set token"
}

func (*Action) Description() string {
	return "Sets a token to a rendered value for the remainder of the run."
}

func (*Action) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{
				"type":        "string",
				"description": "Name of the token to set",
				"minLength":   1,
			},
			"value": map[string]any{
				"type":        "string",
				"description": "Value of the token. Supports templating.",
			},
			"raw": map[string]any{
				"type":        "string",
				"description": "Store the rendered text without type conversion",
				"enum":        []any{"true", "false"},
			},
		},
		"required": []any{"name"},
	}
}

func (*Action) Execute(_ context.Context, _ protocol.Env, config map[string]string, tokens *token.Context) error {
	data := tokens.Data()

	var (
		value any
		err   error
	)

	if config["raw"] == "true" {
		value, err = template.RenderString(config["value"], data)
	} else {
		value, err = template.Render(config["value"], data)
	}

	if err != nil {
		return fmt.Errorf("failed to render value of token %s: %w", config["name"], err)
	}

	tokens.Set(config["name"], value)

	return nil
}
