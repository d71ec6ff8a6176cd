// Package validate provides the "validate" action.
package validate

import (
	"context"
	"fmt"

	"github.com/dukex/eca/pkg/protocol"
	"github.com/dukex/eca/pkg/template"
	"github.com/dukex/eca/pkg/token"
)

// Action aborts its branch with a retryable validation error when a token is missing or empty.
type Action struct{}

func NewAction() *Action {
	return &Action{}
}

func (*Action) ID() string {
	return "validate"
}

func (*Action) Name() string {
	return "Validate token"
}

func (*Action) Description() string {
	return "Stops the branch with a retryable validation error, carrying a hint, unless the token is set and not empty."
}

func (*Action) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"token": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Explanation recorded when validation fails. Supports templating.",
			},
			"hint": map[string]any{
				"type":        "string",
				"description": "Guidance for a retrying caller",
			},
		},
		"required": []any{"token"},
	}
}

func (*Action) Execute(_ context.Context, _ protocol.Env, config map[string]string, tokens *token.Context) error {
	name := config["token"]

	value, ok := tokens.Get(name)
	if ok && !token.IsEmpty(value) {
		return nil
	}

	message := fmt.Sprintf("token %s is empty", name)
	if config["message"] != "" {
		rendered, err := template.RenderTokens(config["message"], tokens)
		if err != nil {
			return fmt.Errorf("failed to render message: %w", err)
		}

		message = rendered
	}

	return protocol.NewRetryableValidationError(message, config["hint"])
}
