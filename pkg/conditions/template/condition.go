// Package template provides the "template" condition.
package template

import (
	"context"
	"fmt"

	"github.com/dukex/eca/pkg/protocol"
	"github.com/dukex/eca/pkg/template"
	"github.com/dukex/eca/pkg/token"
)

// Condition renders an expression against the tokens and tests the output for truthiness.
type Condition struct{}

func NewCondition() *Condition {
	return &Condition{}
}

func (*Condition) ID() string {
	return "template"
}

func (*Condition) Name() string {
	return "Template"
}

func (*Condition) Description() string {
	return "Holds when the rendered expression is truthy, e.g. {{ eq .status \"published\" }}."
}

func (*Condition) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
		},
		"required": []any{"expression"},
	}
}

func (*Condition) Evaluate(_ context.Context, _ protocol.Env, config map[string]string, tokens *token.Context) (bool, error) {
	result, err := template.Render(config["expression"], tokens.Data())
	if err != nil {
		return false, fmt.Errorf("failed to evaluate expression: %w", err)
	}

	return template.Truthy(result), nil
}
