// Package compare provides the "compare" condition.
package compare

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/eca/pkg/protocol"
	"github.com/dukex/eca/pkg/template"
	"github.com/dukex/eca/pkg/token"
)

const (
	OperatorEqual    = "equal"
	OperatorNotEqual = "not_equal"
	OperatorContains = "contains"
	OperatorGreater  = "greater"
	OperatorLess     = "less"
	OperatorEmpty    = "empty"
)

// Condition compares a token against a rendered value.
type Condition struct{}

func NewCondition() *Condition {
	return &Condition{}
}

func (*Condition) ID() string {
	return "compare"
}

func (*Condition) Name() string {
	return "Compare token"
}

func (*Condition) Description() string {
	return "Compares a token with a value. Numbers are compared numerically by greater and less."
}

func (*Condition) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"token": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"operator": map[string]any{
				"type":    "string",
				"default": OperatorEqual,
				"enum": []any{
					OperatorEqual, OperatorNotEqual, OperatorContains,
					OperatorGreater, OperatorLess, OperatorEmpty,
				},
			},
			"value": map[string]any{
				"type":        "string",
				"description": "Value compared with the token. Supports templating.",
			},
		},
		"required": []any{"token"},
	}
}

func (*Condition) Evaluate(_ context.Context, _ protocol.Env, config map[string]string, tokens *token.Context) (bool, error) {
	left, _ := tokens.Get(config["token"])

	operator := config["operator"]
	if operator == "" {
		operator = OperatorEqual
	}

	if operator == OperatorEmpty {
		return token.IsEmpty(left), nil
	}

	right, err := template.RenderTokens(config["value"], tokens)
	if err != nil {
		return false, fmt.Errorf("failed to render value: %w", err)
	}

	leftText := stringify(left)

	switch operator {
	case OperatorEqual:
		return leftText == right, nil
	case OperatorNotEqual:
		return leftText != right, nil
	case OperatorContains:
		return contains(left, right), nil
	case OperatorGreater, OperatorLess:
		l, lerr := strconv.ParseFloat(leftText, 64)
		r, rerr := strconv.ParseFloat(right, 64)

		if lerr != nil || rerr != nil {
			if operator == OperatorGreater {
				return strings.Compare(leftText, right) > 0, nil
			}

			return strings.Compare(leftText, right) < 0, nil
		}

		if operator == OperatorGreater {
			return l > r, nil
		}

		return l < r, nil
	default:
		return false, fmt.Errorf("unknown operator %q", operator)
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func contains(haystack any, needle string) bool {
	switch h := haystack.(type) {
	case []any:
		for _, item := range h {
			if stringify(item) == needle {
				return true
			}
		}

		return false
	case []string:
		for _, item := range h {
			if item == needle {
				return true
			}
		}

		return false
	case map[string]any:
		_, ok := h[needle]

		return ok
	default:
		return strings.Contains(stringify(haystack), needle)
	}
}
