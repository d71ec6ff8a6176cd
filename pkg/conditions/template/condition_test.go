package template

import (
	"testing"
	"time"

	"github.com/dukex/eca/pkg/mocks"
	"github.com/dukex/eca/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondition_Evaluate(t *testing.T) {
	tokens := token.New(map[string]any{"status": "published", "count": 0})

	tests := []struct {
		expression string
		expected   bool
	}{
		{`{{ eq .status "published" }}`, true},
		{`{{ eq .status "draft" }}`, false},
		{`{{ .count }}`, false},
		{`{{ .status }}`, true},
		{`{{ .missing }}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			result, err := NewCondition().Evaluate(t.Context(), mocks.NewMockEnv(time.Now()),
				map[string]string{"expression": tt.expression}, tokens)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestCondition_EvaluateError(t *testing.T) {
	_, err := NewCondition().Evaluate(t.Context(), mocks.NewMockEnv(time.Now()),
		map[string]string{"expression": "{{ nope }}"}, token.New(nil))
	require.Error(t, err)
}
