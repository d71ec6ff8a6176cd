package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/dukex/eca/pkg/mocks"
	"github.com/dukex/eca/pkg/protocol"
	"github.com/dukex/eca/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_Execute(t *testing.T) {
	tests := []struct {
		name    string
		tokens  map[string]any
		config  map[string]string
		message string
		hint    string
	}{
		{
			name:   "present",
			tokens: map[string]any{"title": "Hello"},
			config: map[string]string{"token": "title"},
		},
		{
			name:   "false is a value",
			tokens: map[string]any{"flag": false},
			config: map[string]string{"token": "flag"},
		},
		{
			name:    "missing",
			config:  map[string]string{"token": "title", "hint": "set a title"},
			message: "token title is empty",
			hint:    "set a title",
		},
		{
			name:    "blank with rendered message",
			tokens:  map[string]any{"title": "  ", "id": 3},
			config:  map[string]string{"token": "title", "message": "node {{ .id }} has no title"},
			message: "node 3 has no title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAction().Execute(t.Context(), mocks.NewMockEnv(time.Now()), tt.config, token.New(tt.tokens))

			if tt.message == "" {
				require.NoError(t, err)

				return
			}

			var retryable *protocol.RetryableValidationError
			require.True(t, errors.As(err, &retryable))
			assert.Equal(t, tt.message, retryable.Message)
			assert.Equal(t, tt.hint, retryable.Hint)
		})
	}
}
