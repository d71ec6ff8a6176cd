package log

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/eca/pkg/mocks"
	"github.com/dukex/eca/pkg/testutil"
	"github.com/dukex/eca/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_Metadata(t *testing.T) {
	action := NewAction()

	assert.Equal(t, "log", action.ID())
	assert.NotEmpty(t, action.Name())
	assert.NotEmpty(t, action.Description())
	assert.Equal(t, []any{"message"}, action.Schema()["required"])
}

func TestAction_Execute(t *testing.T) {
	tests := []struct {
		name            string
		config          map[string]string
		expectedMessage string
		expectedChannel string
		expectedLevel   slog.Level
	}{
		{
			name:            "plain message on channel",
			config:          map[string]string{"message": "Pong!", "channel": "c2"},
			expectedMessage: "Pong!",
			expectedChannel: "c2",
			expectedLevel:   slog.LevelInfo,
		},
		{
			name:            "default channel",
			config:          map[string]string{"message": "hello"},
			expectedMessage: "hello",
			expectedChannel: DefaultChannel,
			expectedLevel:   slog.LevelInfo,
		},
		{
			name:            "templated message with level",
			config:          map[string]string{"message": "order {{ .order_id }}", "level": "warning"},
			expectedMessage: "order 42",
			expectedChannel: DefaultChannel,
			expectedLevel:   slog.LevelWarn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capture := testutil.NewLogCapture()
			env := mocks.NewMockEnv(time.Now())
			env.Log = capture.Logger()

			err := NewAction().Execute(t.Context(), env, tt.config, token.New(map[string]any{"order_id": 42}))
			require.NoError(t, err)

			records := capture.Records()
			require.Len(t, records, 1)
			assert.Equal(t, tt.expectedMessage, records[0].Message)
			assert.Equal(t, tt.expectedChannel, records[0].Attrs["channel"])
			assert.Equal(t, tt.expectedLevel, records[0].Level)
		})
	}
}

func TestAction_ExecuteInvalidTemplate(t *testing.T) {
	env := mocks.NewMockEnv(time.Now())

	err := NewAction().Execute(t.Context(), env, map[string]string{"message": "{{ .broken"}, token.New(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to render message")
}
