package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/registry"
	"github.com/dukex/eca/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inlineQueue keeps enqueued tasks in a slice.
type inlineQueue struct {
	tasks []models.Task
}

func (q *inlineQueue) Enqueue(_ context.Context, task models.Task) (models.Task, error) {
	task.ID = "inline"
	q.tasks = append(q.tasks, task)

	return task, nil
}

func newDefaultEngine(t *testing.T, capture *testutil.LogCapture, opts ...Option) (*Compiler, *Repository, *Executor) {
	t.Helper()

	logger := capture.Logger()

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaults()

	repository := NewRepository(logger)

	return NewCompiler(logger, reg), repository, NewExecutor(logger, repository, opts...)
}

func TestPingPong(t *testing.T) {
	capture := testutil.NewLogCapture()
	compiler, repository, executor := newDefaultEngine(t, capture)

	ping, err := compiler.Compile(testutil.PingModel())
	require.NoError(t, err)
	repository.Register(ping)

	report := executor.Dispatch(t.Context(), "custom:ping", nil)

	assert.False(t, report.Failed())
	assert.Equal(t, []string{"ping/pong"}, report.Executed())

	pongs := capture.WithAttr("channel", "c2")
	require.Len(t, pongs, 1)
	assert.Equal(t, "Pong!", pongs[0].Message)

	assert.Len(t, capture.HasAttr("channel"), 1, "no entry on any other channel")

	executor.Dispatch(t.Context(), "custom:other", nil)
	assert.Len(t, capture.HasAttr("channel"), 1)
}

func TestTaskRoundTripCarriesSnapshot(t *testing.T) {
	capture := testutil.NewLogCapture()
	queue := &inlineQueue{}
	compiler, repository, executor := newDefaultEngine(t, capture, WithTaskEnqueuer(queue))

	schedule := models.RawModel{
		ID:      "schedule",
		Enabled: true,
		Nodes: []models.RawNode{
			{
				ID: "start", Kind: models.PluginKindEvent, Plugin: "custom",
				Config:     map[string]string{"event_id": "save"},
				Successors: []models.RawSuccessor{{Target: "enqueue"}},
			},
			{
				ID: "enqueue", Kind: models.PluginKindAction, Plugin: "task_enqueue",
				Config:     map[string]string{"task_name": "publish", "delay": "60s", "tokens": "title"},
				Successors: []models.RawSuccessor{{Target: "mutate"}},
			},
			{
				ID: "mutate", Kind: models.PluginKindAction, Plugin: "token_set",
				Config: map[string]string{"name": "title", "value": "mutated"},
			},
		},
	}

	react := models.RawModel{
		ID:      "react",
		Enabled: true,
		Nodes: []models.RawNode{
			{
				ID: "due", Kind: models.PluginKindEvent, Plugin: "task",
				Config:     map[string]string{"task_name": "publish"},
				Successors: []models.RawSuccessor{{Target: "announce"}},
			},
			{
				ID: "announce", Kind: models.PluginKindAction, Plugin: "log",
				Config: map[string]string{"message": "publishing {{ .title }}", "channel": "tasks"},
			},
		},
	}

	for _, raw := range []models.RawModel{schedule, react} {
		compiled, err := compiler.Compile(raw)
		require.NoError(t, err)
		repository.Register(compiled)
	}

	report := executor.Dispatch(t.Context(), "custom:save", map[string]any{"title": "original"})
	require.False(t, report.Failed(), "%v", report.Failures())
	require.Len(t, queue.tasks, 1)

	task := queue.tasks[0]
	assert.Equal(t, "publish", task.Name)
	assert.WithinDuration(t, time.Now().Add(60*time.Second), task.NotBefore, 5*time.Second)

	report = executor.Dispatch(t.Context(), models.TaskProcessingEvent, task)
	assert.Equal(t, []string{"react/announce"}, report.Executed())

	entries := capture.WithAttr("channel", "tasks")
	require.Len(t, entries, 1)
	assert.Equal(t, "publishing original", entries[0].Message)
}

func TestRaiseAndValidate(t *testing.T) {
	capture := testutil.NewLogCapture()
	compiler, repository, executor := newDefaultEngine(t, capture)

	raws := []models.RawModel{
		{
			ID:      "outer",
			Enabled: true,
			Nodes: []models.RawNode{
				{ID: "start", Kind: "event", Plugin: "custom", Config: map[string]string{"event_id": "outer"},
					Successors: []models.RawSuccessor{{Target: "check"}, {Target: "raise"}}},
				{ID: "check", Kind: "action", Plugin: "validate",
					Config: map[string]string{"token": "title", "hint": "send a title"}},
				{ID: "raise", Kind: "action", Plugin: "raise", Config: map[string]string{"event_id": "inner"}},
			},
		},
		{
			ID:      "inner",
			Enabled: true,
			Nodes: []models.RawNode{
				{ID: "start", Kind: "event", Plugin: "custom", Config: map[string]string{"event_id": "inner"},
					Successors: []models.RawSuccessor{{Target: "log"}}},
				{ID: "log", Kind: "action", Plugin: "log", Config: map[string]string{"message": "inner ran", "channel": "inner"}},
			},
		},
	}

	for _, raw := range raws {
		compiled, err := compiler.Compile(raw)
		require.NoError(t, err)
		repository.Register(compiled)
	}

	report := executor.Dispatch(t.Context(), "custom:outer", nil)

	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "check", failures[0].NodeID)
	assert.Equal(t, "send a title", failures[0].Hint)

	require.Len(t, report.Nested, 1)
	assert.Equal(t, []string{"inner/log"}, report.Nested[0].Executed())
	assert.Len(t, capture.WithAttr("channel", "inner"), 1)
}
