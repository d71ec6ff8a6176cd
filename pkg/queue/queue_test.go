package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/otelhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []string
	tasks  []models.Task
	failed bool
}

func (d *recordingDispatcher) Dispatch(_ context.Context, eventName string, instance any) *models.ExecutionReport {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.events = append(d.events, eventName)
	d.tasks = append(d.tasks, instance.(models.Task))

	report := &models.ExecutionReport{ID: "report", EventName: eventName}
	if d.failed {
		report.Models = []*models.ModelReport{{ModelID: "m", Status: models.ModelStatusFailed}}
	}

	return report
}

func newTestQueue(store Store) (*Queue, *clock) {
	c := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), store, WithClock(c.Now)), c
}

func TestQueue_Enqueue(t *testing.T) {
	q, c := newTestQueue(NewMemoryStore())

	task, err := q.Enqueue(t.Context(), models.Task{Name: "publish"})
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, c.Now(), task.EnqueuedAt)
	assert.Equal(t, c.Now(), task.NotBefore, "a task without not-before is due immediately")

	n, err := q.Len(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestQueue_ProcessNextEmpty(t *testing.T) {
	q, _ := newTestQueue(NewMemoryStore())

	outcome, err := q.ProcessNext(t.Context(), &recordingDispatcher{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeEmpty, outcome.Kind)
}

func TestQueue_TaskScheduling(t *testing.T) {
	q, c := newTestQueue(NewMemoryStore())
	dispatcher := &recordingDispatcher{}

	data := map[string]any{"title": "original"}
	_, err := q.Enqueue(t.Context(), models.Task{
		Name:      "publish",
		Data:      data,
		NotBefore: c.Now().Add(60 * time.Second),
	})
	require.NoError(t, err)

	outcome, err := q.ProcessNext(t.Context(), dispatcher)
	require.NoError(t, err)
	require.Equal(t, OutcomeNotYetDue, outcome.Kind)
	assert.Equal(t, 60*time.Second, outcome.Delay)
	assert.Empty(t, dispatcher.events)

	// the caller owns the task until it resubmits it
	n, err := q.Len(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, q.Resubmit(t.Context(), outcome.Task, outcome.Delay))

	c.Advance(30 * time.Second)
	outcome, err = q.ProcessNext(t.Context(), dispatcher)
	require.NoError(t, err)
	assert.Equal(t, OutcomeEmpty, outcome.Kind, "resubmitted task stays invisible until due")

	c.Advance(31 * time.Second)
	outcome, err = q.ProcessNext(t.Context(), dispatcher)
	require.NoError(t, err)
	require.Equal(t, OutcomeDispatched, outcome.Kind)
	assert.Equal(t, "report", outcome.Report.ID)

	require.Equal(t, []string{models.TaskProcessingEvent}, dispatcher.events)
	assert.Equal(t, "publish", dispatcher.tasks[0].Name)
	assert.Equal(t, data, dispatcher.tasks[0].Data)

	n, err = q.Len(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n, "dispatched tasks are discarded")
}

func TestQueue_FailedDispatchStillDiscardsTask(t *testing.T) {
	q, _ := newTestQueue(NewMemoryStore())
	dispatcher := &recordingDispatcher{failed: true}

	_, err := q.Enqueue(t.Context(), models.Task{Name: "x"})
	require.NoError(t, err)

	outcome, err := q.ProcessNext(t.Context(), dispatcher)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDispatched, outcome.Kind)
	assert.True(t, outcome.Report.Failed())

	outcome, err = q.ProcessNext(t.Context(), dispatcher)
	require.NoError(t, err)
	assert.Equal(t, OutcomeEmpty, outcome.Kind)
}

type failingStore struct {
	MemoryStore
}

func (*failingStore) Pop(context.Context, time.Time) (models.Task, bool, error) {
	return models.Task{}, false, errors.New("connection refused")
}

func TestQueue_ProcessNextTracesTask(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	c := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	q := New(slog.New(slog.NewTextHandler(io.Discard, nil)), NewMemoryStore(),
		WithClock(c.Now),
		WithTracer(provider.Tracer("test")),
	)

	task, err := q.Enqueue(t.Context(), models.Task{Name: "publish"})
	require.NoError(t, err)

	outcome, err := q.ProcessNext(t.Context(), &recordingDispatcher{})
	require.NoError(t, err)
	require.Equal(t, OutcomeDispatched, outcome.Kind)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "eca.task", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String(otelhelper.TaskIDKey, task.ID))
	assert.Contains(t, ended[0].Attributes(), attribute.String(otelhelper.TaskNameKey, "publish"))
	assert.Contains(t, ended[0].Attributes(), attribute.String(otelhelper.DispatchIDKey, "report"))
}

func TestQueue_ProcessNextStoreError(t *testing.T) {
	q, _ := newTestQueue(&failingStore{})

	_, err := q.ProcessNext(t.Context(), &recordingDispatcher{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWorker_DequeueAndProcess(t *testing.T) {
	q, c := newTestQueue(NewMemoryStore())
	dispatcher := &recordingDispatcher{}

	for _, name := range []string{"now-1", "now-2"} {
		_, err := q.Enqueue(t.Context(), models.Task{Name: name})
		require.NoError(t, err)
	}

	_, err := q.Enqueue(t.Context(), models.Task{Name: "later", NotBefore: c.Now().Add(time.Minute)})
	require.NoError(t, err)

	worker := NewWorker(slog.New(slog.NewTextHandler(io.Discard, nil)), q, dispatcher)

	summary, err := worker.DequeueAndProcess(t.Context())
	require.NoError(t, err)
	assert.Equal(t, Summary{Dispatched: 2, Deferred: 1}, summary)

	n, err := q.Len(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c.Advance(time.Minute)

	summary, err = worker.DequeueAndProcess(t.Context())
	require.NoError(t, err)
	assert.Equal(t, Summary{Dispatched: 1}, summary)
	assert.Equal(t, []string{"now-1", "now-2", "later"}, []string{
		dispatcher.tasks[0].Name, dispatcher.tasks[1].Name, dispatcher.tasks[2].Name,
	})
}

func TestWorker_BatchSize(t *testing.T) {
	q, _ := newTestQueue(NewMemoryStore())

	for range 5 {
		_, err := q.Enqueue(t.Context(), models.Task{Name: "x"})
		require.NoError(t, err)
	}

	worker := NewWorker(slog.New(slog.NewTextHandler(io.Discard, nil)), q, &recordingDispatcher{}, WithBatchSize(2))

	summary, err := worker.DequeueAndProcess(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Dispatched)

	n, err := q.Len(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestWorker_StartAndStop(t *testing.T) {
	q := New(slog.New(slog.NewTextHandler(io.Discard, nil)), NewMemoryStore())
	dispatcher := &recordingDispatcher{}

	_, err := q.Enqueue(t.Context(), models.Task{Name: "scheduled"})
	require.NoError(t, err)

	worker := NewWorker(slog.New(slog.NewTextHandler(io.Discard, nil)), q, dispatcher, WithSchedule("@every 100ms"))
	require.NoError(t, worker.Start(t.Context()))

	assert.Eventually(t, func() bool {
		dispatcher.mu.Lock()
		defer dispatcher.mu.Unlock()

		return len(dispatcher.events) == 1
	}, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()

	require.NoError(t, worker.Stop(ctx))
}

func TestWorker_InvalidSchedule(t *testing.T) {
	q, _ := newTestQueue(NewMemoryStore())
	worker := NewWorker(slog.New(slog.NewTextHandler(io.Discard, nil)), q, &recordingDispatcher{}, WithSchedule("every now and then"))

	require.Error(t, worker.Start(t.Context()))
}
