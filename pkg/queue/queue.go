// Package queue implements the deferred task queue. Tasks are handed to a Store, popped
// atomically by workers and dispatched as task:processing once their not-before time is due.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/otelhelper"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Store keeps pending tasks. Implementations must allow concurrent Push and guarantee that
// a task is returned by Pop to at most one caller.
type Store interface {
	// Push stores task, invisible to Pop until visibleAt.
	Push(ctx context.Context, task models.Task, visibleAt time.Time) error
	// Pop removes and returns the visible task with the earliest visibility.
	Pop(ctx context.Context, now time.Time) (models.Task, bool, error)
	Len(ctx context.Context) (int, error)
}

// Dispatcher is the engine entry point used for due tasks.
type Dispatcher interface {
	Dispatch(ctx context.Context, eventName string, instance any) *models.ExecutionReport
}

type OutcomeKind string

const (
	OutcomeEmpty      OutcomeKind = "empty"
	OutcomeNotYetDue  OutcomeKind = "not_yet_due"
	OutcomeDispatched OutcomeKind = "dispatched"
)

// Outcome is the result of ProcessNext. NotYetDue is a scheduling signal: the caller owns
// Task and must resubmit it after Delay.
type Outcome struct {
	Kind   OutcomeKind             `json:"kind"`
	Task   models.Task             `json:"task"`
	Delay  time.Duration           `json:"delay,omitempty"`
	Report *models.ExecutionReport `json:"report,omitempty"`
}

type Queue struct {
	logger *slog.Logger
	store  Store
	now    func() time.Time
	tracer trace.Tracer
}

type Option func(*Queue)

func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(q *Queue) {
		q.tracer = tracer
	}
}

func New(logger *slog.Logger, store Store, opts ...Option) *Queue {
	q := &Queue{
		logger: logger.With("module", "task_queue"),
		store:  store,
		now:    time.Now,
		tracer: otelhelper.NoopTracer(),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Enqueue assigns an id, stamps the task and makes it immediately visible.
func (q *Queue) Enqueue(ctx context.Context, task models.Task) (models.Task, error) {
	now := q.now()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	task.EnqueuedAt = now
	if task.NotBefore.IsZero() {
		task.NotBefore = now
	}

	if err := q.store.Push(ctx, task, now); err != nil {
		return models.Task{}, fmt.Errorf("failed to push task %s: %w", task.ID, err)
	}

	q.logger.DebugContext(ctx, "Task enqueued", "task_id", task.ID, "task_name", task.Name, "not_before", task.NotBefore)

	return task, nil
}

// Resubmit pushes task back, invisible for delay.
func (q *Queue) Resubmit(ctx context.Context, task models.Task, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}

	if err := q.store.Push(ctx, task, q.now().Add(delay)); err != nil {
		return fmt.Errorf("failed to resubmit task %s: %w", task.ID, err)
	}

	return nil
}

// ProcessNext pops one task. A task that is not yet due is returned to the caller with the
// remaining delay; a due task is dispatched and then discarded whatever the report says.
func (q *Queue) ProcessNext(ctx context.Context, dispatcher Dispatcher) (Outcome, error) {
	now := q.now()

	task, ok, err := q.store.Pop(ctx, now)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to pop task: %w", err)
	}

	if !ok {
		return Outcome{Kind: OutcomeEmpty}, nil
	}

	if delay := task.DueIn(now); delay > 0 {
		return Outcome{Kind: OutcomeNotYetDue, Task: task, Delay: delay}, nil
	}

	ctx, span := otelhelper.StartSpan(ctx, q.tracer, "eca.task",
		attribute.String(otelhelper.TaskIDKey, task.ID),
		attribute.String(otelhelper.TaskNameKey, task.Name),
	)
	defer span.End()

	report := dispatcher.Dispatch(ctx, models.TaskProcessingEvent, task)
	span.SetAttributes(attribute.String(otelhelper.DispatchIDKey, report.ID))

	logger := q.logger.With("task_id", task.ID, "task_name", task.Name, "dispatch_id", report.ID)
	if report.Failed() {
		otelhelper.SetError(span, fmt.Errorf("%d branch failures", len(report.Failures())))
		logger.WarnContext(ctx, "Task processed with failures", "failures", len(report.Failures()))
	} else {
		logger.DebugContext(ctx, "Task processed", "models", len(report.Models))
	}

	return Outcome{Kind: OutcomeDispatched, Task: task, Report: report}, nil
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	return q.store.Len(ctx)
}
