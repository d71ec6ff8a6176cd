package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSchedule  = "@every 1s"
	DefaultBatchSize = 100
)

// Summary counts what one DequeueAndProcess call did.
type Summary struct {
	Dispatched int `json:"dispatched"`
	Deferred   int `json:"deferred"`
}

// Worker drains the queue on a cron schedule.
type Worker struct {
	logger     *slog.Logger
	queue      *Queue
	dispatcher Dispatcher
	schedule   string
	batchSize  int
	cron       *cron.Cron
}

type WorkerOption func(*Worker)

func WithSchedule(schedule string) WorkerOption {
	return func(w *Worker) {
		w.schedule = schedule
	}
}

func WithBatchSize(size int) WorkerOption {
	return func(w *Worker) {
		w.batchSize = size
	}
}

func NewWorker(logger *slog.Logger, queue *Queue, dispatcher Dispatcher, opts ...WorkerOption) *Worker {
	w := &Worker{
		logger:     logger.With("module", "queue_worker"),
		queue:      queue,
		dispatcher: dispatcher,
		schedule:   DefaultSchedule,
		batchSize:  DefaultBatchSize,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// DequeueAndProcess processes up to the batch size of tasks. Tasks that are not yet due are
// resubmitted with the delay reported by the queue.
func (w *Worker) DequeueAndProcess(ctx context.Context) (Summary, error) {
	var summary Summary

	for range w.batchSize {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		outcome, err := w.queue.ProcessNext(ctx, w.dispatcher)
		if err != nil {
			return summary, err
		}

		switch outcome.Kind {
		case OutcomeEmpty:
			return summary, nil
		case OutcomeNotYetDue:
			if err := w.queue.Resubmit(ctx, outcome.Task, outcome.Delay); err != nil {
				return summary, err
			}

			summary.Deferred++
		case OutcomeDispatched:
			summary.Dispatched++
		}
	}

	return summary, nil
}

// Start runs DequeueAndProcess on the worker schedule until Stop is called.
func (w *Worker) Start(ctx context.Context) error {
	w.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	id, err := w.cron.AddFunc(w.schedule, func() {
		summary, err := w.DequeueAndProcess(ctx)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to process tasks", "error", err)
		}

		if summary.Dispatched > 0 || summary.Deferred > 0 {
			w.logger.InfoContext(ctx, "Processed tasks", "dispatched", summary.Dispatched, "deferred", summary.Deferred)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid worker schedule %q: %w", w.schedule, err)
	}

	w.logger.InfoContext(ctx, "Starting queue worker", "schedule", w.schedule, "cron_id", id)
	w.cron.Start()

	return nil
}

// Stop stops scheduling and waits for a running batch to finish or ctx to end.
func (w *Worker) Stop(ctx context.Context) error {
	if w.cron == nil {
		return nil
	}

	w.logger.InfoContext(ctx, "Stopping queue worker")

	select {
	case <-w.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
