// Package schedule fires the schedule events declared by registered models on their cron
// expressions.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/triggers/schedule"
	"github.com/dukex/eca/pkg/workflow"
	"github.com/robfig/cron/v3"
)

// DefaultResync is how often the receiver picks up added or removed models.
const DefaultResync = "@every 30s"

// ModelSource lists the registered models.
type ModelSource interface {
	Models() []*workflow.ProcessModel
}

// Dispatcher is the engine entry point.
type Dispatcher interface {
	Dispatch(ctx context.Context, eventName string, instance any) *models.ExecutionReport
}

type Option func(*ScheduleReceiver)

func WithResync(spec string) Option {
	return func(r *ScheduleReceiver) {
		r.resync = spec
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *ScheduleReceiver) {
		r.now = now
	}
}

// ScheduleReceiver keeps one cron job per distinct (schedule id, cron expression) pair
// found on the Event nodes of enabled models.
type ScheduleReceiver struct {
	logger     *slog.Logger
	models     ModelSource
	dispatcher Dispatcher
	resync     string
	now        func() time.Time
	cron       *cron.Cron
	mutex      sync.Mutex
	jobs       map[scheduleKey]cron.EntryID
}

type scheduleKey struct {
	id   string
	expr string
}

func NewScheduleReceiver(logger *slog.Logger, source ModelSource, dispatcher Dispatcher, opts ...Option) *ScheduleReceiver {
	r := &ScheduleReceiver{
		logger:     logger.With("module", "schedule_receiver"),
		models:     source,
		dispatcher: dispatcher,
		resync:     DefaultResync,
		now:        time.Now,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		jobs: make(map[scheduleKey]cron.EntryID),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Start registers the current schedules and starts firing them. Schedules are refreshed on
// the resync interval.
func (r *ScheduleReceiver) Start(ctx context.Context) error {
	r.Sync(ctx)

	_, err := r.cron.AddFunc(r.resync, func() {
		r.Sync(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid resync schedule %q: %w", r.resync, err)
	}

	r.cron.Start()
	r.logger.InfoContext(ctx, "Schedule receiver started", "schedules", r.Len())

	return nil
}

// Sync adds jobs for new schedules and removes the jobs of schedules no model declares
// anymore.
func (r *ScheduleReceiver) Sync(ctx context.Context) (added, removed int) {
	desired := r.collect(ctx)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	for key, entryID := range r.jobs {
		if _, ok := desired[key]; ok {
			continue
		}

		r.cron.Remove(entryID)
		delete(r.jobs, key)
		removed++
	}

	for key, parsed := range desired {
		if _, ok := r.jobs[key]; ok {
			continue
		}

		r.jobs[key] = r.cron.Schedule(parsed, cron.FuncJob(func() {
			r.fire(ctx, key)
		}))
		added++
	}

	if added > 0 || removed > 0 {
		r.logger.InfoContext(ctx, "Schedules synchronized", "added", added, "removed", removed)
	}

	return added, removed
}

func (r *ScheduleReceiver) collect(ctx context.Context) map[scheduleKey]cron.Schedule {
	desired := make(map[scheduleKey]cron.Schedule)

	for _, model := range r.models.Models() {
		if !model.Enabled {
			continue
		}

		for _, node := range model.Nodes {
			if node.Kind() != models.PluginKindEvent || node.Plugin.PluginID != "schedule" {
				continue
			}

			key := scheduleKey{id: node.Plugin.Config["schedule_id"], expr: node.Plugin.Config["cron"]}
			if _, seen := desired[key]; seen {
				continue
			}

			parsed, err := schedule.ParseCron(key.expr)
			if err != nil {
				r.logger.WarnContext(ctx, "Skipping schedule", "model_id", model.ID, "node_id", node.ID, "error", err)

				continue
			}

			desired[key] = parsed
		}
	}

	return desired
}

func (r *ScheduleReceiver) fire(ctx context.Context, key scheduleKey) {
	tick := schedule.Tick{ScheduleID: key.id, Cron: key.expr, FiredAt: r.now().UTC()}

	report := r.dispatcher.Dispatch(ctx, schedule.EventName(key.id), tick)

	logger := r.logger.With("schedule_id", key.id, "dispatch_id", report.ID)
	if report.Failed() {
		logger.WarnContext(ctx, "Schedule fired with failures", "failures", len(report.Failures()))
	} else {
		logger.DebugContext(ctx, "Schedule fired", "models", len(report.Models))
	}
}

// Len returns the number of scheduled jobs.
func (r *ScheduleReceiver) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.jobs)
}

// Stop stops firing and waits for running jobs or ctx.
func (r *ScheduleReceiver) Stop(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Stopping schedule receiver")

	select {
	case <-r.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
