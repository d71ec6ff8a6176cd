package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/otelhelper"
	"github.com/dukex/eca/pkg/protocol"
	"github.com/dukex/eca/pkg/token"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// EventNameToken is seeded into every run with the dispatched event name.
const EventNameToken = "event_name"

var errNoTaskQueue = errors.New("task queue not configured")

// Limits bound a single run.
type Limits struct {
	// MaxDepth is the longest chain of nodes a branch may enter.
	MaxDepth int
	// MaxEdges is the number of successor edges a run may traverse.
	MaxEdges int
	// MaxNesting is the number of dispatches that may be stacked through Env.Dispatch.
	MaxNesting int
}

func DefaultLimits() Limits {
	return Limits{MaxDepth: 64, MaxEdges: 10000, MaxNesting: 8}
}

// TaskEnqueuer accepts tasks enqueued by actions.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task models.Task) (models.Task, error)
}

// Candidates is the read side of the Model Registry used during dispatch.
type Candidates interface {
	CandidatesFor(eventName string, instance any) []Candidate
}

type Option func(*Executor)

func WithLimits(limits Limits) Option {
	return func(e *Executor) {
		e.limits = limits
	}
}

func WithTaskEnqueuer(enqueuer TaskEnqueuer) Option {
	return func(e *Executor) {
		e.enqueuer = enqueuer
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

// Executor is the Execution Engine. Dispatch runs synchronously on the caller goroutine.
type Executor struct {
	logger     *slog.Logger
	candidates Candidates
	enqueuer   TaskEnqueuer
	limits     Limits
	tracer     trace.Tracer
	now        func() time.Time
}

func NewExecutor(logger *slog.Logger, candidates Candidates, opts ...Option) *Executor {
	e := &Executor{
		logger:     logger.With("module", "executor"),
		candidates: candidates,
		limits:     DefaultLimits(),
		tracer:     otelhelper.NoopTracer(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// SetTaskEnqueuer wires the task queue after construction, for queues that dispatch back
// into this executor.
func (e *Executor) SetTaskEnqueuer(enqueuer TaskEnqueuer) {
	e.enqueuer = enqueuer
}

// Dispatch runs every model reacting to eventName. It never fails: branch failures are
// logged and recorded in the returned report.
func (e *Executor) Dispatch(ctx context.Context, eventName string, instance any) *models.ExecutionReport {
	return e.dispatch(ctx, eventName, instance, 0)
}

func (e *Executor) dispatch(ctx context.Context, eventName string, instance any, nesting int) *models.ExecutionReport {
	report := &models.ExecutionReport{
		ID:        uuid.NewString(),
		EventName: eventName,
		StartedAt: e.now(),
		Models:    []*models.ModelReport{},
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "eca.dispatch",
		attribute.String(otelhelper.DispatchIDKey, report.ID),
		attribute.String(otelhelper.EventNameKey, eventName),
		attribute.Int(otelhelper.NestingKey, nesting),
	)
	defer span.End()

	logger := e.logger.With("dispatch_id", report.ID, "event_name", eventName)

	candidates := e.candidates.CandidatesFor(eventName, instance)
	logger.DebugContext(ctx, "Dispatching event", "candidates", len(candidates), "nesting", nesting)

	for _, candidate := range candidates {
		report.Models = append(report.Models, e.runModel(ctx, logger, report, candidate, instance, nesting))
	}

	report.Duration = e.now().Sub(report.StartedAt)

	if report.Failed() {
		span.SetAttributes(attribute.Int("eca.failures", len(report.Failures())))
	}

	return report
}

func (e *Executor) runModel(
	ctx context.Context,
	logger *slog.Logger,
	report *models.ExecutionReport,
	candidate Candidate,
	instance any,
	nesting int,
) *models.ModelReport {
	model := candidate.Model
	entry := &model.Nodes[candidate.EntryNode]

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "eca.model",
		attribute.String(otelhelper.ModelIDKey, model.ID),
		attribute.String(otelhelper.EventNodeIDKey, entry.ID),
	)
	defer span.End()

	r := &run{
		executor: e,
		model:    model,
		dispatch: report,
		nesting:  nesting,
		logger:   logger.With("model_id", model.ID, "event_node_id", entry.ID),
		report: &models.ModelReport{
			ModelID:     model.ID,
			EventNodeID: entry.ID,
			Status:      models.ModelStatusSuccess,
			Executed:    []string{},
		},
	}

	seed, err := extractFields(entry.event, instance)
	if err != nil {
		r.record(ctx, entry, err)
		r.finish(span)

		return r.report
	}

	r.tokens = token.New(seed)
	r.tokens.Set(EventNameToken, report.EventName)

	r.visitSuccessors(ctx, entry, 0)
	r.finish(span)

	return r.report
}

func extractFields(event protocol.Event, instance any) (fields map[string]any, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v}
		}
	}()

	return event.ExtractContextFields(instance), nil
}

// run is the state of one model run. It is owned by the dispatching goroutine.
type run struct {
	executor *Executor
	model    *ProcessModel
	dispatch *models.ExecutionReport
	report   *models.ModelReport
	tokens   *token.Context
	logger   *slog.Logger
	nesting  int
	edges    int
	halted   bool
}

func (r *run) finish(span trace.Span) {
	if len(r.report.Failures) > 0 {
		r.report.Status = models.ModelStatusFailed
		otelhelper.SetError(span, fmt.Errorf("%d branch failures", len(r.report.Failures)),
			attribute.String(otelhelper.ModelIDKey, r.model.ID))
	}
}

// visitSuccessors traverses every successor of node whose guard holds, in listed order.
// A failure on one successor never prevents its siblings from running.
func (r *run) visitSuccessors(ctx context.Context, node *Node, depth int) {
	for _, s := range node.Successors {
		if r.halted {
			return
		}

		if r.edges >= r.executor.limits.MaxEdges {
			r.halted = true
			r.record(ctx, node, &GraphDepthExceededError{
				ModelID: r.model.ID, NodeID: node.ID, Limit: "edge", Max: r.executor.limits.MaxEdges,
			})

			return
		}

		r.edges++

		if s.Guarded() {
			guard := &r.model.Nodes[s.Guard]

			result, err := r.evaluate(ctx, guard)
			if err != nil {
				r.record(ctx, guard, err)

				continue
			}

			if result == s.Negate {
				continue
			}
		}

		r.enter(ctx, &r.model.Nodes[s.Target], depth+1)
	}
}

func (r *run) enter(ctx context.Context, node *Node, depth int) {
	if depth > r.executor.limits.MaxDepth {
		r.record(ctx, node, &GraphDepthExceededError{
			ModelID: r.model.ID, NodeID: node.ID, Limit: "depth", Max: r.executor.limits.MaxDepth,
		})

		return
	}

	switch node.Kind() {
	case models.PluginKindAction:
		if err := r.execute(ctx, node); err != nil {
			r.record(ctx, node, err)

			return
		}

		r.report.Executed = append(r.report.Executed, node.ID)
		r.visitSuccessors(ctx, node, depth)
	case models.PluginKindCondition:
		result, err := r.evaluate(ctx, node)
		if err != nil {
			r.record(ctx, node, err)

			return
		}

		if result {
			r.visitSuccessors(ctx, node, depth)
		}
	case models.PluginKindGateway:
		r.visitSuccessors(ctx, node, depth)
	case models.PluginKindEvent:
		r.record(ctx, node, fmt.Errorf("event node %s reached as a successor", node.ID))
	}
}

func (r *run) execute(ctx context.Context, node *Node) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v}
		}
	}()

	return node.action.Execute(ctx, r.env(node), maps.Clone(node.Plugin.Config), r.tokens)
}

func (r *run) evaluate(ctx context.Context, node *Node) (result bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v}
		}
	}()

	return node.condition.Evaluate(ctx, r.env(node), maps.Clone(node.Plugin.Config), r.tokens)
}

// branchOutcome is the result of a branch that did not complete.
type branchOutcome struct {
	kind    models.BranchOutcomeKind
	message string
	hint    string
}

func classify(err error) branchOutcome {
	var retryable *protocol.RetryableValidationError

	switch {
	case errors.As(err, &retryable):
		return branchOutcome{kind: models.BranchOutcomeRetryable, message: retryable.Message, hint: retryable.Hint}
	case IsGraphDepthExceeded(err):
		return branchOutcome{kind: models.BranchOutcomeDepthExceeded, message: err.Error()}
	default:
		return branchOutcome{kind: models.BranchOutcomeFatal, message: err.Error()}
	}
}

func (r *run) record(ctx context.Context, node *Node, err error) {
	outcome := classify(err)

	r.report.Failures = append(r.report.Failures, models.BranchFailure{
		ModelID: r.model.ID,
		NodeID:  node.ID,
		Outcome: outcome.kind,
		Message: outcome.message,
		Hint:    outcome.hint,
	})

	logger := r.logger.With("node_id", node.ID, "plugin", node.Plugin.String(), "outcome", outcome.kind)

	switch outcome.kind {
	case models.BranchOutcomeRetryable:
		logger.WarnContext(ctx, "Branch aborted by validation", "message", outcome.message, "hint", outcome.hint)
	case models.BranchOutcomeDepthExceeded:
		logger.ErrorContext(ctx, "Branch aborted, check the model for unintended cycles", "error", err)
	default:
		logger.ErrorContext(ctx, "Branch failed", "error", err)
	}
}

func (r *run) env(node *Node) *runEnv {
	return &runEnv{run: r, node: node}
}

// runEnv is the protocol.Env handed to plugins.
type runEnv struct {
	run  *run
	node *Node
}

func (e *runEnv) Logger() *slog.Logger {
	return e.run.logger.With("node_id", e.node.ID, "plugin", e.node.Plugin.String())
}

func (e *runEnv) Now() time.Time {
	return e.run.executor.now()
}

func (e *runEnv) EnqueueTask(ctx context.Context, task models.Task) error {
	if e.run.executor.enqueuer == nil {
		return errNoTaskQueue
	}

	enqueued, err := e.run.executor.enqueuer.Enqueue(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task %s: %w", task.Name, err)
	}

	e.run.dispatch.Tasks = append(e.run.dispatch.Tasks, enqueued)

	return nil
}

func (e *runEnv) Dispatch(ctx context.Context, eventName string, instance any) (*models.ExecutionReport, error) {
	limit := e.run.executor.limits.MaxNesting
	if e.run.nesting+1 > limit {
		return nil, &GraphDepthExceededError{
			ModelID: e.run.model.ID, NodeID: e.node.ID, Limit: "nesting", Max: limit,
		}
	}

	nested := e.run.executor.dispatch(ctx, eventName, instance, e.run.nesting+1)
	e.run.dispatch.Nested = append(e.run.dispatch.Nested, nested)

	return nested, nil
}
