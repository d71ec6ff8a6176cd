package cmd

import (
	"log/slog"

	"github.com/dukex/eca/pkg/queue"
	"github.com/dukex/eca/pkg/registry"
	"github.com/dukex/eca/pkg/workflow"
	"go.opentelemetry.io/otel/trace"
)

// Engine bundles the wired engine components shared by the commands and the HTTP API.
type Engine struct {
	Registry   *registry.Registry
	Compiler   *workflow.Compiler
	Repository *workflow.Repository
	Executor   *workflow.Executor
	Queue      *queue.Queue
	Loader     *workflow.Loader
}

// NewEngine wires the compiler, model registry, executor and task queue together. The
// executor enqueues tasks into the queue. modelStore may be nil for a purely in-memory
// engine and tracer may be nil to disable tracing.
func NewEngine(
	logger *slog.Logger,
	reg *registry.Registry,
	taskStore queue.Store,
	modelStore workflow.ModelStore,
	limits workflow.Limits,
	tracer trace.Tracer,
) *Engine {
	compiler := workflow.NewCompiler(logger, reg)
	repository := workflow.NewRepository(logger)
	queueOpts := []queue.Option{}
	if tracer != nil {
		queueOpts = append(queueOpts, queue.WithTracer(tracer))
	}

	tasks := queue.New(logger, taskStore, queueOpts...)

	opts := []workflow.Option{
		workflow.WithLimits(limits),
		workflow.WithTaskEnqueuer(tasks),
	}
	if tracer != nil {
		opts = append(opts, workflow.WithTracer(tracer))
	}

	executor := workflow.NewExecutor(logger, repository, opts...)

	return &Engine{
		Registry:   reg,
		Compiler:   compiler,
		Repository: repository,
		Executor:   executor,
		Queue:      tasks,
		Loader:     workflow.NewLoader(logger, compiler, repository, modelStore),
	}
}
