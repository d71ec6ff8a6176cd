package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dukex/eca/pkg/cmd"
	"github.com/dukex/eca/pkg/otelhelper"
	"github.com/dukex/eca/pkg/persistence"
	"github.com/dukex/eca/pkg/queue"
	"github.com/dukex/eca/pkg/workflow"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

// environment holds the components built from the engine flags.
type environment struct {
	engine     *cmd.Engine
	modelStore persistence.Persistence
	taskStore  io.Closer
	worker     *queue.Worker
}

func (e *environment) Close(ctx context.Context) error {
	return errors.Join(e.taskStore.Close(), e.modelStore.Close(ctx))
}

func setupEnvironment(ctx context.Context, command *cli.Command, logger *slog.Logger, service string) (*environment, error) {
	reg, err := cmd.NewRegistry(ctx, logger, command.String("plugins-path"))
	if err != nil {
		return nil, err
	}

	modelStore, err := cmd.NewModelStore(ctx, logger, command.String("models-path"))
	if err != nil {
		return nil, err
	}

	taskStore, closer, err := cmd.NewTaskStore(ctx, logger, command.String("task-store"))
	if err != nil {
		_ = modelStore.Close(ctx)

		return nil, err
	}

	var tracer trace.Tracer

	if command.Bool("tracing") {
		tracer, err = otelhelper.NewTracer(ctx, service)
		if err != nil {
			_ = closer.Close()
			_ = modelStore.Close(ctx)

			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
	}

	limits := workflow.Limits{
		MaxDepth:   command.Int("max-depth"),
		MaxEdges:   command.Int("max-edges"),
		MaxNesting: command.Int("max-nesting"),
	}

	engine := cmd.NewEngine(logger, reg, taskStore, modelStore, limits, tracer)

	loaded, err := engine.Loader.LoadAll(ctx)
	if err != nil {
		// Models that compiled are registered; the rejected ones were logged.
		logger.WarnContext(ctx, "Some models were rejected", "loaded", loaded, "error", err)
	}

	worker := queue.NewWorker(logger, engine.Queue, engine.Executor,
		queue.WithSchedule(command.String("worker-schedule")),
		queue.WithBatchSize(command.Int("worker-batch")),
	)

	return &environment{
		engine:     engine,
		modelStore: modelStore,
		taskStore:  closer,
		worker:     worker,
	}, nil
}
