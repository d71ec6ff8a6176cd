package main

import (
	"github.com/dukex/eca/pkg/queue"
	"github.com/dukex/eca/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func logLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		Value:   "info",
		Sources: cli.EnvVars("LOG_LEVEL"),
	}
}

func modelsPathFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "models-path",
		Usage:   "Model store: a directory (optionally file://) or a postgres:// URL",
		Value:   "./data",
		Sources: cli.EnvVars("MODELS_PATH"),
	}
}

func pluginsPathFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "plugins-path",
		Usage:   "Path to the directory containing plugins",
		Value:   "./plugins",
		Sources: cli.EnvVars("PLUGINS_PATH"),
	}
}

// engineFlags are shared by the commands that dispatch events.
func engineFlags() []cli.Flag {
	limits := workflow.DefaultLimits()

	return []cli.Flag{
		logLevelFlag(),
		modelsPathFlag(),
		pluginsPathFlag(),
		&cli.StringFlag{
			Name:    "task-store",
			Usage:   "Deferred task store: memory://, redis:// or postgres:// URL",
			Value:   "memory://",
			Sources: cli.EnvVars("TASK_STORE_URL"),
		},
		&cli.IntFlag{
			Name:    "max-depth",
			Usage:   "Maximum number of nodes on one branch",
			Value:   limits.MaxDepth,
			Sources: cli.EnvVars("MAX_DEPTH"),
		},
		&cli.IntFlag{
			Name:    "max-edges",
			Usage:   "Maximum number of edges traversed by one model run",
			Value:   limits.MaxEdges,
			Sources: cli.EnvVars("MAX_EDGES"),
		},
		&cli.IntFlag{
			Name:    "max-nesting",
			Usage:   "Maximum depth of re-entrant dispatches",
			Value:   limits.MaxNesting,
			Sources: cli.EnvVars("MAX_NESTING"),
		},
		&cli.StringFlag{
			Name:    "worker-schedule",
			Usage:   "Cron schedule of the deferred task worker",
			Value:   queue.DefaultSchedule,
			Sources: cli.EnvVars("WORKER_SCHEDULE"),
		},
		&cli.IntFlag{
			Name:    "worker-batch",
			Usage:   "Maximum tasks processed per worker tick",
			Value:   queue.DefaultBatchSize,
			Sources: cli.EnvVars("WORKER_BATCH_SIZE"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
	}
}
