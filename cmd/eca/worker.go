package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/eca/pkg/log"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

// WorkerCommand runs only the deferred task worker. With a shared task store several
// workers can drain the same queue.
func WorkerCommand() *cli.Command {
	flags := append(engineFlags(),
		&cli.StringFlag{
			Name:    "worker-id",
			Aliases: []string{"id"},
			Usage:   "Custom worker ID (auto-generated if not provided)",
			Sources: cli.EnvVars("WORKER_ID"),
		},
	)

	return &cli.Command{
		Name:    "worker",
		Aliases: []string{"w"},
		Usage:   "Process deferred tasks",
		Flags:   flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("eca-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing ECA worker")

			env, err := setupEnvironment(ctx, command, logger, "eca-worker")
			if err != nil {
				return err
			}

			defer func() {
				if err := env.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close stores", "error", err)
				}
			}()

			err = env.worker.Start(ctx)
			if err != nil {
				return err
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-sigChan:
				logger.InfoContext(ctx, "Received shutdown signal")
			case <-ctx.Done():
			}

			return env.worker.Stop(context.WithoutCancel(ctx))
		},
	}
}
