package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	kafkachannel "github.com/dukex/eca/pkg/channels/kafka"
	"github.com/dukex/eca/pkg/cmd"
	"github.com/dukex/eca/pkg/eventbus"
	"github.com/dukex/eca/pkg/log"
	"github.com/dukex/eca/pkg/receivers/kafka"
	"github.com/dukex/eca/pkg/receivers/schedule"
	cli "github.com/urfave/cli/v3"
)

// RunCommand starts the HTTP API, the event bus bridge, the receivers and the deferred task
// worker in one process. The Kafka receiver only runs when brokers are configured.
func RunCommand() *cli.Command {
	flags := append(engineFlags(),
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "schedule-resync",
			Usage:   "How often schedule events are refreshed from the registered models",
			Value:   schedule.DefaultResync,
			Sources: cli.EnvVars("SCHEDULE_RESYNC"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "kafka-consumer-group",
			Usage:   "Consumer group of the Kafka topic receiver",
			Value:   kafka.DefaultConsumerGroup,
			Sources: cli.EnvVars("KAFKA_CONSUMER_GROUP"),
		},
	)

	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start the API, the event bus bridge and the task worker",
		Flags:   flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("eca")

			logger.InfoContext(ctx, "Initializing ECA engine")

			env, err := setupEnvironment(ctx, command, logger, "eca")
			if err != nil {
				return err
			}

			defer func() {
				if err := env.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close stores", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			err = eventbus.NewBridge(logger, eventBus, env.engine.Executor).Start(ctx)
			if err != nil {
				return err
			}

			err = env.worker.Start(ctx)
			if err != nil {
				return err
			}

			receiver := schedule.NewScheduleReceiver(logger, env.engine.Repository, env.engine.Executor,
				schedule.WithResync(command.String("schedule-resync")),
			)

			err = receiver.Start(ctx)
			if err != nil {
				return err
			}

			var topics *kafka.KafkaReceiver

			if brokers := kafkachannel.ParseBrokers(command.String("kafka-brokers")); len(brokers) > 0 {
				topics = kafka.NewKafkaReceiver(logger, brokers, env.engine.Repository, env.engine.Executor,
					kafka.WithConsumerGroup(command.String("kafka-consumer-group")),
				)

				err = topics.Start(ctx)
				if err != nil {
					return err
				}
			}

			api := NewAPI(logger, env.engine, env.modelStore)

			go func() {
				sigChan := make(chan os.Signal, 1)
				signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

				select {
				case <-sigChan:
					logger.InfoContext(ctx, "Received shutdown signal")
				case <-ctx.Done():
				}

				if err := api.Shutdown(); err != nil {
					logger.ErrorContext(ctx, "Failed to stop API", "error", err)
				}
			}()

			err = api.Start(command.Int("port"))

			if stopErr := env.worker.Stop(context.WithoutCancel(ctx)); stopErr != nil {
				logger.ErrorContext(ctx, "Failed to stop worker", "error", stopErr)
			}

			if stopErr := receiver.Stop(context.WithoutCancel(ctx)); stopErr != nil {
				logger.ErrorContext(ctx, "Failed to stop schedule receiver", "error", stopErr)
			}

			if topics != nil {
				if stopErr := topics.Stop(context.WithoutCancel(ctx)); stopErr != nil {
					logger.ErrorContext(ctx, "Failed to stop Kafka receiver", "error", stopErr)
				}
			}

			return err
		},
	}
}
