package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/stratoml/strato/pkg/cmd"
	"github.com/stratoml/strato/pkg/job"
	"github.com/stratoml/strato/pkg/log"
	"github.com/stratoml/strato/pkg/otelhelper"
	"github.com/stratoml/strato/pkg/receivers/cluster"
)

func main() {
	command := &cli.Command{
		Name:                  "strato-worker",
		EnableShellCompletion: true,
		Usage:                 "Run workflow executions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the cluster event queue (disabled when empty)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("strato-worker").With("worker_id", workerID)
			logger.InfoContext(ctx, "Initializing Strato Worker")

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "strato-worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			jobManager := job.NewManager(store.Jobs(), logger)
			registry := cmd.NewRegistry(logger, jobManager)

			tracer, err := otelhelper.NewTracer(ctx, "strato-worker")
			if err != nil {
				logger.WarnContext(ctx, "Tracing disabled, OTLP exporter unavailable", "error", err)

				tracer = noop.NewTracerProvider().Tracer("strato-worker")
			}

			if addr := command.String("redis-addr"); addr != "" {
				receiver, err := cluster.NewReceiver(ctx, cluster.Config{Addr: addr}, eventBus, logger)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to start cluster receiver", "error", err)

					return err
				}

				receiver.Start(ctx)

				defer func() {
					if err := receiver.Stop(); err != nil {
						logger.ErrorContext(ctx, "Failed to stop cluster receiver", "error", err)
					}
				}()
			}

			worker := NewWorkerManager(workerID, store, eventBus, logger, registry, tracer)

			if err := worker.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
