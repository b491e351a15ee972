package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/omnireach/omnireach/pkg/cmd"
	"github.com/omnireach/omnireach/pkg/engine"
	"github.com/omnireach/omnireach/pkg/log"
	"github.com/omnireach/omnireach/pkg/otelhelper"
	"github.com/omnireach/omnireach/pkg/scheduler"
)

func main() {
	command := &cli.Command{
		Name:                  "omnireach-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to execute outreach workflow runs",
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
				Usage:    "Database connection URL for persistence (file:// or postgres://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the job queue (in-memory queue when empty)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Number of concurrent runs",
				Value:   scheduler.DefaultConcurrency,
				Sources: cli.EnvVars("WORKER_CONCURRENCY"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Value:   false,
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	workerID := command.String("worker-id")
	if workerID == "" {
		workerID = "worker-" + uuid.New().String()[:8]
	}

	logger := log.WithModule("omnireach-worker").With("worker_id", workerID)

	logger.InfoContext(ctx, "Initializing OmniReach worker")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	persist, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		err := persist.Close(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), "omnireach", logger)
	if err != nil {
		return err
	}

	defer func() {
		err := eventBus.Close()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	var queue scheduler.Queue

	redisURL := command.String("redis-url")
	if redisURL != "" {
		queue, err = scheduler.NewRedisQueue(ctx, redisURL)
		if err != nil {
			return err
		}
	} else {
		logger.WarnContext(ctx, "No redis URL configured, using in-memory queue")

		queue = scheduler.NewMemoryQueue()
	}

	defer func() {
		err := queue.Close()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close queue", "error", err)
		}
	}()

	engineOpts := []engine.Option{
		engine.WithEventPublisher(eventBus),
		engine.WithWorkerID(workerID),
	}

	if command.Bool("tracing") {
		tracer, err := otelhelper.NewTracer(ctx, "omnireach-worker")
		if err != nil {
			return err
		}

		engineOpts = append(engineOpts, engine.WithTracer(tracer))
	}

	dispatcher := cmd.NewDispatcher(persist, logger)
	registry := cmd.NewExecutorRegistry(persist, dispatcher, logger)
	runner := engine.New(persist, registry, logger, engineOpts...)

	worker := scheduler.NewWorker(queue, runner, logger,
		scheduler.WithConcurrency(command.Int("concurrency")),
	)

	return worker.Start(ctx)
}
