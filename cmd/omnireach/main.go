// Command omnireach is the operator CLI for workflow runs: start a run for a
// lead, pause or resume it, and inspect run status. The worker process picks
// up whatever this commands enqueues.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/omnireach/omnireach/pkg/cmd"
	"github.com/omnireach/omnireach/pkg/eventbus"
	"github.com/omnireach/omnireach/pkg/log"
	"github.com/omnireach/omnireach/pkg/persistence"
	"github.com/omnireach/omnireach/pkg/runs"
	"github.com/omnireach/omnireach/pkg/scheduler"
)

func main() {
	command := &cli.Command{
		Name:                  "omnireach",
		EnableShellCompletion: true,
		Usage:                 "Manage outreach workflow runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file:// or postgres://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "redis-url",
				Usage:    "Redis URL for the job queue",
				Required: true,
				Sources:  cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Start a workflow run for a lead",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "workflow-id", Required: true, Usage: "Workflow to run"},
					&cli.StringFlag{Name: "lead-id", Required: true, Usage: "Lead to run the workflow for"},
				},
				Action: withService(func(ctx context.Context, command *cli.Command, service *runs.Service) error {
					execution, err := service.Start(ctx, command.String("workflow-id"), command.String("lead-id"))
					if err != nil {
						return err
					}

					return printJSON(execution)
				}),
			},
			{
				Name:  "pause",
				Usage: "Pause a queued or delayed run",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "execution-id", Required: true, Usage: "Execution to pause"},
				},
				Action: withService(func(ctx context.Context, command *cli.Command, service *runs.Service) error {
					executionID := command.String("execution-id")

					paused, err := service.Pause(ctx, executionID)
					if err != nil {
						return err
					}

					if !paused {
						return fmt.Errorf("execution %s cannot be paused", executionID)
					}

					fmt.Printf("execution %s paused\n", executionID)

					return nil
				}),
			},
			{
				Name:  "resume",
				Usage: "Resume a paused or failed run",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "execution-id", Required: true, Usage: "Execution to resume"},
				},
				Action: withService(func(ctx context.Context, command *cli.Command, service *runs.Service) error {
					executionID := command.String("execution-id")

					resumed, err := service.Resume(ctx, executionID)
					if err != nil {
						return err
					}

					if !resumed {
						return fmt.Errorf("execution %s cannot be resumed", executionID)
					}

					fmt.Printf("execution %s resumed\n", executionID)

					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "Show a run's persisted and queued state",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "execution-id", Required: true, Usage: "Execution to inspect"},
				},
				Action: withService(func(ctx context.Context, command *cli.Command, service *runs.Service) error {
					status, err := service.Status(ctx, command.String("execution-id"))
					if err != nil {
						return err
					}

					return printJSON(status)
				}),
			},
			{
				Name:  "list",
				Usage: "List runs of a workflow, most recent first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "workflow-id", Required: true, Usage: "Workflow to list runs for"},
				},
				Action: withService(func(ctx context.Context, command *cli.Command, service *runs.Service) error {
					executions, err := service.ListByWorkflow(ctx, command.String("workflow-id"))
					if err != nil {
						return err
					}

					return printJSON(executions)
				}),
			},
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

// withService wires persistence, queue and event bus for one command
// invocation and tears them down afterwards.
func withService(action func(ctx context.Context, command *cli.Command, service *runs.Service) error) func(context.Context, *cli.Command) error {
	return func(ctx context.Context, command *cli.Command) error {
		log.Setup(command.String("log-level"))
		logger := log.WithModule("omnireach-cli")

		persist, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
		if err != nil {
			return err
		}

		defer closePersistence(ctx, persist)

		queue, err := scheduler.NewRedisQueue(ctx, command.String("redis-url"))
		if err != nil {
			return err
		}

		defer func() {
			_ = queue.Close()
		}()

		eventBus, err := cmd.NewEventBus(command.String("event-bus"), "omnireach", logger)
		if err != nil {
			return err
		}

		defer closeEventBus(eventBus)

		service := runs.NewService(persist, queue, eventBus, logger)

		return action(ctx, command, service)
	}
}

func closePersistence(ctx context.Context, persist persistence.Persistence) {
	_ = persist.Close(ctx)
}

func closeEventBus(eventBus eventbus.EventBus) {
	_ = eventBus.Close()
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}
