package cmd

import (
	"log/slog"

	"github.com/omnireach/omnireach/pkg/ai"
	"github.com/omnireach/omnireach/pkg/channels"
	"github.com/omnireach/omnireach/pkg/channels/calendar"
	"github.com/omnireach/omnireach/pkg/channels/linkedin"
	"github.com/omnireach/omnireach/pkg/channels/sendgrid"
	"github.com/omnireach/omnireach/pkg/channels/twilio"
	"github.com/omnireach/omnireach/pkg/executors"
	"github.com/omnireach/omnireach/pkg/persistence"
)

// NewDispatcher wires every channel adapter over the stored integration
// settings.
func NewDispatcher(persist persistence.Persistence, logger *slog.Logger) *channels.Dispatcher {
	settings := persist.IntegrationSettings()

	return channels.NewDispatcher(logger,
		sendgrid.NewAdapter(settings, logger),
		twilio.NewAdapter(settings, logger),
		linkedin.NewAdapter(settings, logger),
		calendar.NewAdapter(settings, logger),
	)
}

// NewExecutorRegistry registers the native node executors.
func NewExecutorRegistry(persist persistence.Persistence, dispatcher *channels.Dispatcher, logger *slog.Logger) *executors.Registry {
	generator := ai.NewOpenRouterGenerator(persist.IntegrationSettings(), logger)
	messages := persist.Messages()

	registry := executors.NewRegistry(logger)
	registry.Register(executors.NewAIExecutor(generator, logger))
	registry.Register(executors.NewEmailExecutor(dispatcher, messages, logger))
	registry.Register(executors.NewSMSExecutor(dispatcher, messages, logger))
	registry.Register(executors.NewWaitExecutor(logger))
	registry.Register(executors.NewDecisionExecutor(logger))

	return registry
}
