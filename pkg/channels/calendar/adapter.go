// Package calendar provides the calendar channel adapter backed by Calendly.
// Invite sending is not wired up yet; the adapter reports availability from
// settings but refuses to send.
package calendar

import (
	"context"
	"errors"
	"log/slog"

	"github.com/omnireach/omnireach/pkg/channels"
	"github.com/omnireach/omnireach/pkg/persistence"
)

const providerName = "calendly"

type Adapter struct {
	settings persistence.IntegrationSettingRepository
	logger   *slog.Logger
}

func NewAdapter(settings persistence.IntegrationSettingRepository, logger *slog.Logger) *Adapter {
	return &Adapter{
		settings: settings,
		logger:   logger.With("module", "calendar_adapter"),
	}
}

func (a *Adapter) Name() string {
	return "calendar"
}

func (a *Adapter) Available(ctx context.Context) bool {
	setting, err := a.settings.GetByProvider(ctx, providerName)
	if err != nil {
		return false
	}

	return setting.IsActive
}

func (a *Adapter) Send(ctx context.Context, _ channels.Message) (*channels.SendResult, error) {
	a.logger.WarnContext(ctx, "Calendar adapter not fully implemented yet")

	return nil, errors.New("calendar integration not yet implemented")
}
