// Package linkedin provides the LinkedIn channel adapter. Messaging through
// the LinkedIn API needs OAuth scopes that are not wired up yet, so the
// adapter reports availability from settings but refuses to send.
package linkedin

import (
	"context"
	"errors"
	"log/slog"

	"github.com/omnireach/omnireach/pkg/channels"
	"github.com/omnireach/omnireach/pkg/persistence"
)

const providerName = "linkedin"

type Adapter struct {
	settings persistence.IntegrationSettingRepository
	logger   *slog.Logger
}

func NewAdapter(settings persistence.IntegrationSettingRepository, logger *slog.Logger) *Adapter {
	return &Adapter{
		settings: settings,
		logger:   logger.With("module", "linkedin_adapter"),
	}
}

func (a *Adapter) Name() string {
	return "linkedin"
}

func (a *Adapter) Available(ctx context.Context) bool {
	setting, err := a.settings.GetByProvider(ctx, providerName)
	if err != nil {
		return false
	}

	return setting.IsActive
}

func (a *Adapter) Send(ctx context.Context, _ channels.Message) (*channels.SendResult, error) {
	a.logger.WarnContext(ctx, "LinkedIn adapter not fully implemented yet")

	return nil, errors.New("linkedin integration not yet implemented")
}
