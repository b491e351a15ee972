// Package sendgrid provides the email channel adapter backed by the SendGrid
// v3 mail send API.
package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/omnireach/omnireach/pkg/channels"
	"github.com/omnireach/omnireach/pkg/persistence"
)

const (
	providerName   = "sendgrid"
	defaultAPIBase = "https://api.sendgrid.com"
	defaultFrom    = "noreply@omnireach.app"
	defaultName    = "OmniReach"
)

// Adapter sends email through SendGrid. Credentials are resolved per send
// from the integration settings, so a settings change applies without
// restarting workers.
type Adapter struct {
	settings persistence.IntegrationSettingRepository
	client   *http.Client
	apiBase  string
	logger   *slog.Logger
}

func NewAdapter(settings persistence.IntegrationSettingRepository, logger *slog.Logger) *Adapter {
	return &Adapter{
		settings: settings,
		client:   &http.Client{Timeout: 30 * time.Second},
		apiBase:  defaultAPIBase,
		logger:   logger.With("module", "sendgrid_adapter"),
	}
}

// WithAPIBase overrides the API endpoint, used by tests.
func (a *Adapter) WithAPIBase(base string) *Adapter {
	a.apiBase = base

	return a
}

func (a *Adapter) Name() string {
	return "email"
}

// Available reports whether the sendgrid integration is active and carries an
// API key.
func (a *Adapter) Available(ctx context.Context) bool {
	setting, err := a.settings.GetByProvider(ctx, providerName)
	if err != nil {
		return false
	}

	return setting.IsActive && setting.ConfigString("apiKey") != ""
}

// Send posts to /v3/mail/send with open and click tracking enabled. The
// provider message id comes back in the X-Message-Id response header.
func (a *Adapter) Send(ctx context.Context, message channels.Message) (*channels.SendResult, error) {
	if message.Subject == "" {
		return nil, errors.New("email requires a subject")
	}

	setting, err := a.settings.GetByProvider(ctx, providerName)
	if err != nil || !setting.IsActive {
		return nil, errors.New("sendgrid integration not configured")
	}

	apiKey := setting.ConfigString("apiKey")
	if apiKey == "" {
		return nil, errors.New("sendgrid API key not found")
	}

	fromEmail := message.FromEmail
	if fromEmail == "" {
		fromEmail = setting.ConfigString("fromEmail")
	}

	if fromEmail == "" {
		fromEmail = defaultFrom
	}

	fromName := message.FromName
	if fromName == "" {
		fromName = setting.ConfigString("fromName")
	}

	if fromName == "" {
		fromName = defaultName
	}

	payload := map[string]any{
		"personalizations": []map[string]any{
			{
				"to":      []map[string]string{{"email": message.To}},
				"subject": message.Subject,
			},
		},
		"from": map[string]string{
			"email": fromEmail,
			"name":  fromName,
		},
		"content": []map[string]string{
			{"type": "text/html", "value": message.Content},
		},
		"tracking_settings": map[string]any{
			"click_tracking": map[string]any{"enable": true, "enable_text": false},
			"open_tracking":  map[string]any{"enable": true},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sendgrid payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sendgrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		errorText, _ := io.ReadAll(resp.Body)

		return nil, fmt.Errorf("sendgrid API error: %d - %s", resp.StatusCode, string(errorText))
	}

	messageID := resp.Header.Get("X-Message-Id")

	a.logger.InfoContext(ctx, "Email accepted by SendGrid", "to", message.To, "message_id", messageID)

	return &channels.SendResult{Channel: a.Name(), MessageID: messageID}, nil
}
