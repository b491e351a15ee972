// Package twilio provides the SMS channel adapter backed by the Twilio
// Messages API.
package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/omnireach/omnireach/pkg/channels"
	"github.com/omnireach/omnireach/pkg/persistence"
)

const (
	providerName   = "twilio"
	defaultAPIBase = "https://api.twilio.com"
)

// Adapter sends SMS through Twilio using account SID / auth token basic auth.
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
		logger:   logger.With("module", "twilio_adapter"),
	}
}

// WithAPIBase overrides the API endpoint, used by tests.
func (a *Adapter) WithAPIBase(base string) *Adapter {
	a.apiBase = base

	return a
}

func (a *Adapter) Name() string {
	return "sms"
}

// Available reports whether the twilio integration is active and has an
// account SID configured.
func (a *Adapter) Available(ctx context.Context) bool {
	setting, err := a.settings.GetByProvider(ctx, providerName)
	if err != nil {
		return false
	}

	return setting.IsActive && setting.ConfigString("accountSid") != ""
}

// Send posts a form-encoded message to the account's Messages.json resource.
// The returned sid is the provider message id.
func (a *Adapter) Send(ctx context.Context, message channels.Message) (*channels.SendResult, error) {
	setting, err := a.settings.GetByProvider(ctx, providerName)
	if err != nil || !setting.IsActive {
		return nil, errors.New("twilio integration not configured")
	}

	accountSid := setting.ConfigString("accountSid")
	authToken := setting.ConfigString("authToken")

	if accountSid == "" || authToken == "" {
		return nil, errors.New("twilio credentials not found")
	}

	fromNumber := message.FromNumber
	if fromNumber == "" {
		fromNumber = setting.ConfigString("fromNumber")
	}

	if fromNumber == "" {
		return nil, errors.New("no twilio phone number configured")
	}

	form := url.Values{
		"To":   {message.To},
		"From": {fromNumber},
		"Body": {message.Content},
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", a.apiBase, accountSid)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(accountSid, authToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Sid     string `json:"sid"`
		Message string `json:"message"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil && resp.StatusCode < http.StatusBadRequest {
		return nil, fmt.Errorf("failed to decode twilio response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		reason := payload.Message
		if reason == "" {
			reason = "unknown error"
		}

		return nil, fmt.Errorf("twilio API error: %d - %s", resp.StatusCode, reason)
	}

	a.logger.InfoContext(ctx, "SMS accepted by Twilio", "to", message.To, "sid", payload.Sid)

	return &channels.SendResult{Channel: a.Name(), MessageID: payload.Sid}, nil
}
