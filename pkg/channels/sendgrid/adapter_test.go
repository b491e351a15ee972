package sendgrid

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/omnireach/omnireach/pkg/channels"
	"github.com/omnireach/omnireach/pkg/models"
	"github.com/omnireach/omnireach/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settingsStub struct {
	setting *models.IntegrationSetting
}

func (s *settingsStub) GetByProvider(_ context.Context, provider string) (*models.IntegrationSetting, error) {
	if s.setting == nil || s.setting.Provider != provider {
		return nil, persistence.ErrSettingNotFound
	}

	return s.setting, nil
}

func (s *settingsStub) Save(_ context.Context, setting *models.IntegrationSetting) error {
	s.setting = setting

	return nil
}

func activeSetting() *models.IntegrationSetting {
	return &models.IntegrationSetting{
		Provider: "sendgrid",
		IsActive: true,
		Config:   map[string]any{"apiKey": "sg-key", "fromEmail": "sales@acme.io", "fromName": "Acme"},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestAvailable(t *testing.T) {
	adapter := NewAdapter(&settingsStub{setting: activeSetting()}, testLogger())
	assert.True(t, adapter.Available(context.Background()))

	inactive := activeSetting()
	inactive.IsActive = false
	adapter = NewAdapter(&settingsStub{setting: inactive}, testLogger())
	assert.False(t, adapter.Available(context.Background()))

	adapter = NewAdapter(&settingsStub{}, testLogger())
	assert.False(t, adapter.Available(context.Background()))
}

func TestSend_RequiresSubject(t *testing.T) {
	adapter := NewAdapter(&settingsStub{setting: activeSetting()}, testLogger())

	_, err := adapter.Send(context.Background(), channels.Message{To: "a@b.co", Content: "hi"})
	assert.ErrorContains(t, err, "requires a subject")
}

func TestSend_PostsMailSendPayload(t *testing.T) {
	var captured map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("X-Message-Id", "sg-msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	adapter := NewAdapter(&settingsStub{setting: activeSetting()}, testLogger()).WithAPIBase(server.URL)

	result, err := adapter.Send(context.Background(), channels.Message{
		To:      "lead@corp.io",
		Subject: "Hello",
		Content: "<p>hi</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "email", result.Channel)
	assert.Equal(t, "sg-msg-1", result.MessageID)

	from, ok := captured["from"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sales@acme.io", from["email"])

	tracking, ok := captured["tracking_settings"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, tracking, "open_tracking")
	assert.Contains(t, tracking, "click_tracking")
}

func TestSend_APIErrorIncludesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer server.Close()

	adapter := NewAdapter(&settingsStub{setting: activeSetting()}, testLogger()).WithAPIBase(server.URL)

	_, err := adapter.Send(context.Background(), channels.Message{To: "x", Subject: "s"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "sendgrid API error: 401")
	assert.ErrorContains(t, err, "bad key")
}
