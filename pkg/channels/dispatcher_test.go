package channels

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	name      string
	available bool
	err       error
	messageID string
	sends     int
}

func (a *fakeAdapter) Name() string                     { return a.name }
func (a *fakeAdapter) Available(_ context.Context) bool { return a.available }

func (a *fakeAdapter) Send(_ context.Context, _ Message) (*SendResult, error) {
	a.sends++
	if a.err != nil {
		return nil, a.err
	}

	return &SendResult{Channel: a.name, MessageID: a.messageID}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestSend_UnknownChannel(t *testing.T) {
	d := NewDispatcher(testLogger())

	_, err := d.Send(context.Background(), "carrier-pigeon", Message{To: "x"})
	assert.ErrorContains(t, err, "unknown channel: carrier-pigeon")
}

func TestSend_UnavailableChannel(t *testing.T) {
	d := NewDispatcher(testLogger(), &fakeAdapter{name: "email", available: false})

	_, err := d.Send(context.Background(), "email", Message{To: "x"})
	assert.ErrorContains(t, err, "not configured or unavailable")
}

func TestSend_DelegatesToAdapter(t *testing.T) {
	adapter := &fakeAdapter{name: "email", available: true, messageID: "msg-1"}
	d := NewDispatcher(testLogger(), adapter)

	result, err := d.Send(context.Background(), "email", Message{To: "a@b.co", Subject: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "email", result.Channel)
	assert.Equal(t, "msg-1", result.MessageID)
	assert.Equal(t, 1, adapter.sends)
}

func TestSendWithFallback_PreferredUnavailableFallsBack(t *testing.T) {
	sms := &fakeAdapter{name: "sms", available: false}
	email := &fakeAdapter{name: "email", available: true, messageID: "msg-2"}
	d := NewDispatcher(testLogger(), sms, email)

	result, err := d.SendWithFallback(context.Background(), Message{To: "a@b.co", Subject: "hi"}, []string{"sms"})
	require.NoError(t, err)
	assert.Equal(t, "email", result.Channel)
	assert.Equal(t, 0, sms.sends, "unavailable channel must be skipped, not tried")
}

func TestSendWithFallback_FailureMovesToNextCandidate(t *testing.T) {
	email := &fakeAdapter{name: "email", available: true, err: errors.New("smtp down")}
	sms := &fakeAdapter{name: "sms", available: true, messageID: "msg-3"}
	d := NewDispatcher(testLogger(), email, sms)

	result, err := d.SendWithFallback(context.Background(), Message{To: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "sms", result.Channel)
	assert.Equal(t, 1, email.sends)
}

func TestSendWithFallback_AllExhaustedCarriesLastError(t *testing.T) {
	email := &fakeAdapter{name: "email", available: true, err: errors.New("smtp down")}
	sms := &fakeAdapter{name: "sms", available: true, err: errors.New("twilio down")}
	d := NewDispatcher(testLogger(), email, sms)

	_, err := d.SendWithFallback(context.Background(), Message{To: "x"}, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "all channels failed")
	assert.ErrorContains(t, err, "twilio down")
}

func TestSendWithFallback_DeduplicatesPreservingFirstOccurrence(t *testing.T) {
	email := &fakeAdapter{name: "email", available: true, err: errors.New("down")}
	d := NewDispatcher(testLogger(), email)

	_, err := d.SendWithFallback(context.Background(), Message{To: "x"}, []string{"email", "email"})
	require.Error(t, err)
	assert.Equal(t, 1, email.sends, "a channel listed twice must only be tried once")
}

func TestAvailableChannels(t *testing.T) {
	d := NewDispatcher(testLogger(),
		&fakeAdapter{name: "email", available: true},
		&fakeAdapter{name: "sms", available: false},
	)

	assert.Equal(t, []string{"email"}, d.AvailableChannels(context.Background()))
}
