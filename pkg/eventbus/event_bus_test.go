package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnireach/omnireach/pkg/eventbus"
	"github.com/omnireach/omnireach/pkg/eventbus/gochannel"
	"github.com/omnireach/omnireach/pkg/events"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestWatermillEventBus_PublishAndSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	received := make(chan *events.ExecutionStarted, 1)

	err := bus.Handle(events.ExecutionStartedEvent, func(_ context.Context, event any) error {
		started, ok := event.(*events.ExecutionStarted)
		if ok {
			received <- started
		}

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(ctx))

	published := events.ExecutionStarted{
		BaseEvent:    events.NewBaseEvent(events.ExecutionStartedEvent, "wf-1"),
		ExecutionID:  "exec-1",
		LeadID:       "lead-1",
		WorkflowName: "Welcome sequence",
		StartNodeID:  "node-a",
	}

	require.NoError(t, bus.Publish(ctx, "wf-1", published))

	select {
	case got := <-received:
		assert.Equal(t, "exec-1", got.ExecutionID)
		assert.Equal(t, "lead-1", got.LeadID)
		assert.Equal(t, "wf-1", got.WorkflowID)
		assert.Equal(t, "Welcome sequence", got.WorkflowName)
		assert.Equal(t, "node-a", got.StartNodeID)
		assert.Equal(t, events.ExecutionStartedEvent, got.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for execution started event")
	}
}

func TestWatermillEventBus_UnhandledEventTypeIsSkipped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	received := make(chan *events.ExecutionCompleted, 1)

	err := bus.Handle(events.ExecutionCompletedEvent, func(_ context.Context, event any) error {
		completed, ok := event.(*events.ExecutionCompleted)
		if ok {
			received <- completed
		}

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for failures; the bus must ack and move on.
	failed := events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, "wf-1"),
		ExecutionID: "exec-1",
		Error:       "node b failed",
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", failed))

	completed := events.ExecutionCompleted{
		BaseEvent:     events.NewBaseEvent(events.ExecutionCompletedEvent, "wf-1"),
		ExecutionID:   "exec-1",
		LeadID:        "lead-1",
		NodesExecuted: 3,
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", completed))

	select {
	case got := <-received:
		assert.Equal(t, "exec-1", got.ExecutionID)
		assert.Equal(t, 3, got.NodesExecuted)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for execution completed event")
	}
}
