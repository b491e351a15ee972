package executors

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/omnireach/omnireach/pkg/channels"
	"github.com/omnireach/omnireach/pkg/graph"
	"github.com/omnireach/omnireach/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Shared test fixtures for the executor suite.

type fakeAdapter struct {
	name      string
	available bool
	err       error
	messageID string
	sent      []channels.Message
}

func (a *fakeAdapter) Name() string                     { return a.name }
func (a *fakeAdapter) Available(_ context.Context) bool { return a.available }

func (a *fakeAdapter) Send(_ context.Context, message channels.Message) (*channels.SendResult, error) {
	a.sent = append(a.sent, message)
	if a.err != nil {
		return nil, a.err
	}

	return &channels.SendResult{Channel: a.name, MessageID: a.messageID}, nil
}

type messageStore struct {
	created []*models.Message
}

func (s *messageStore) Create(_ context.Context, message *models.Message) error {
	s.created = append(s.created, message)

	return nil
}

func (s *messageStore) ListByExecution(_ context.Context, executionID string) ([]*models.Message, error) {
	out := make([]*models.Message, 0)

	for _, message := range s.created {
		if message.ExecutionID == executionID {
			out = append(out, message)
		}
	}

	return out, nil
}

type fakeGenerator struct {
	text string
	err  error
}

func (g *fakeGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	return g.text, g.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func execContext(lead *models.Lead, persona *models.Persona) *models.ExecutionContext {
	return models.NewExecutionContext(&models.WorkflowExecution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		LeadID:     "lead-1",
	}, lead, persona)
}

func emptyGraph() *graph.Graph {
	return graph.New(nil, nil)
}

func TestRegistry_Lookup(t *testing.T) {
	registry := NewRegistry(testLogger())
	registry.Register(NewWaitExecutor(testLogger()))

	executor, ok := registry.Get(models.NodeTypeWait)
	require.True(t, ok)
	assert.Equal(t, models.NodeTypeWait, executor.Type())

	_, ok = registry.Get(models.NodeTypeAI)
	assert.False(t, ok)
}

func TestRegistry_ValidateConfig(t *testing.T) {
	registry := NewRegistry(testLogger())
	registry.Register(NewWaitExecutor(testLogger()))

	valid := &models.WorkflowNode{ID: "w1", NodeType: models.NodeTypeWait, Config: map[string]any{"waitMinutes": 30}}
	assert.NoError(t, registry.ValidateConfig(valid))

	noConfig := &models.WorkflowNode{ID: "w2", NodeType: models.NodeTypeWait}
	assert.NoError(t, registry.ValidateConfig(noConfig))

	invalid := &models.WorkflowNode{ID: "w3", NodeType: models.NodeTypeWait, Config: map[string]any{"waitMinutes": "soon"}}
	assert.ErrorContains(t, registry.ValidateConfig(invalid), "invalid config for node w3")

	unknown := &models.WorkflowNode{ID: "w4", NodeType: "teleport", Config: map[string]any{"anything": true}}
	assert.NoError(t, registry.ValidateConfig(unknown), "unknown node types execute as no-ops, config is inert")
}

func TestWaitExecutor_AlwaysSucceeds(t *testing.T) {
	executor := NewWaitExecutor(testLogger())

	node := &models.WorkflowNode{ID: "w1", NodeType: models.NodeTypeWait, Config: map[string]any{"waitMinutes": 15}}

	result, err := executor.Execute(context.Background(), node, emptyGraph(), execContext(nil, nil))
	require.NoError(t, err)
	assert.Empty(t, result.NextNodeID)

	// waitMinutes absent is fine too.
	result, err = executor.Execute(context.Background(), &models.WorkflowNode{ID: "w2", NodeType: models.NodeTypeWait}, emptyGraph(), execContext(nil, nil))
	require.NoError(t, err)
	assert.Empty(t, result.NextNodeID)
}
