package executors

import (
	"context"
	"testing"

	"github.com/omnireach/omnireach/pkg/ai"
	"github.com/omnireach/omnireach/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aiNode() *models.WorkflowNode {
	return &models.WorkflowNode{ID: "n1", WorkflowID: "wf-1", NodeType: models.NodeTypeAI}
}

func TestAIExecutor_NoPersonaSkipsWithoutError(t *testing.T) {
	executor := NewAIExecutor(&fakeGenerator{text: "draft"}, testLogger())
	execCtx := execContext(&models.Lead{ID: "lead-1", Name: "Ada"}, nil)

	result, err := executor.Execute(context.Background(), aiNode(), emptyGraph(), execCtx)
	require.NoError(t, err)
	assert.Empty(t, result.NextNodeID)
	assert.NotContains(t, execCtx.Variables, models.VarAIGeneratedMessage)
}

func TestAIExecutor_WritesVariables(t *testing.T) {
	executor := NewAIExecutor(&fakeGenerator{text: "Hi Ada, let's talk."}, testLogger())
	persona := &models.Persona{ID: "p1", Name: "Friendly SDR", SystemPrompt: "be warm"}
	execCtx := execContext(&models.Lead{ID: "lead-1", Name: "Ada", Company: "Babbage Ltd", Email: "ada@babbage.io"}, persona)

	_, err := executor.Execute(context.Background(), aiNode(), emptyGraph(), execCtx)
	require.NoError(t, err)

	assert.Equal(t, "Hi Ada, let's talk.", execCtx.Variables[models.VarAIGeneratedMessage])
	assert.Equal(t, "Message from Friendly SDR", execCtx.Variables[models.VarAIGeneratedSubject])
}

func TestAIExecutor_GeneratorNotConfiguredIsFatal(t *testing.T) {
	executor := NewAIExecutor(&fakeGenerator{err: ai.ErrNotConfigured}, testLogger())
	execCtx := execContext(&models.Lead{ID: "lead-1"}, &models.Persona{ID: "p1", Name: "X", SystemPrompt: "y"})

	_, err := executor.Execute(context.Background(), aiNode(), emptyGraph(), execCtx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrNotConfigured)
}

func TestAIExecutor_EmptyGenerationIsFatal(t *testing.T) {
	executor := NewAIExecutor(&fakeGenerator{err: ai.ErrEmptyGeneration}, testLogger())
	execCtx := execContext(&models.Lead{ID: "lead-1"}, &models.Persona{ID: "p1", Name: "X", SystemPrompt: "y"})

	_, err := executor.Execute(context.Background(), aiNode(), emptyGraph(), execCtx)
	assert.ErrorIs(t, err, ai.ErrEmptyGeneration)
}
