package graph

import (
	"testing"

	"github.com/omnireach/omnireach/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string) *models.WorkflowNode {
	return &models.WorkflowNode{ID: id, WorkflowID: "wf-1", NodeType: models.NodeTypeWait}
}

func edge(id, source, target string) *models.WorkflowEdge {
	return &models.WorkflowEdge{ID: id, WorkflowID: "wf-1", SourceNodeID: source, TargetNodeID: target}
}

func TestFindStartNode_LinearChain(t *testing.T) {
	g := New(
		[]*models.WorkflowNode{node("a"), node("b"), node("c")},
		[]*models.WorkflowEdge{edge("e1", "a", "b"), edge("e2", "b", "c")},
	)

	start, err := g.FindStartNode()
	require.NoError(t, err)
	assert.Equal(t, "a", start.ID)
}

func TestFindStartNode_NoEdges(t *testing.T) {
	g := New([]*models.WorkflowNode{node("b"), node("a")}, nil)

	start, err := g.FindStartNode()
	require.NoError(t, err)
	assert.Equal(t, "b", start.ID, "first node in listing order wins")
}

func TestFindStartNode_FullyCyclic(t *testing.T) {
	g := New(
		[]*models.WorkflowNode{node("a"), node("b")},
		[]*models.WorkflowEdge{edge("e1", "a", "b"), edge("e2", "b", "a")},
	)

	start, err := g.FindStartNode()
	require.NoError(t, err)
	assert.Equal(t, "a", start.ID, "fully cyclic graph falls back to first node")
}

func TestFindStartNode_EmptyGraph(t *testing.T) {
	g := New(nil, nil)

	_, err := g.FindStartNode()
	assert.ErrorIs(t, err, ErrNoStartNode)
}

func TestOutgoingEdges_PreservesListingOrder(t *testing.T) {
	g := New(
		[]*models.WorkflowNode{node("a"), node("b"), node("c")},
		[]*models.WorkflowEdge{edge("e1", "a", "c"), edge("e2", "a", "b")},
	)

	edges := g.OutgoingEdges("a")
	require.Len(t, edges, 2)
	assert.Equal(t, "c", edges[0].TargetNodeID)
	assert.Equal(t, "b", edges[1].TargetNodeID)

	assert.Empty(t, g.OutgoingEdges("c"))
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		g := New(
			[]*models.WorkflowNode{node("a"), node("b")},
			[]*models.WorkflowEdge{edge("e1", "a", "b")},
		)
		assert.NoError(t, g.Validate())
	})

	t.Run("duplicate node id", func(t *testing.T) {
		g := New([]*models.WorkflowNode{node("a"), node("a")}, nil)
		assert.ErrorContains(t, g.Validate(), "duplicate node id")
	})

	t.Run("dangling edge target", func(t *testing.T) {
		g := New(
			[]*models.WorkflowNode{node("a")},
			[]*models.WorkflowEdge{edge("e1", "a", "missing")},
		)
		assert.ErrorContains(t, g.Validate(), "unknown target node")
	})
}
