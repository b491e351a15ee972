// Package graph provides an immutable per-run view of a workflow's nodes and
// edges with the traversal helpers the execution engine needs.
package graph

import (
	"errors"
	"fmt"

	"github.com/omnireach/omnireach/pkg/models"
)

// ErrNoStartNode is returned when a graph has no nodes to start from.
var ErrNoStartNode = errors.New("no start node found in workflow")

// Graph is a read-only snapshot of a workflow's structure, reconstructed from
// persistence at the start of each run. Listing order of nodes and edges is
// preserved: it determines start-node tie-breaking, fan-out order, and
// decision-edge preference.
type Graph struct {
	nodes    []*models.WorkflowNode
	edges    []*models.WorkflowEdge
	byID     map[string]*models.WorkflowNode
	outgoing map[string][]*models.WorkflowEdge
}

// New builds a graph view over the given node and edge lists.
func New(nodes []*models.WorkflowNode, edges []*models.WorkflowEdge) *Graph {
	g := &Graph{
		nodes:    nodes,
		edges:    edges,
		byID:     make(map[string]*models.WorkflowNode, len(nodes)),
		outgoing: make(map[string][]*models.WorkflowEdge),
	}

	for _, node := range nodes {
		g.byID[node.ID] = node
	}

	for _, edge := range edges {
		g.outgoing[edge.SourceNodeID] = append(g.outgoing[edge.SourceNodeID], edge)
	}

	return g
}

// FindStartNode returns the first node, in listing order, with no incoming
// edge. User-authored graphs carry no acyclicity or single-root guarantee, so
// when every node has an incoming edge (a fully cyclic graph) the first node
// in listing order is used. Only an empty graph is an error.
func (g *Graph) FindStartNode() (*models.WorkflowNode, error) {
	if len(g.nodes) == 0 {
		return nil, ErrNoStartNode
	}

	targets := make(map[string]struct{}, len(g.edges))
	for _, edge := range g.edges {
		targets[edge.TargetNodeID] = struct{}{}
	}

	for _, node := range g.nodes {
		if _, hasIncoming := targets[node.ID]; !hasIncoming {
			return node, nil
		}
	}

	return g.nodes[0], nil
}

// OutgoingEdges returns the edges leaving nodeID in listing order.
func (g *Graph) OutgoingEdges(nodeID string) []*models.WorkflowEdge {
	return g.outgoing[nodeID]
}

// NodeByID looks up a node by its identifier.
func (g *Graph) NodeByID(id string) (*models.WorkflowNode, bool) {
	node, ok := g.byID[id]

	return node, ok
}

// Nodes returns the node list in its original order.
func (g *Graph) Nodes() []*models.WorkflowNode {
	return g.nodes
}

// Validate checks structural integrity: node ids must be unique and every
// edge must reference existing nodes. Violations are authoring errors.
func (g *Graph) Validate() error {
	seen := make(map[string]struct{}, len(g.nodes))
	for _, node := range g.nodes {
		if _, dup := seen[node.ID]; dup {
			return fmt.Errorf("duplicate node id %q", node.ID)
		}

		seen[node.ID] = struct{}{}
	}

	for _, edge := range g.edges {
		if _, ok := g.byID[edge.SourceNodeID]; !ok {
			return fmt.Errorf("edge %s references unknown source node %q", edge.ID, edge.SourceNodeID)
		}

		if _, ok := g.byID[edge.TargetNodeID]; !ok {
			return fmt.Errorf("edge %s references unknown target node %q", edge.ID, edge.TargetNodeID)
		}
	}

	return nil
}
