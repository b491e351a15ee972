package file

import (
	"context"
	"errors"
	"io/fs"

	"github.com/omnireach/omnireach/pkg/models"
	"github.com/omnireach/omnireach/pkg/persistence"
)

// workflowDocument is the on-disk shape of a workflow: the definition plus its
// graph in one file, so node and edge listing order is the file order.
type workflowDocument struct {
	models.Workflow

	Nodes []*models.WorkflowNode `json:"nodes"`
	Edges []*models.WorkflowEdge `json:"edges"`
}

// WorkflowRepository stores workflow documents as JSON files.
type WorkflowRepository struct {
	store store
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	doc, err := r.load(id)
	if err != nil {
		return nil, err
	}

	workflow := doc.Workflow

	return &workflow, nil
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	doc, err := r.load(workflow.ID)
	if err != nil {
		if !errors.Is(err, persistence.ErrWorkflowNotFound) {
			return err
		}

		doc = &workflowDocument{}
	}

	doc.Workflow = *workflow

	return r.store.write(workflow.ID, doc)
}

func (r *WorkflowRepository) NodesByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowNode, error) {
	doc, err := r.load(workflowID)
	if err != nil {
		return nil, err
	}

	return doc.Nodes, nil
}

func (r *WorkflowRepository) EdgesByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowEdge, error) {
	doc, err := r.load(workflowID)
	if err != nil {
		return nil, err
	}

	return doc.Edges, nil
}

func (r *WorkflowRepository) SaveNode(_ context.Context, node *models.WorkflowNode) error {
	doc, err := r.load(node.WorkflowID)
	if err != nil {
		return err
	}

	for i, existing := range doc.Nodes {
		if existing.ID == node.ID {
			doc.Nodes[i] = node

			return r.store.write(node.WorkflowID, doc)
		}
	}

	doc.Nodes = append(doc.Nodes, node)

	return r.store.write(node.WorkflowID, doc)
}

func (r *WorkflowRepository) SaveEdge(_ context.Context, edge *models.WorkflowEdge) error {
	doc, err := r.load(edge.WorkflowID)
	if err != nil {
		return err
	}

	for i, existing := range doc.Edges {
		if existing.ID == edge.ID {
			doc.Edges[i] = edge

			return r.store.write(edge.WorkflowID, doc)
		}
	}

	doc.Edges = append(doc.Edges, edge)

	return r.store.write(edge.WorkflowID, doc)
}

func (r *WorkflowRepository) load(id string) (*workflowDocument, error) {
	var doc workflowDocument
	if err := r.store.read(id, &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, err
	}

	return &doc, nil
}
