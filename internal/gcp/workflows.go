package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"

	"github.com/Lllllllleong/documentqaflow/internal/models"
)

// WorkflowNotifier starts a Cloud Workflows execution for every document that
// finishes processing, so downstream orchestration can pick it up.
type WorkflowNotifier struct {
	client *executions.Client
	parent string
}

func NewWorkflowNotifier(ctx context.Context, projectID, location, workflowID string) (*WorkflowNotifier, error) {
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &WorkflowNotifier{
		client: client,
		parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
	}, nil
}

func (n *WorkflowNotifier) NotifyCompleted(ctx context.Context, doc *models.Document) error {
	payload, err := json.Marshal(map[string]string{
		"ownerId":    doc.OwnerID,
		"documentId": doc.DocumentID,
		"filename":   doc.Filename,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: n.parent,
		Execution: &executionspb.Execution{
			Argument: string(payload),
		},
	}
	if _, err := n.client.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return nil
}

func (n *WorkflowNotifier) Close() error {
	return n.client.Close()
}
