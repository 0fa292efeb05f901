package temporal

import (
	"context"

	"go.temporal.io/sdk/client"
)

// handle adapts a Temporal client.WorkflowRun onto engine.WorkflowHandle.
type handle struct {
	client client.Client
	run    client.WorkflowRun
}

func (h *handle) Wait(ctx context.Context, result any) error {
	return normalizeTemporalError(h.run.Get(ctx, result))
}

func (h *handle) Signal(ctx context.Context, name string, payload any) error {
	return h.client.SignalWorkflow(ctx, h.run.GetID(), h.run.GetRunID(), name, payload)
}

func (h *handle) Cancel(ctx context.Context) error {
	return h.client.CancelWorkflow(ctx, h.run.GetID(), h.run.GetRunID())
}
