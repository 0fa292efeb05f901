package lifecycle

import (
	"context"

	"github.com/clearlane/deepresearch/approval"
	"github.com/clearlane/deepresearch/notify"
	"github.com/clearlane/deepresearch/research"
	"github.com/clearlane/deepresearch/runmeta"
)

// statusSink implements research.StatusSink, keeping runmeta.Store and
// notify.Hub in sync with a run's checkpointed phase. It is the mechanism
// by which the plan-confirmation and terminal-approval interrupts become
// visible to clients the instant the driver suspends, rather than only
// once the workflow's engine.WorkflowHandle.Wait returns.
type statusSink struct {
	runMeta   runmeta.Store
	approvals approval.Store
	hub       notify.Hub
}

// NewStatusSink builds the research.StatusSink implementation that
// cmd/server wires into research.NodeActivities at process startup.
func NewStatusSink(runMeta runmeta.Store, approvals approval.Store, hub notify.Hub) research.StatusSink {
	return &statusSink{runMeta: runMeta, approvals: approvals, hub: hub}
}

func (s *statusSink) SyncStatus(ctx context.Context, runID string, state *research.RunState) error {
	if state.TokenUsageDelta != 0 {
		if err := s.runMeta.AddTokens(ctx, runID, state.TokenUsageDelta); err != nil {
			return err
		}
		state.TokenUsageDelta = 0
	}

	s.hub.Publish(notify.Event{Type: notify.EventPhaseChange, RunID: runID, Payload: map[string]any{"phase": state.Phase}})

	switch state.Phase {
	case research.PhaseAwaitingConfirm:
		status := runmeta.StatusAwaitingConfirmation
		if _, err := s.runMeta.Patch(ctx, runID, nil, &status); err != nil {
			return err
		}
		s.hub.Publish(notify.Event{Type: notify.EventPlanUpdate, RunID: runID, Payload: map[string]any{"plan": state.Plan}})

	case research.PhaseAwaitingTerminal:
		if state.PendingTerminal == nil {
			return nil
		}
		if _, err := s.approvals.Request(ctx, runID, state.PendingTerminal.Hash, state.PendingTerminal.Command); err != nil {
			return err
		}
		s.hub.Publish(notify.Event{Type: notify.EventApprovalNeeded, RunID: runID, Payload: map[string]any{
			"command_hash": state.PendingTerminal.Hash,
			"command_text": state.PendingTerminal.Command,
		}})

	default:
		run, err := s.runMeta.Load(ctx, runID)
		if err != nil {
			return err
		}
		if run.Status == runmeta.StatusAwaitingConfirmation {
			active := runmeta.StatusActive
			if _, err := s.runMeta.Patch(ctx, runID, nil, &active); err != nil {
				return err
			}
		}
	}

	if state.Phase == research.PhaseExecuting || state.Phase == research.PhaseEvaluating {
		if step := state.CurrentStep(); step != nil {
			s.hub.Publish(notify.Event{Type: notify.EventStepStart, RunID: runID, Payload: map[string]any{"step_id": step.ID, "description": step.Description}})
		}
	}

	return nil
}
