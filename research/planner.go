package research

import (
	"context"

	"github.com/clearlane/deepresearch/llm"
)

// RunPlanner is the planner node, per spec.md §4.1. It always ends by
// suspending for human plan confirmation; ConfirmPlan is the only path
// onward from PhaseAwaitingConfirm.
func RunPlanner(ctx context.Context, state *RunState, deps Deps) (Transition, error) {
	resp, err := deps.LLM.Complete(ctx, llm.Request{
		Model:    deps.Model,
		Messages: buildPlannerPrompt(state, deps.Settings),
	})
	if err != nil {
		state.LastError = "planner call failed: " + err.Error()
		state.Phase = PhaseReporting
		return ToReporter, nil
	}
	state.TokenUsageDelta += int64(resp.Usage.TotalTokens)

	state.Plan = ParsePlan(resp.Content, state.OriginalQuery, deps.Settings.MinPlanSteps, deps.Settings.MaxPlanSteps)
	state.CurrentStepIndex = 0
	state.Phase = PhaseAwaitingConfirm
	state.Messages = append(state.Messages, Message{Role: RoleAssistant, Content: resp.Content})
	return ToSuspendConfirmation, nil
}

// ConfirmPlan is the outer mutator spec.md §4.1 "Plan confirmation"
// describes: the only client-driven mutation of RunState other than an
// approval response. approve=false treats note as rejection feedback.
func ConfirmPlan(state *RunState, approve bool, note string) Transition {
	if approve {
		state.UserResponse = ""
		state.NeedsReplan = false
		state.Phase = PhaseExecuting
		return ToExecutor
	}
	state.UserResponse = note
	state.NeedsReplan = true
	state.Phase = PhasePlanning
	return ToPlanner
}
