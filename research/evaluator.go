package research

import (
	"context"
	"fmt"

	"github.com/clearlane/deepresearch/llm"
	"github.com/google/uuid"
)

// RunEvaluator is the evaluator node, per spec.md §4.1. It judges the
// current step's step_findings and either advances the plan (APPROVE,
// SKIP, or an exhausted FAIL) or loops back for one more recovery attempt
// via the strategist (a FAIL with substep budget remaining).
func RunEvaluator(ctx context.Context, state *RunState, deps Deps) (Transition, error) {
	step := state.CurrentStep()
	if step == nil {
		// Graph invariant violated: no current step to evaluate.
		state.Phase = PhaseReporting
		return ToReporter, nil
	}

	var verdict EvaluatorDecision
	var reasoning string
	resp, err := deps.LLM.Complete(ctx, llm.Request{
		Model:    deps.Model,
		Messages: buildEvaluatorPrompt(state, step),
	})
	if err != nil {
		// Parse/call failure defaults to APPROVE, per spec.md §7.
		verdict, reasoning = EvaluatorApprove, "evaluator call failed, defaulting to approve: "+err.Error()
	} else {
		state.TokenUsageDelta += int64(resp.Usage.TotalTokens)
		verdict, reasoning = ParseEvaluatorVerdict(resp.Content)
	}

	switch verdict {
	case EvaluatorFail:
		substep := Substep{
			ID:            uuid.NewString(),
			SearchQueries: append([]string{}, state.SearchThemes...),
			Findings:      append([]string{}, state.StepFindings...),
			Status:        SubstepFailed,
			Error:         reasoning,
		}
		step.Substeps = append(step.Substeps, substep)
		step.AccumulatedFindings = append(step.AccumulatedFindings, state.StepFindings...)
		state.StepFindings = nil

		if step.CurrentSubstepIdx+1 < step.MaxSubsteps {
			step.Status = StepInProgress
			step.CurrentSubstepIdx++
			state.LastError = reasoning
			state.Phase = PhaseRecovering
			return ToStrategist, nil
		}
		step.Status = StepFailed
		step.Error = fmt.Sprintf("all %d attempts failed", step.MaxSubsteps)

	case EvaluatorSkip:
		step.Status = StepSkipped
		step.Result = "Skipped: " + reasoning
		step.AccumulatedFindings = append(step.AccumulatedFindings, state.StepFindings...)
		state.StepFindings = nil

	default: // EvaluatorApprove
		step.Status = StepDone
		step.Result = reasoning
		step.AccumulatedFindings = append(step.AccumulatedFindings, state.StepFindings...)
		state.StepFindings = nil
	}

	// The step is finished; its search themes must not trigger the
	// executor's first-iteration web_search bypass on the next step.
	state.SearchThemes = nil
	state.AdvanceToNextTODO()
	if state.CurrentStepIndex < len(state.Plan) {
		state.Phase = PhaseExecuting
		return ToExecutor, nil
	}
	state.Phase = PhaseReporting
	return ToReporter, nil
}
