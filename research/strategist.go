package research

import (
	"context"
	"fmt"

	"github.com/clearlane/deepresearch/llm"
)

// RunStrategist is the strategist node, per spec.md §4.1. It proposes
// alternative search queries for a step that just failed evaluation,
// operating strictly within the step's existing substep budget — it never
// adds new plan steps.
func RunStrategist(ctx context.Context, state *RunState, deps Deps) (Transition, error) {
	step := state.CurrentStep()

	var themes []string
	if step != nil {
		resp, err := deps.LLM.Complete(ctx, llm.Request{
			Model:    deps.Model,
			Messages: buildStrategistPrompt(state, step),
		})
		if err == nil {
			state.TokenUsageDelta += int64(resp.Usage.TotalTokens)
			themes = ParseSearchThemes(resp.Content, 3)
		}
	}
	if len(themes) == 0 {
		themes = fallbackStrategistThemes(step)
	}

	state.SearchThemes = themes
	state.StepFindings = nil
	state.LastError = ""
	state.Phase = PhaseExecuting
	return ToExecutor, nil
}

// fallbackStrategistThemes derives two queries from the step description
// when the strategist LLM call fails or returns no SEARCH: lines, per
// spec.md §4.1 "fallback: two queries derived from the step description".
func fallbackStrategistThemes(step *PlanStep) []string {
	if step == nil {
		return nil
	}
	return []string{
		step.Description,
		fmt.Sprintf("background and context: %s", step.Description),
	}
}
