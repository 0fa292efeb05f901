package executor

import (
	"context"

	"github.com/clearlane/deepresearch/llm"
	"github.com/clearlane/deepresearch/research"
)

const sufficiencySystemPrompt = "You are judging whether a research step's " +
	"gathered findings are sufficient to answer it, or whether more " +
	"evidence should be gathered. Respond with a first line " +
	"`DECISION: SUFFICIENT|CONTINUE` followed by your reasoning."

// checkSufficiency is the sufficiency_check node, per spec.md §4.2 step 6:
// budget exhaustion forces sufficient; no tool call yet forces continue;
// otherwise one LLM call decides.
func checkSufficiency(ctx context.Context, state *research.RunState, deps research.Deps) bool {
	if state.ExecutorCallCount >= state.MaxExecutorCalls {
		state.ExecutorSufficient = true
		return true
	}
	if len(state.ExecutorToolHistory) == 0 {
		state.ExecutorSufficient = false
		return false
	}

	resp, err := deps.LLM.Complete(ctx, llm.Request{
		Model:    deps.Model,
		Messages: buildSufficiencyPrompt(state),
	})
	if err != nil {
		// Parse/call failure defaults to CONTINUE, per spec.md §7.
		state.ExecutorSufficient = false
		return false
	}

	state.TokenUsageDelta += int64(resp.Usage.TotalTokens)
	verdict, _ := research.ParseSufficiency(resp.Content)
	sufficient := verdict == research.Sufficient
	state.ExecutorSufficient = sufficient
	return sufficient
}

func buildSufficiencyPrompt(state *research.RunState) []llm.Message {
	step := state.CurrentStep()
	desc := state.OriginalQuery
	if step != nil {
		desc = step.Description
	}

	var results string
	for _, rec := range state.ExecutorToolHistory {
		if rec.Success {
			results += "[" + rec.Tool + "] " + rec.Result + "\n"
		}
	}

	return []llm.Message{
		{Role: "system", Content: sufficiencySystemPrompt},
		{Role: "user", Content: "Step: " + desc + "\n\nResults so far:\n" + results},
	}
}
