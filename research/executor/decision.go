package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/clearlane/deepresearch/llm"
	"github.com/clearlane/deepresearch/research"
	"github.com/clearlane/deepresearch/research/tools"
)

const decisionSystemPrompt = "You are a research executor deciding the next " +
	"action for a research step. Available tools:\n" +
	"  web_search {\"themes\": [string, ...]} - search the web for 1-3 queries\n" +
	"  terminal {\"command\": string} - run a shell command\n" +
	"  read_file {\"path\": string, \"start_line\"?: int, \"end_line\"?: int} - read a file\n" +
	"  knowledge {\"answer\": string} - answer directly from your own reasoning\n" +
	"  DONE - stop gathering evidence for this step\n" +
	"Respond with exactly three labeled sections:\n" +
	"REASONING: <why>\nDECISION: <one of web_search|terminal|read_file|knowledge|DONE>\nPARAMS: <JSON object>"

// decide produces the next tool decision for the executor loop, per
// spec.md §4.2 steps 2-3: on the first iteration of a step with
// pre-populated search_themes (from the planner handoff or the strategist),
// the decision is synthesized as web_search bypassing the LLM call
// entirely; otherwise one LLM call produces the REASONING/DECISION/PARAMS
// triple.
func decide(ctx context.Context, state *research.RunState, deps research.Deps) research.Decision {
	if state.ExecutorCallCount == 0 && len(state.SearchThemes) > 0 {
		themes := make([]any, len(state.SearchThemes))
		for i, t := range state.SearchThemes {
			themes[i] = t
		}
		return research.Decision{
			Reasoning: "using search themes handed off from the planner/strategist",
			Tool:      "web_search",
			Params:    map[string]any{"themes": themes},
		}
	}

	resp, err := deps.LLM.Complete(ctx, llm.Request{
		Model:    deps.Model,
		Messages: buildDecisionPrompt(state),
	})
	if err != nil {
		return research.Decision{Tool: "done", Reasoning: "decision call failed: " + err.Error(), Params: map[string]any{}}
	}
	state.TokenUsageDelta += int64(resp.Usage.TotalTokens)
	return research.ParseDecision(resp.Content)
}

func buildDecisionPrompt(state *research.RunState) []llm.Message {
	step := state.CurrentStep()
	desc := ""
	if step != nil {
		desc = step.Description
	}

	var history strings.Builder
	for _, rec := range state.ExecutorToolHistory {
		preview := rec.Result
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		fmt.Fprintf(&history, "[%d] %s success=%v: %s\n", rec.ID, rec.Tool, rec.Success, preview)
	}

	var accumulated strings.Builder
	if step != nil {
		for _, f := range step.AccumulatedFindings {
			preview := f
			if len(preview) > 500 {
				preview = preview[:500] + "..."
			}
			accumulated.WriteString("- " + preview + "\n")
		}
	}

	remaining := state.MaxExecutorCalls - state.ExecutorCallCount

	user := fmt.Sprintf(
		"Task: %s\nOriginal query: %s\n\nTool history this step:\n%s\n"+
			"Accumulated findings so far:\n%s\nRemaining calls: %d",
		desc, state.OriginalQuery, history.String(), accumulated.String(), remaining)

	return []llm.Message{
		{Role: "system", Content: decisionSystemPrompt},
		{Role: "user", Content: user},
	}
}

// themesFromParams extracts a "themes" array of strings from decision
// params, tolerating both []any (decoded JSON) and []string.
func themesFromParams(params map[string]any) []string {
	raw, ok := params["themes"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	default:
		return nil
	}
}

func accumulateToolResult(state *research.RunState, tool string, params map[string]any, output string, toolErr *tools.ToolError) {
	rec := research.ToolCallRecord{
		ID:      state.NextToolCallID(),
		Tool:    tool,
		Params:  params,
		Success: toolErr == nil,
	}
	if toolErr != nil {
		rec.Error = toolErr.Error()
	} else {
		rec.Result = output
	}
	state.ExecutorToolHistory = append(state.ExecutorToolHistory, rec)
	state.ExecutorCallCount++
	state.Phase = research.PhaseExecuting
}

func toolFailure(message string) *tools.ToolError {
	return tools.New(message)
}

// composeFindings formats step_findings from successful tool records, or a
// diagnostic summary of failures if none succeeded, per spec.md §4.2 step 8.
func composeFindings(history []research.ToolCallRecord) []string {
	var findings []string
	for _, rec := range history {
		if rec.Success {
			findings = append(findings, fmt.Sprintf("[%s] %s", rec.Tool, rec.Result))
		}
	}
	if len(findings) > 0 {
		return findings
	}

	var errs []string
	for _, rec := range history {
		if !rec.Success {
			errs = append(errs, fmt.Sprintf("[%s] %s", rec.Tool, rec.Error))
		}
	}
	diag := "No tool calls succeeded for this step."
	if len(errs) > 0 {
		diag += " Errors: " + strings.Join(errs, "; ")
	}
	return []string{diag}
}
