package research

import (
	"fmt"
	"strings"

	"github.com/clearlane/deepresearch/llm"
)

const (
	plannerSystemPrompt = "You are a research planner. Given a user's research " +
		"query, produce a numbered list of %d to %d concrete research steps. " +
		"Respond with only the numbered list, one step per line."

	evaluatorSystemPrompt = "You are a research evaluator. Given a plan step and " +
		"the findings gathered for it, decide whether the step is adequately " +
		"answered. Respond with a first line `DECISION: APPROVE|FAIL|SKIP` " +
		"followed by your reasoning."

	strategistSystemPrompt = "You are a research strategist helping recover from " +
		"a failed research step. Given the step, its prior failed attempts, and " +
		"the error, propose 1 to 3 alternative search queries, each on its own " +
		"line prefixed `SEARCH:`."

	reporterSystemPrompt = "You are a research reporter. Given a completed " +
		"research plan with findings for each step, write a clear Markdown " +
		"report synthesizing the findings into an answer to the original query."
)

func buildPlannerPrompt(state *RunState, settings Settings) []llm.Message {
	msgs := []llm.Message{
		{Role: "system", Content: fmt.Sprintf(plannerSystemPrompt, settings.MinPlanSteps, settings.MaxPlanSteps)},
	}
	user := state.OriginalQuery
	if state.NeedsReplan {
		var prior strings.Builder
		for i, step := range state.Plan {
			fmt.Fprintf(&prior, "%d. %s\n", i+1, step.Description)
		}
		user = fmt.Sprintf(
			"Original query: %s\n\nRejected plan:\n%s\nUser feedback: %s\n\n"+
				"Produce a revised plan addressing the feedback.",
			state.OriginalQuery, prior.String(), state.UserResponse)
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: user})
	return msgs
}

func buildEvaluatorPrompt(state *RunState, step *PlanStep) []llm.Message {
	var findings strings.Builder
	for _, f := range state.StepFindings {
		findings.WriteString("- " + f + "\n")
	}
	if findings.Len() == 0 {
		findings.WriteString("(no findings were gathered)\n")
	}

	hint := ""
	if state.ExecutorCallCount >= state.MaxExecutorCalls && countSuccessfulCalls(state.ExecutorToolHistory) == 0 {
		hint = "\nNote: the executor exhausted its call budget without a single " +
			"successful tool call; consider this step unresolved.\n"
	}

	user := fmt.Sprintf(
		"Step: %s\n\nFindings:\n%s%s", step.Description, findings.String(), hint)
	return []llm.Message{
		{Role: "system", Content: evaluatorSystemPrompt},
		{Role: "user", Content: user},
	}
}

func countSuccessfulCalls(history []ToolCallRecord) int {
	n := 0
	for _, r := range history {
		if r.Success {
			n++
		}
	}
	return n
}

func buildStrategistPrompt(state *RunState, step *PlanStep) []llm.Message {
	var attempts strings.Builder
	for i, sub := range step.Substeps {
		fmt.Fprintf(&attempts, "Attempt %d: queries=%v error=%s\n", i+1, sub.SearchQueries, sub.Error)
	}
	var partial strings.Builder
	for _, f := range step.AccumulatedFindings {
		partial.WriteString("- " + f + "\n")
	}

	user := fmt.Sprintf(
		"Step: %s\n\nPrior attempts:\n%s\nPartial findings:\n%s\nLast error: %s",
		step.Description, attempts.String(), partial.String(), state.LastError)
	return []llm.Message{
		{Role: "system", Content: strategistSystemPrompt},
		{Role: "user", Content: user},
	}
}

func buildReporterPrompt(state *RunState) []llm.Message {
	var plan strings.Builder
	for i, step := range state.Plan {
		fmt.Fprintf(&plan, "%d. [%s] %s\n", i+1, step.Status, step.Description)
		if step.Result != "" {
			fmt.Fprintf(&plan, "   Result: %s\n", step.Result)
		}
		if step.Error != "" {
			fmt.Fprintf(&plan, "   Error: %s\n", step.Error)
		}
		for _, f := range step.AccumulatedFindings {
			fmt.Fprintf(&plan, "   - %s\n", f)
		}
	}

	user := fmt.Sprintf("Original query: %s\n\nCompleted plan:\n%s", state.OriginalQuery, plan.String())
	return []llm.Message{
		{Role: "system", Content: reporterSystemPrompt},
		{Role: "user", Content: user},
	}
}
