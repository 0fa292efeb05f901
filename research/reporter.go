package research

import (
	"context"

	"github.com/clearlane/deepresearch/llm"
)

// RunReporter is the reporter node, per spec.md §4.1: the terminal node,
// synthesizing every DONE/SKIPPED/FAILED step's findings into one Markdown
// report appended to the message log.
func RunReporter(ctx context.Context, state *RunState, deps Deps) (Transition, error) {
	resp, err := deps.LLM.Complete(ctx, llm.Request{
		Model:    deps.Model,
		Messages: buildReporterPrompt(state),
	})
	report := ""
	if err != nil {
		report = "Report generation failed: " + err.Error()
	} else {
		state.TokenUsageDelta += int64(resp.Usage.TotalTokens)
		report = resp.Content
	}

	state.Messages = append(state.Messages, Message{Role: RoleAssistant, Content: report})
	state.Phase = PhaseDone
	return ToEnd, nil
}
