package executor

import (
	"context"
	"testing"

	"github.com/clearlane/deepresearch/llm"
	llmstub "github.com/clearlane/deepresearch/llm/stub"
	"github.com/clearlane/deepresearch/research"
	"github.com/clearlane/deepresearch/research/tools"
	"github.com/clearlane/deepresearch/search"
	searchstub "github.com/clearlane/deepresearch/search/stub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseDeps(llmClient llm.Client, backend search.Backend) research.Deps {
	return research.Deps{
		LLM:    llmClient,
		Search: backend,
		Tools:  tools.NewRegistry(&tools.Knowledge{}, &tools.Terminal{}, &tools.FileRead{Root: "."}),
		Settings: research.Settings{
			MaxExecutorCalls:   3,
			MaxSearchesPerStep: 5,
			SearchMinScore:     0,
		},
	}
}

func newStepState(desc string, maxCalls int) *research.RunState {
	state := research.NewRunState("original query", maxCalls)
	state.Plan = []research.PlanStep{research.NewPlanStep(desc)}
	state.Plan[0].Status = research.StepInProgress
	state.CurrentStepIndex = 0
	return state
}

func TestRunKnowledgeDecisionExitsSufficient(t *testing.T) {
	client := llmstub.New(
		llm.Response{Content: "REASONING: I know this\nDECISION: knowledge\nPARAMS: {\"answer\": \"CAP theorem answer\"}"},
		llm.Response{Content: "DECISION: SUFFICIENT\nREASONING: covers it"},
	)
	state := newStepState("Define CAP theorem.", 3)
	deps := baseDeps(client, searchstub.New(nil))

	res, err := Run(context.Background(), state, deps)
	require.NoError(t, err)
	assert.Equal(t, OutcomeEvaluator, res.Outcome)
	assert.Equal(t, research.PhaseEvaluating, state.Phase)
	require.Len(t, state.StepFindings, 1)
	assert.Contains(t, state.StepFindings[0], "CAP theorem answer")
}

func TestRunBudgetExhaustionForcesSufficient(t *testing.T) {
	client := llmstub.New(
		llm.Response{Content: "REASONING: a\nDECISION: knowledge\nPARAMS: {\"answer\": \"one\"}"},
		llm.Response{Content: "DECISION: CONTINUE\nREASONING: more needed"},
		llm.Response{Content: "REASONING: b\nDECISION: knowledge\nPARAMS: {\"answer\": \"two\"}"},
	)
	state := newStepState("step", 2)
	deps := baseDeps(client, searchstub.New(nil))

	res, err := Run(context.Background(), state, deps)
	require.NoError(t, err)
	assert.Equal(t, OutcomeEvaluator, res.Outcome)
	assert.Equal(t, 2, state.ExecutorCallCount)
}

func TestWebSearchFanOutCountsAsOneCallAndDedupesSources(t *testing.T) {
	client := llmstub.New(
		llm.Response{Content: "REASONING: need evidence\nDECISION: web_search\nPARAMS: {\"themes\": [\"a\",\"b\",\"c\"]}"},
		llm.Response{Content: "DECISION: SUFFICIENT\nREASONING: enough"},
	)
	backend := searchstub.New(map[string]search.Response{
		"a": {Results: []search.Result{{URL: "u1", Content: "finding a", Score: 0.9}, {URL: "u2", Content: "finding a2", Score: 0.9}}},
		"b": {Results: []search.Result{{URL: "u2", Content: "finding b", Score: 0.9}, {URL: "u3", Content: "finding b2", Score: 0.9}}},
		"c": {Results: []search.Result{{URL: "u3", Content: "finding c", Score: 0.9}, {URL: "u4", Content: "finding c2", Score: 0.9}}},
	})
	state := newStepState("fan out step", 5)
	deps := baseDeps(client, backend)

	res, err := Run(context.Background(), state, deps)
	require.NoError(t, err)
	assert.Equal(t, OutcomeEvaluator, res.Outcome)
	assert.Equal(t, 1, state.ExecutorCallCount)
}

func TestDecisionWithPrePopulatedThemesBypassesLLM(t *testing.T) {
	client := llmstub.New(
		llm.Response{Content: "DECISION: SUFFICIENT\nREASONING: enough"},
	)
	backend := searchstub.New(nil)
	state := newStepState("step", 5)
	state.SearchThemes = []string{"alpha", "beta"}
	deps := baseDeps(client, backend)

	res, err := Run(context.Background(), state, deps)
	require.NoError(t, err)
	assert.Equal(t, OutcomeEvaluator, res.Outcome)
	assert.Equal(t, 1, state.ExecutorCallCount)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, backend.Calls())
}

func TestTerminalDecisionSuspendsForApproval(t *testing.T) {
	client := llmstub.New(
		llm.Response{Content: "REASONING: run it\nDECISION: terminal\nPARAMS: {\"command\": \"echo hi\"}"},
	)
	state := newStepState("step", 3)
	deps := baseDeps(client, searchstub.New(nil))

	res, err := Run(context.Background(), state, deps)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuspendTerminal, res.Outcome)
	assert.Equal(t, research.PhaseAwaitingTerminal, state.Phase)
	require.NotNil(t, state.PendingTerminal)
	assert.Equal(t, "echo hi", state.PendingTerminal.Command)
	assert.NotEmpty(t, state.PendingTerminal.Hash)
}

func TestResumeGrantedExecutesAndContinues(t *testing.T) {
	client := llmstub.New(
		llm.Response{Content: "REASONING: run it\nDECISION: terminal\nPARAMS: {\"command\": \"echo hi\"}"},
		llm.Response{Content: "DECISION: SUFFICIENT\nREASONING: done"},
	)
	state := newStepState("step", 3)
	deps := baseDeps(client, searchstub.New(nil))

	res, err := Run(context.Background(), state, deps)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuspendTerminal, res.Outcome)

	res, err = Resume(context.Background(), state, deps, true)
	require.NoError(t, err)
	assert.Equal(t, OutcomeEvaluator, res.Outcome)
	require.Len(t, state.StepFindings, 1)
	assert.Contains(t, state.StepFindings[0], "hi")
}

func TestResumeDeniedRecordsFailureAndContinues(t *testing.T) {
	client := llmstub.New(
		llm.Response{Content: "REASONING: run it\nDECISION: terminal\nPARAMS: {\"command\": \"rm -rf /\"}"},
		llm.Response{Content: "DECISION: CONTINUE\nREASONING: denied, need another approach"},
		llm.Response{Content: "REASONING: b\nDECISION: knowledge\nPARAMS: {\"answer\": \"fallback\"}"},
		llm.Response{Content: "DECISION: SUFFICIENT\nREASONING: done"},
	)
	state := newStepState("step", 3)
	deps := baseDeps(client, searchstub.New(nil))

	res, err := Run(context.Background(), state, deps)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuspendTerminal, res.Outcome)

	res, err = Resume(context.Background(), state, deps, false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeEvaluator, res.Outcome)
	assert.Nil(t, state.PendingTerminal)
}
