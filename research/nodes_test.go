package research

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearlane/deepresearch/llm"
	"github.com/clearlane/deepresearch/llm/stub"
)

func baseDeps(c *stub.Client) Deps {
	return Deps{
		LLM:      c,
		Model:    "test-model",
		Settings: Settings{MinPlanSteps: 1, MaxPlanSteps: 5},
	}
}

func TestRunPlannerParsesPlanAndSuspendsForConfirmation(t *testing.T) {
	c := stub.New(llm.Response{Content: "1. Find the CAP theorem definition\n2. Find real-world tradeoffs"})
	state := NewRunState("what is CAP theorem", 5)

	transition, err := RunPlanner(context.Background(), state, baseDeps(c))

	require.NoError(t, err)
	assert.Equal(t, ToSuspendConfirmation, transition)
	assert.Equal(t, PhaseAwaitingConfirm, state.Phase)
	assert.Len(t, state.Plan, 2)
	assert.Equal(t, 0, state.CurrentStepIndex)
}

func TestRunPlannerFallsBackToReporterOnLLMError(t *testing.T) {
	c := stub.New().WithError(errors.New("rate limited"))
	state := NewRunState("q", 5)

	transition, err := RunPlanner(context.Background(), state, baseDeps(c))

	require.NoError(t, err)
	assert.Equal(t, ToReporter, transition)
	assert.Equal(t, PhaseReporting, state.Phase)
	assert.Contains(t, state.LastError, "rate limited")
}

func TestConfirmPlanApproveAdvancesToExecutor(t *testing.T) {
	state := NewRunState("q", 5)
	state.Phase = PhaseAwaitingConfirm

	transition := ConfirmPlan(state, true, "")

	assert.Equal(t, ToExecutor, transition)
	assert.Equal(t, PhaseExecuting, state.Phase)
	assert.False(t, state.NeedsReplan)
}

func TestConfirmPlanRejectReturnsToPlannerWithNote(t *testing.T) {
	state := NewRunState("q", 5)
	state.Phase = PhaseAwaitingConfirm

	transition := ConfirmPlan(state, false, "too broad, narrow it down")

	assert.Equal(t, ToPlanner, transition)
	assert.Equal(t, PhasePlanning, state.Phase)
	assert.True(t, state.NeedsReplan)
	assert.Equal(t, "too broad, narrow it down", state.UserResponse)
}

func stateWithStep() *RunState {
	state := NewRunState("q", 5)
	state.Plan = []PlanStep{{ID: "step-1", Description: "find the definition", MaxSubsteps: DefaultMaxSubsteps}}
	state.CurrentStepIndex = 0
	state.StepFindings = []string{"CAP stands for consistency, availability, partition tolerance"}
	return state
}

func TestRunEvaluatorApproveAdvancesPastLastStep(t *testing.T) {
	c := stub.New(llm.Response{Content: "DECISION: APPROVE\nREASONING: findings answer the step"})
	state := stateWithStep()

	transition, err := RunEvaluator(context.Background(), state, baseDeps(c))

	require.NoError(t, err)
	assert.Equal(t, ToReporter, transition)
	assert.Equal(t, PhaseReporting, state.Phase)
	assert.Equal(t, StepDone, state.Plan[0].Status)
	assert.Empty(t, state.StepFindings)
}

func TestRunEvaluatorFailWithBudgetRemainingLoopsToStrategist(t *testing.T) {
	c := stub.New(llm.Response{Content: "DECISION: FAIL\nREASONING: findings are off topic"})
	state := stateWithStep()

	transition, err := RunEvaluator(context.Background(), state, baseDeps(c))

	require.NoError(t, err)
	assert.Equal(t, ToStrategist, transition)
	assert.Equal(t, PhaseRecovering, state.Phase)
	assert.Equal(t, 1, state.Plan[0].CurrentSubstepIdx)
	assert.Len(t, state.Plan[0].Substeps, 1)
	assert.Equal(t, SubstepFailed, state.Plan[0].Substeps[0].Status)
}

func TestRunEvaluatorFailExhaustsSubstepBudgetAndAdvances(t *testing.T) {
	c := stub.New(llm.Response{Content: "DECISION: FAIL\nREASONING: still wrong"})
	state := stateWithStep()
	state.Plan[0].MaxSubsteps = 1
	state.Plan[0].CurrentSubstepIdx = 0

	transition, err := RunEvaluator(context.Background(), state, baseDeps(c))

	require.NoError(t, err)
	assert.Equal(t, ToReporter, transition)
	assert.Equal(t, StepFailed, state.Plan[0].Status)
}

func TestRunEvaluatorCallErrorDefaultsToApprove(t *testing.T) {
	c := stub.New().WithError(errors.New("timeout"))
	state := stateWithStep()

	transition, err := RunEvaluator(context.Background(), state, baseDeps(c))

	require.NoError(t, err)
	assert.Equal(t, ToReporter, transition)
	assert.Equal(t, StepDone, state.Plan[0].Status)
}

func TestRunStrategistParsesSearchThemes(t *testing.T) {
	c := stub.New(llm.Response{Content: "SEARCH: CAP theorem formal proof\nSEARCH: CAP theorem counterexamples"})
	state := stateWithStep()
	state.Phase = PhaseRecovering

	transition, err := RunStrategist(context.Background(), state, baseDeps(c))

	require.NoError(t, err)
	assert.Equal(t, ToExecutor, transition)
	assert.Equal(t, PhaseExecuting, state.Phase)
	assert.Equal(t, []string{"CAP theorem formal proof", "CAP theorem counterexamples"}, state.SearchThemes)
}

func TestRunStrategistFallsBackToStepDescriptionOnLLMError(t *testing.T) {
	c := stub.New().WithError(errors.New("unavailable"))
	state := stateWithStep()

	transition, err := RunStrategist(context.Background(), state, baseDeps(c))

	require.NoError(t, err)
	assert.Equal(t, ToExecutor, transition)
	require.Len(t, state.SearchThemes, 2)
	assert.Equal(t, "find the definition", state.SearchThemes[0])
}

func TestRunReporterAppendsReportAndEndsRun(t *testing.T) {
	c := stub.New(llm.Response{Content: "## Findings\nCAP theorem states..."})
	state := stateWithStep()

	transition, err := RunReporter(context.Background(), state, baseDeps(c))

	require.NoError(t, err)
	assert.Equal(t, ToEnd, transition)
	assert.Equal(t, PhaseDone, state.Phase)
	last := state.Messages[len(state.Messages)-1]
	assert.Equal(t, RoleAssistant, last.Role)
	assert.Contains(t, last.Content, "CAP theorem states")
}

func TestRunReporterRecordsFailureMessageOnLLMError(t *testing.T) {
	c := stub.New().WithError(errors.New("provider down"))
	state := stateWithStep()

	transition, err := RunReporter(context.Background(), state, baseDeps(c))

	require.NoError(t, err)
	assert.Equal(t, ToEnd, transition)
	last := state.Messages[len(state.Messages)-1]
	assert.Contains(t, last.Content, "provider down")
}
