package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlanNumberedDotFormat(t *testing.T) {
	resp := "1. Define CAP theorem.\n2. Enumerate canonical CP/AP/CA examples."
	steps := ParsePlan(resp, "fallback", 3, 10)
	assert.Len(t, steps, 2)
	assert.Equal(t, "Define CAP theorem.", steps[0].Description)
	assert.Equal(t, StepTODO, steps[0].Status)
	assert.Equal(t, DefaultMaxSubsteps, steps[0].MaxSubsteps)
}

func TestParsePlanParenAndColonAndDashFormats(t *testing.T) {
	resp := "1) First step\n2: Second step\n- Third step"
	steps := ParsePlan(resp, "fallback", 3, 10)
	assert.Len(t, steps, 3)
	assert.Equal(t, "First step", steps[0].Description)
	assert.Equal(t, "Second step", steps[1].Description)
	assert.Equal(t, "Third step", steps[2].Description)
}

func TestParsePlanSplitsInlineNumberedList(t *testing.T) {
	resp := "1. Define CAP theorem 2. Enumerate tradeoffs 3. Summarize findings"
	steps := ParsePlan(resp, "fallback", 1, 10)
	assert.Len(t, steps, 3)
	assert.Equal(t, "Define CAP theorem", steps[0].Description)
	assert.Equal(t, "Enumerate tradeoffs", steps[1].Description)
	assert.Equal(t, "Summarize findings", steps[2].Description)
}

func TestParsePlanFallsBackToSingleStepOnZeroMatches(t *testing.T) {
	steps := ParsePlan("I couldn't think of any steps.", "Summarize the CAP theorem.", 3, 10)
	assert.Len(t, steps, 1)
	assert.Equal(t, "Summarize the CAP theorem.", steps[0].Description)
}

func TestParsePlanTruncatesToMaxSteps(t *testing.T) {
	resp := "1. a\n2. b\n3. c\n4. d"
	steps := ParsePlan(resp, "fallback", 1, 2)
	assert.Len(t, steps, 2)
}

func TestNewPlanStepAssignsUniqueIDs(t *testing.T) {
	a := NewPlanStep("x")
	b := NewPlanStep("x")
	assert.NotEqual(t, a.ID, b.ID)
}
