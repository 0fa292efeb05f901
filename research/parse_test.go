package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecisionExtractsTriple(t *testing.T) {
	resp := "REASONING: need more sources\nDECISION: web_search\nPARAMS: {\"themes\": [\"a\", \"b\"]}"
	d := ParseDecision(resp)
	assert.Equal(t, "web_search", d.Tool)
	assert.Equal(t, "need more sources", d.Reasoning)
	require.Contains(t, d.Params, "themes")
}

func TestParseDecisionMalformedParamsBecomesEmptyObject(t *testing.T) {
	resp := "REASONING: trying\nDECISION: terminal\nPARAMS: not json at all"
	d := ParseDecision(resp)
	assert.Equal(t, "terminal", d.Tool)
	assert.Empty(t, d.Params)
}

func TestParseDecisionDoneExitsDirectly(t *testing.T) {
	resp := "REASONING: enough info\nDECISION: DONE\nPARAMS: {}"
	d := ParseDecision(resp)
	assert.Equal(t, "done", d.Tool)
}

func TestParseEvaluatorVerdictRecognizesAllThree(t *testing.T) {
	for _, tc := range []struct {
		resp string
		want EvaluatorDecision
	}{
		{"DECISION: APPROVE\nREASONING: looks complete", EvaluatorApprove},
		{"DECISION: FAIL\nREASONING: no evidence found", EvaluatorFail},
		{"DECISION: SKIP\nREASONING: not relevant", EvaluatorSkip},
	} {
		got, reasoning := ParseEvaluatorVerdict(tc.resp)
		assert.Equal(t, tc.want, got)
		assert.NotEmpty(t, reasoning)
	}
}

func TestParseEvaluatorVerdictDefaultsToApprove(t *testing.T) {
	got, _ := ParseEvaluatorVerdict("the model rambled without a DECISION label")
	assert.Equal(t, EvaluatorApprove, got)
}

func TestParseSufficiencyDefaultsToContinue(t *testing.T) {
	got, _ := ParseSufficiency("garbage response")
	assert.Equal(t, Continue, got)
}

func TestParseSufficiencyRecognizesSufficient(t *testing.T) {
	got, _ := ParseSufficiency("DECISION: SUFFICIENT\nREASONING: findings cover the step")
	assert.Equal(t, Sufficient, got)
}

func TestParseSearchThemesExtractsUpToMax(t *testing.T) {
	resp := "SEARCH: query one\nSEARCH: query two\nSEARCH: query three\nSEARCH: query four"
	themes := ParseSearchThemes(resp, 3)
	assert.Len(t, themes, 3)
	assert.Equal(t, "query one", themes[0])
}

func TestParseSearchThemesReturnsNilWhenNoneFound(t *testing.T) {
	themes := ParseSearchThemes("no search lines here", 3)
	assert.Nil(t, themes)
}
