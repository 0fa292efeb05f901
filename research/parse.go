package research

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseDecision parses the executor decision node's strict triple output:
// a REASONING line/block, a DECISION line naming the tool, and a PARAMS
// block of JSON, per spec.md §4.2 step 3. Malformed or missing PARAMS
// become an empty object rather than a parse error, per spec.md §7.
func ParseDecision(response string) Decision {
	d := Decision{Params: map[string]any{}}

	reasoning := extractField(response, "REASONING")
	decision := extractField(response, "DECISION")
	params := extractField(response, "PARAMS")

	d.Reasoning = strings.TrimSpace(reasoning)
	d.Tool = strings.ToLower(strings.TrimSpace(decision))

	if params != "" {
		var parsed map[string]any
		if json.Unmarshal([]byte(extractJSONObject(params)), &parsed) == nil {
			d.Params = parsed
		}
	}
	if d.Tool == "" {
		d.Tool = "done"
	}
	return d
}

// fieldLabels lists the labels extractField recognizes. extractField finds
// a "LABEL:" marker at the start of a line, case-insensitive, capturing
// everything up to the next recognized label or end of string.
var fieldLabels = []string{"REASONING", "DECISION", "PARAMS"}

func extractField(response, label string) string {
	re := regexp.MustCompile(`(?im)^\s*` + label + `\s*:\s*`)
	loc := re.FindStringIndex(response)
	if loc == nil {
		return ""
	}
	rest := response[loc[1]:]

	end := len(rest)
	for _, other := range fieldLabels {
		if other == label {
			continue
		}
		otherRe := regexp.MustCompile(`(?im)^\s*` + other + `\s*:\s*`)
		if m := otherRe.FindStringIndex(rest); m != nil && m[0] < end {
			end = m[0]
		}
	}
	return strings.TrimSpace(rest[:end])
}

// extractJSONObject trims a PARAMS field down to its outermost {...} block,
// tolerating a model wrapping it in prose or a code fence.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "{}"
	}
	return s[start : end+1]
}

// EvaluatorDecision is the evaluator node's verdict, per spec.md §4.1.
type EvaluatorDecision string

const (
	EvaluatorApprove EvaluatorDecision = "APPROVE"
	EvaluatorFail    EvaluatorDecision = "FAIL"
	EvaluatorSkip    EvaluatorDecision = "SKIP"
)

// ParseEvaluatorVerdict parses "DECISION: …" as the first line and the
// remainder as reasoning, per spec.md §4.1. An unrecognized or missing
// decision defaults to APPROVE, per spec.md §7 "Parse failures".
func ParseEvaluatorVerdict(response string) (EvaluatorDecision, string) {
	decisionText := extractField(response, "DECISION")
	reasoning := extractField(response, "REASONING")
	if reasoning == "" {
		// Tolerate a bare "DECISION: X\n<reasoning prose>" shape with no
		// explicit REASONING label, the common case for this node.
		if idx := strings.Index(strings.ToUpper(response), "DECISION"); idx >= 0 {
			if nl := strings.Index(response[idx:], "\n"); nl >= 0 {
				reasoning = strings.TrimSpace(response[idx+nl:])
			}
		} else {
			reasoning = strings.TrimSpace(response)
		}
	}

	switch strings.ToUpper(strings.TrimSpace(decisionText)) {
	case string(EvaluatorFail):
		return EvaluatorFail, reasoning
	case string(EvaluatorSkip):
		return EvaluatorSkip, reasoning
	case string(EvaluatorApprove):
		return EvaluatorApprove, reasoning
	default:
		return EvaluatorApprove, reasoning
	}
}

// SufficiencyDecision is the sufficiency_check node's verdict.
type SufficiencyDecision string

const (
	Sufficient SufficiencyDecision = "SUFFICIENT"
	Continue   SufficiencyDecision = "CONTINUE"
)

// ParseSufficiency parses "{reasoning, decision}" structured output (a
// DECISION label plus reasoning, the same text-parsing discipline as every
// other node, per SPEC_FULL.md's note on avoiding a provider structured-
// output mode). Defaults to CONTINUE on a parse failure, per spec.md §7.
func ParseSufficiency(response string) (SufficiencyDecision, string) {
	decisionText := extractField(response, "DECISION")
	reasoning := extractField(response, "REASONING")
	switch strings.ToUpper(strings.TrimSpace(decisionText)) {
	case string(Sufficient):
		return Sufficient, reasoning
	default:
		return Continue, reasoning
	}
}

// searchLineRe matches one "SEARCH: query" line from the strategist or
// theme_identifier nodes.
var searchLineRe = regexp.MustCompile(`(?im)^\s*SEARCH\s*:\s*(.+?)\s*$`)

// ParseSearchThemes extracts 1-3 SEARCH:-prefixed query lines from a
// theme_identifier/strategist response. Returns nil if none are found,
// leaving the caller to apply its own fallback.
func ParseSearchThemes(response string, max int) []string {
	var themes []string
	for _, m := range searchLineRe.FindAllStringSubmatch(response, -1) {
		themes = append(themes, strings.TrimSpace(m[1]))
		if max > 0 && len(themes) >= max {
			break
		}
	}
	return themes
}
