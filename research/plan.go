package research

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// planLineRe matches one numbered or bulleted plan line: "1. …", "1) …",
// "1: …", or "- …", per spec.md §4.1 / §8 "Boundary behaviors". The prefix
// is discarded; the remainder is the step description.
var planLineRe = regexp.MustCompile(`^\s*(?:\d+[.):]\s+|-\s+)(.+?)\s*$`)

// numberedMarkerRe finds a "N. "/"N) "/"N: " item marker anywhere in a
// line, used to split a numbered list the model crammed onto one line
// (e.g. "1. a 2. b"), per spec.md §8's inline-list boundary behavior.
var numberedMarkerRe = regexp.MustCompile(`\d+[.):]\s+`)

// splitInlineNumberedItems breaks a line containing two or more numbered
// markers into one sub-line per item, each still carrying its marker so
// planLineRe can match it normally. A line with fewer than two markers is
// returned unchanged.
func splitInlineNumberedItems(line string) []string {
	locs := numberedMarkerRe.FindAllStringIndex(line, -1)
	if len(locs) < 2 {
		return []string{line}
	}
	items := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(line)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		items = append(items, line[loc[0]:end])
	}
	return items
}

// ParsePlan extracts plan step descriptions from a planner LLM response,
// truncated to at most maxSteps. minSteps is not enforced: a shorter plan
// is returned as parsed, never padded. If parsing yields zero steps, it
// falls back to a single step equal to originalQuery, per spec.md §4.1.
func ParsePlan(response, originalQuery string, minSteps, maxSteps int) []PlanStep {
	var descriptions []string
	for _, rawLine := range strings.Split(response, "\n") {
		for _, line := range splitInlineNumberedItems(rawLine) {
			m := planLineRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			desc := strings.TrimSpace(m[1])
			if desc != "" {
				descriptions = append(descriptions, desc)
			}
		}
	}

	if len(descriptions) == 0 {
		descriptions = []string{originalQuery}
	}
	if maxSteps > 0 && len(descriptions) > maxSteps {
		descriptions = descriptions[:maxSteps]
	}
	_ = minSteps // bounds are enforced by the planner's prompt; parsing never pads short plans

	steps := make([]PlanStep, len(descriptions))
	for i, desc := range descriptions {
		steps[i] = NewPlanStep(desc)
	}
	return steps
}

// NewPlanStep builds a fresh TODO plan step with a new id and the default
// substep budget.
func NewPlanStep(description string) PlanStep {
	return PlanStep{
		ID:          uuid.NewString(),
		Description: description,
		Status:      StepTODO,
		MaxSubsteps: DefaultMaxSubsteps,
	}
}
