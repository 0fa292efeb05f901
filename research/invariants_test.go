package research

import (
	"context"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/clearlane/deepresearch/llm"
	"github.com/clearlane/deepresearch/llm/stub"
	"github.com/clearlane/deepresearch/store/inmem"
)

// genNonEmptyAlphaString generates a non-empty alpha string with length 1-20.
func genNonEmptyAlphaString() gopter.Gen {
	return gen.IntRange(1, 20).FlatMap(func(length any) gopter.Gen {
		return gen.SliceOfN(length.(int), gen.AlphaChar()).Map(func(chars []rune) string {
			return string(chars)
		})
	}, reflect.TypeOf(""))
}

// genFindings generates 0-5 non-empty finding strings.
func genFindings() gopter.Gen {
	return gen.IntRange(0, 5).FlatMap(func(n any) gopter.Gen {
		return gen.SliceOfN(n.(int), genNonEmptyAlphaString())
	}, reflect.TypeOf([]string{}))
}

// TestEvaluatorAccumulatesFindingsProperty verifies spec.md §8's findings
// invariant: whatever verdict the evaluator reaches, the step's
// accumulated_findings after the call equals its accumulated_findings before
// the call concatenated with the run's step_findings before the call, and
// step_findings is cleared afterward.
func TestEvaluatorAccumulatesFindingsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("accumulated findings equal prior findings plus new step findings", prop.ForAll(
		func(prior []string, fresh []string, verdict string) bool {
			state := NewRunState("q", 5)
			step := NewPlanStep("some step")
			step.AccumulatedFindings = append([]string{}, prior...)
			step.MaxSubsteps = 5
			state.Plan = []PlanStep{step}
			state.CurrentStepIndex = 0
			state.StepFindings = append([]string{}, fresh...)

			body := "DECISION: " + verdict + "\nREASONING: generated by property test"
			deps := Deps{LLM: stub.New(llm.Response{Content: body}), Model: "test-model"}

			_, err := RunEvaluator(context.Background(), state, deps)
			if err != nil {
				return false
			}

			want := append(append([]string{}, prior...), fresh...)
			got := state.Plan[0].AccumulatedFindings
			if len(got) != len(want) {
				return false
			}
			for i := range want {
				if got[i] != want[i] {
					return false
				}
			}
			return len(state.StepFindings) == 0
		},
		genFindings(),
		genFindings(),
		gen.OneConstOf("APPROVE", "FAIL", "SKIP"),
	))

	properties.TestingRun(t)
}

// TestCheckpointRoundTripProperty verifies spec.md §4.4's crash-recovery
// invariant: saving a RunState and loading the latest checkpoint for that
// run returns a state with the same original query, phase, and step count,
// regardless of how many times it's saved in between.
func TestCheckpointRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("the latest saved checkpoint round-trips the run state", prop.ForAll(
		func(query string, stepDescs []string, saveCount int) bool {
			state := NewRunState(query, 5)
			for _, d := range stepDescs {
				state.Plan = append(state.Plan, NewPlanStep(d))
			}
			state.Phase = PhaseExecuting

			checkpointer := StoreCheckpointer{Store: inmem.New()}
			ctx := context.Background()

			for i := 0; i < saveCount; i++ {
				if err := checkpointer.SaveCheckpoint(ctx, "run-prop", state); err != nil {
					return false
				}
			}
			if err := checkpointer.SaveCheckpoint(ctx, "run-prop", state); err != nil {
				return false
			}

			loaded, err := LoadLatestCheckpoint(ctx, checkpointer.Store, "run-prop")
			if err != nil {
				return false
			}

			if loaded.OriginalQuery != state.OriginalQuery {
				return false
			}
			if loaded.Phase != state.Phase {
				return false
			}
			return len(loaded.Plan) == len(state.Plan)
		},
		genNonEmptyAlphaString(),
		gen.SliceOfN(3, genNonEmptyAlphaString()),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}
