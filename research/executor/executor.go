// Package executor implements the inner executor subgraph of spec.md §4.2:
// given one IN_PROGRESS plan step, it dispatches up to max_executor_calls
// tool calls (mixing parallel web search with single-shot tools), bounded
// by a call budget and an LLM-judged sufficiency check, and hands control
// back to the outer graph's evaluator node.
package executor

import (
	"context"

	"github.com/clearlane/deepresearch/research"
)

// Outcome reports why Run/Resume returned control to the outer driver.
type Outcome string

const (
	// OutcomeEvaluator means the step's tool calls are done (budget
	// exhausted or judged sufficient); the outer driver should run the
	// evaluator node next.
	OutcomeEvaluator Outcome = "evaluator"
	// OutcomeSuspendTerminal means a terminal command decision was made and
	// is awaiting human approval; the outer driver must persist the
	// pending approval and suspend until a response arrives, then call
	// Resume.
	OutcomeSuspendTerminal Outcome = "suspend_terminal"
)

// Result is Run/Resume's return value.
type Result struct {
	Outcome Outcome
}

// Run executes the subgraph from its entry node for the current step, per
// spec.md §4.2 steps 1-2. It returns when the step is ready for evaluation
// or suspends on a terminal approval.
func Run(ctx context.Context, state *research.RunState, deps research.Deps) (Result, error) {
	entry(state)
	return loop(ctx, state, deps)
}

// Resume continues the subgraph after a suspended terminal approval has
// been resolved, per spec.md §4.6 "coordinator signals the waiting driver
// which either proceeds to terminal_execute (granted) or records a failure
// tool call (denied) and loops back to decision".
func Resume(ctx context.Context, state *research.RunState, deps research.Deps, approved bool) (Result, error) {
	pt := state.PendingTerminal
	if pt == nil {
		// Nothing pending; fall through to a normal iteration.
		state.Phase = research.PhaseExecuting
		return loop(ctx, state, deps)
	}

	if approved {
		runTerminal(ctx, state, deps, pt.Command)
	} else {
		accumulateToolResult(state, "terminal_execute", map[string]any{"command": pt.Command}, "", toolFailure("denied by user"))
	}
	state.PendingTerminal = nil
	state.Phase = research.PhaseExecuting

	if checkSufficiency(ctx, state, deps) {
		return exit(state)
	}
	return loop(ctx, state, deps)
}

// entry resets the per-step executor transient fields and marks the
// current step IN_PROGRESS if it is still TODO, per spec.md §4.2 step 1 and
// the §3 invariant that exactly one step is IN_PROGRESS while the phase is
// searching or executing.
func entry(state *research.RunState) {
	state.ResetExecutorFields()
	state.Phase = research.PhaseExecuting
	if step := state.CurrentStep(); step != nil && step.Status == research.StepTODO {
		step.Status = research.StepInProgress
	}
}

// loop runs decision -> branch -> sufficiency_check repeatedly until the
// call budget is exhausted, the sufficiency check is satisfied, the model
// emits DONE, or a terminal command needs approval.
func loop(ctx context.Context, state *research.RunState, deps research.Deps) (Result, error) {
	for {
		if state.ExecutorCallCount >= state.MaxExecutorCalls {
			state.ExecutorSufficient = true
			return exit(state)
		}

		decision := decide(ctx, state, deps)
		state.ExecutorDecision = &decision

		switch decision.Tool {
		case "web_search":
			runWebSearch(ctx, state, deps, decision)
		case "terminal":
			prepareTerminal(state, decision.Params, deps)
			return Result{Outcome: OutcomeSuspendTerminal}, nil
		case "read_file":
			runFileRead(ctx, state, deps, decision)
		case "knowledge":
			runKnowledge(ctx, state, deps, decision)
		default: // "done" or any unrecognized tool tag
			return exit(state)
		}

		if checkSufficiency(ctx, state, deps) {
			return exit(state)
		}
	}
}

// exit composes step_findings from the step's successful tool records (or a
// diagnostic if none succeeded), clears transient executor fields, and
// hands control to the evaluator, per spec.md §4.2 step 8.
func exit(state *research.RunState) (Result, error) {
	state.StepFindings = composeFindings(state.ExecutorToolHistory)
	state.ResetExecutorFields()
	state.Phase = research.PhaseEvaluating
	return Result{Outcome: OutcomeEvaluator}, nil
}
