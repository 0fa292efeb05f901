package research

// Transition is a node's directed handoff to the next node in the outer
// graph, per spec.md §4.1 "planner, evaluator, and strategist each emit a
// directed transition along with their state update".
type Transition string

const (
	ToPlanner             Transition = "planner"
	ToExecutor            Transition = "executor"
	ToEvaluator           Transition = "evaluator"
	ToStrategist          Transition = "strategist"
	ToReporter            Transition = "reporter"
	ToSuspendConfirmation Transition = "suspend_confirmation"
	ToSuspendTerminal     Transition = "suspend_terminal"
	ToEnd                 Transition = "end"
)

// TransitionForPhase infers the pending transition a checkpointed RunState
// was about to take from its Phase, for resuming a crashed or paused run
// from its latest checkpoint per spec.md §4.4 "the driver replays from the
// pending transition" and §4.7's resume-from-latest-checkpoint contract.
func TransitionForPhase(state *RunState) Transition {
	switch state.Phase {
	case PhasePlanning:
		return ToPlanner
	case PhaseAwaitingConfirm:
		return ToSuspendConfirmation
	case PhaseIdentifyingThemes, PhaseSearching, PhaseExecuting:
		return ToExecutor
	case PhaseAwaitingTerminal:
		return ToSuspendTerminal
	case PhaseEvaluating:
		return ToEvaluator
	case PhaseRecovering:
		return ToStrategist
	case PhaseReporting:
		return ToReporter
	case PhaseDone:
		return ToEnd
	default:
		return ToPlanner
	}
}
