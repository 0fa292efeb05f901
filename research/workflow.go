package research

import (
	"fmt"

	"github.com/clearlane/deepresearch/engine"
	"github.com/clearlane/deepresearch/research/interrupt"
)

// WorkflowName is the logical name research.Workflow registers with an
// engine.Engine.
const WorkflowName = "ResearchWorkflow"

// Activity names for the coarse-grained, per-node activities the workflow
// drives. Each activity is a single outer-graph node (or, for the executor,
// one full inner-subgraph run/resume) so that LLM calls and tool I/O never
// execute directly inside workflow code, per SPEC_FULL.md §4.
const (
	ActivityPlanner        = "research.Planner"
	ActivityEvaluator      = "research.Evaluator"
	ActivityStrategist     = "research.Strategist"
	ActivityReporter       = "research.Reporter"
	ActivityExecutorRun    = "research.ExecutorRun"
	ActivityExecutorResume = "research.ExecutorResume"
	ActivityCheckpoint     = "research.Checkpoint"
)

// Signal names the workflow listens on for the two human-in-the-loop
// interrupts spec.md §4.6 names.
const (
	SignalPlanConfirmation = "plan_confirmation"
	SignalTerminalApproval = "terminal_approval"
)

type (
	// StartInput is the serializable payload a caller passes to start a new
	// research workflow.
	StartInput struct {
		OriginalQuery    string
		MaxExecutorCalls int
	}

	// ResumeInput restarts a workflow's outer loop from a checkpointed
	// state and the transition it was about to take when it last
	// suspended or crashed, per spec.md §4.4's resume contract.
	ResumeInput struct {
		State      *RunState
		Transition Transition
	}

	// NodeInput is the activity input shared by every outer-graph node.
	// RunID travels alongside State because activity handlers are
	// registered once per process (shared Deps) rather than once per run;
	// State itself carries no run identity.
	NodeInput struct {
		RunID string
		State *RunState
	}

	// NodeOutput is the activity output shared by every outer-graph node:
	// the (possibly mutated) state plus the node's directed transition.
	NodeOutput struct {
		State      *RunState
		Transition Transition
	}

	// ExecutorResumeInput is ActivityExecutorResume's input: the approval
	// decision for the pending terminal command.
	ExecutorResumeInput struct {
		RunID    string
		State    *RunState
		Approved bool
	}

	// PlanConfirmationSignal is the payload delivered on
	// SignalPlanConfirmation.
	PlanConfirmationSignal struct {
		Approve bool
		Note    string
	}

	// TerminalApprovalSignal is the payload delivered on
	// SignalTerminalApproval.
	TerminalApprovalSignal struct {
		Approved bool
	}

	// WorkflowResult is what Workflow returns: the run's final or
	// suspended state, plus why the loop stopped.
	WorkflowResult struct {
		State  *RunState
		Stop   StopReason
		Reason string
	}
)

// StopReason names why driveFrom returned without the run reaching `done`.
type StopReason string

const (
	// StopDone means the run completed normally (reporter ran, phase=done).
	StopDone StopReason = "done"
	// StopPaused means a cooperative pause signal was observed at a node
	// boundary, per spec.md §4.7.
	StopPaused StopReason = "paused"
	// StopCancelled means a cancel signal was observed; the run ends
	// failed with Reason set.
	StopCancelled StopReason = "cancelled"
)

// Workflow is the engine.WorkflowFunc registered under WorkflowName. It
// loops over the outer state machine's node activities until the run
// reaches `done`, per spec.md §4.1's static/dynamic edges, checkpointing
// after every node via ActivityCheckpoint.
func Workflow(ctx engine.WorkflowContext, input any) (any, error) {
	controller := interrupt.NewController(ctx)
	switch in := input.(type) {
	case StartInput:
		state := NewRunState(in.OriginalQuery, in.MaxExecutorCalls)
		return driveFrom(ctx, state, ToPlanner, controller)
	case ResumeInput:
		return driveFrom(ctx, in.State, in.Transition, controller)
	default:
		return nil, fmt.Errorf("research: unsupported workflow input %T", input)
	}
}

// driveFrom is the workflowLoop-style driver: an immutable per-iteration
// transition wrapping the mutable RunState, looping until a terminal phase
// or interrupt is reached. Between node executions it polls the interrupt
// controller for pause/cancel signals, per spec.md §4.7's node-boundary
// suspension discipline.
func driveFrom(ctx engine.WorkflowContext, state *RunState, transition Transition, controller *interrupt.Controller) (WorkflowResult, error) {
	for {
		if req, ok := controller.PollCancel(); ok {
			if err := checkpoint(ctx, state); err != nil {
				return WorkflowResult{}, err
			}
			return WorkflowResult{State: state, Stop: StopCancelled, Reason: req.Reason}, nil
		}
		if req, ok := controller.PollPause(); ok {
			if err := checkpoint(ctx, state); err != nil {
				return WorkflowResult{}, err
			}
			return WorkflowResult{State: state, Stop: StopPaused, Reason: req.Reason}, nil
		}

		var err error
		switch transition {
		case ToPlanner:
			transition, err = execNode(ctx, ActivityPlanner, state)
		case ToExecutor:
			transition, err = execNode(ctx, ActivityExecutorRun, state)
		case ToEvaluator:
			transition, err = execNode(ctx, ActivityEvaluator, state)
		case ToStrategist:
			transition, err = execNode(ctx, ActivityStrategist, state)
		case ToReporter:
			transition, err = execNode(ctx, ActivityReporter, state)

		case ToSuspendConfirmation:
			if err := checkpoint(ctx, state); err != nil {
				return WorkflowResult{}, err
			}
			var sig PlanConfirmationSignal
			if err := ctx.SignalChannel(SignalPlanConfirmation).Receive(ctx.Context(), &sig); err != nil {
				return WorkflowResult{}, err
			}
			transition = ConfirmPlan(state, sig.Approve, sig.Note)
			continue

		case ToSuspendTerminal:
			if err := checkpoint(ctx, state); err != nil {
				return WorkflowResult{}, err
			}
			var sig TerminalApprovalSignal
			if err := ctx.SignalChannel(SignalTerminalApproval).Receive(ctx.Context(), &sig); err != nil {
				return WorkflowResult{}, err
			}
			transition, err = execExecutorResume(ctx, state, sig.Approved)
			if err != nil {
				return WorkflowResult{}, err
			}

		case ToEnd:
			if err := checkpoint(ctx, state); err != nil {
				return WorkflowResult{}, err
			}
			return WorkflowResult{State: state, Stop: StopDone}, nil

		default:
			return WorkflowResult{}, fmt.Errorf("research: unknown transition %q", transition)
		}

		if err != nil {
			return WorkflowResult{}, err
		}
		if err := checkpoint(ctx, state); err != nil {
			return WorkflowResult{}, err
		}
	}
}

func execNode(wctx engine.WorkflowContext, name string, state *RunState) (Transition, error) {
	var out NodeOutput
	err := wctx.ExecuteActivity(wctx.Context(), engine.ActivityRequest{Name: name, Input: NodeInput{RunID: wctx.WorkflowID(), State: state}}, &out)
	if err != nil {
		return "", err
	}
	*state = *out.State
	return out.Transition, nil
}

func execExecutorResume(wctx engine.WorkflowContext, state *RunState, approved bool) (Transition, error) {
	var out NodeOutput
	err := wctx.ExecuteActivity(wctx.Context(), engine.ActivityRequest{
		Name:  ActivityExecutorResume,
		Input: ExecutorResumeInput{RunID: wctx.WorkflowID(), State: state, Approved: approved},
	}, &out)
	if err != nil {
		return "", err
	}
	*state = *out.State
	return out.Transition, nil
}

func checkpoint(wctx engine.WorkflowContext, state *RunState) error {
	return wctx.ExecuteActivity(wctx.Context(), engine.ActivityRequest{Name: ActivityCheckpoint, Input: NodeInput{RunID: wctx.WorkflowID(), State: state}}, nil)
}
