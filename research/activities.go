package research

import (
	"context"
	"fmt"

	"github.com/clearlane/deepresearch/engine"
)

// Checkpointer persists a RunState snapshot so a crashed or restarted
// engine can resume a run from ActivityCheckpoint's last write, per
// spec.md §4.4.
type Checkpointer interface {
	SaveCheckpoint(ctx context.Context, runID string, state *RunState) error
}

// StatusSink mirrors a checkpointed RunState into external run metadata
// and live-event subscribers, so plan-confirmation and terminal-approval
// suspensions are visible immediately rather than only once the workflow's
// Wait returns. Called by ActivityCheckpoint after every node, per
// spec.md §4.5/§4.6.
type StatusSink interface {
	SyncStatus(ctx context.Context, runID string, state *RunState) error
}

// ExecutorRunner is the seam research/executor satisfies, kept here as an
// interface so this package does not import research/executor directly
// (research/executor already imports research for RunState/Deps/Decision).
// Implementations translate their own outcome type into the outer driver's
// Transition vocabulary.
type ExecutorRunner interface {
	Run(ctx context.Context, state *RunState, deps Deps) (Transition, error)
	Resume(ctx context.Context, state *RunState, deps Deps, approved bool) (Transition, error)
}

// NodeActivities wires outer-graph node functions up as engine activities.
// One instance is registered per process (its Deps/Checkpointer/StatusSink
// are shared collaborators, not per-run state); the run a given activity
// invocation belongs to travels in NodeInput.RunID alongside the state.
type NodeActivities struct {
	Deps         Deps
	Executor     ExecutorRunner
	Checkpointer Checkpointer
	StatusSink   StatusSink
}

// RegisterAll registers every activity this package's workflow drives plus
// the workflow definition itself, on the given engine and task queue.
func (a *NodeActivities) RegisterAll(ctx context.Context, eng engine.Engine, taskQueue string) error {
	defs := []engine.ActivityDefinition{
		{Name: ActivityPlanner, Handler: a.planner},
		{Name: ActivityEvaluator, Handler: a.evaluator},
		{Name: ActivityStrategist, Handler: a.strategist},
		{Name: ActivityReporter, Handler: a.reporter},
		{Name: ActivityExecutorRun, Handler: a.executorRun},
		{Name: ActivityExecutorResume, Handler: a.executorResume},
		{Name: ActivityCheckpoint, Handler: a.checkpoint},
	}
	for _, def := range defs {
		if err := eng.RegisterActivity(ctx, def); err != nil {
			return err
		}
	}
	return eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name:      WorkflowName,
		TaskQueue: taskQueue,
		Handler:   Workflow,
	})
}

func (a *NodeActivities) nodeInput(input any) (NodeInput, error) {
	in, ok := input.(NodeInput)
	if !ok {
		return NodeInput{}, fmt.Errorf("research: activity expected NodeInput, got %T", input)
	}
	return in, nil
}

func (a *NodeActivities) planner(ctx context.Context, input any) (any, error) {
	in, err := a.nodeInput(input)
	if err != nil {
		return nil, err
	}
	t, err := RunPlanner(ctx, in.State, a.Deps)
	if err != nil {
		return nil, err
	}
	return NodeOutput{State: in.State, Transition: t}, nil
}

func (a *NodeActivities) evaluator(ctx context.Context, input any) (any, error) {
	in, err := a.nodeInput(input)
	if err != nil {
		return nil, err
	}
	t, err := RunEvaluator(ctx, in.State, a.Deps)
	if err != nil {
		return nil, err
	}
	return NodeOutput{State: in.State, Transition: t}, nil
}

func (a *NodeActivities) strategist(ctx context.Context, input any) (any, error) {
	in, err := a.nodeInput(input)
	if err != nil {
		return nil, err
	}
	t, err := RunStrategist(ctx, in.State, a.Deps)
	if err != nil {
		return nil, err
	}
	return NodeOutput{State: in.State, Transition: t}, nil
}

func (a *NodeActivities) reporter(ctx context.Context, input any) (any, error) {
	in, err := a.nodeInput(input)
	if err != nil {
		return nil, err
	}
	t, err := RunReporter(ctx, in.State, a.Deps)
	if err != nil {
		return nil, err
	}
	return NodeOutput{State: in.State, Transition: t}, nil
}

func (a *NodeActivities) executorRun(ctx context.Context, input any) (any, error) {
	in, err := a.nodeInput(input)
	if err != nil {
		return nil, err
	}
	t, err := a.Executor.Run(ctx, in.State, a.Deps)
	if err != nil {
		return nil, err
	}
	return NodeOutput{State: in.State, Transition: t}, nil
}

func (a *NodeActivities) executorResume(ctx context.Context, input any) (any, error) {
	in, ok := input.(ExecutorResumeInput)
	if !ok {
		return nil, fmt.Errorf("research: ActivityExecutorResume expected ExecutorResumeInput, got %T", input)
	}
	t, err := a.Executor.Resume(ctx, in.State, a.Deps, in.Approved)
	if err != nil {
		return nil, err
	}
	return NodeOutput{State: in.State, Transition: t}, nil
}

func (a *NodeActivities) checkpoint(ctx context.Context, input any) (any, error) {
	in, err := a.nodeInput(input)
	if err != nil {
		return nil, err
	}
	// StatusSink runs first: it drains TokenUsageDelta into runmeta.Store and
	// zeroes it, so the checkpoint persisted below never carries a pending
	// delta that would be double-counted on resume.
	if a.StatusSink != nil {
		if err := a.StatusSink.SyncStatus(ctx, in.RunID, in.State); err != nil {
			return nil, err
		}
	}
	if a.Checkpointer != nil {
		if err := a.Checkpointer.SaveCheckpoint(ctx, in.RunID, in.State); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
