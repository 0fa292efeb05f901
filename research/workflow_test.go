package research

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearlane/deepresearch/engine"
	"github.com/clearlane/deepresearch/engine/inmem"
	"github.com/clearlane/deepresearch/research/interrupt"
)

// registerFakeNode registers an activity under name that advances the state
// machine to the given transition, without invoking any real node logic.
// This exercises Workflow's own looping/checkpointing/signal-polling
// plumbing independently of the planner/evaluator/strategist/reporter
// implementations, the same way engine/inmem's own tests register fake
// workflow/activity handlers to isolate the engine's dispatch behavior.
func registerFakeNode(t *testing.T, eng engine.Engine, name string, next Transition) {
	t.Helper()
	err := eng.RegisterActivity(context.Background(), engine.ActivityDefinition{
		Name: name,
		Handler: func(ctx context.Context, input any) (any, error) {
			in := input.(NodeInput)
			return NodeOutput{State: in.State, Transition: next}, nil
		},
	})
	require.NoError(t, err)
}

func newTestEngine(t *testing.T, checkpointCount *atomic.Int64) engine.Engine {
	t.Helper()
	eng := inmem.New()
	ctx := context.Background()

	registerFakeNode(t, eng, ActivityPlanner, ToExecutor)
	registerFakeNode(t, eng, ActivityExecutorRun, ToEvaluator)
	registerFakeNode(t, eng, ActivityEvaluator, ToReporter)
	registerFakeNode(t, eng, ActivityReporter, ToEnd)

	err := eng.RegisterActivity(ctx, engine.ActivityDefinition{
		Name: ActivityCheckpoint,
		Handler: func(ctx context.Context, input any) (any, error) {
			if checkpointCount != nil {
				checkpointCount.Add(1)
			}
			return nil, nil
		},
	})
	require.NoError(t, err)

	require.NoError(t, eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name:    WorkflowName,
		Handler: Workflow,
	}))
	return eng
}

func TestWorkflowDrivesPlannerThroughReporterToDone(t *testing.T) {
	var checkpoints atomic.Int64
	eng := newTestEngine(t, &checkpoints)
	ctx := context.Background()

	handle, err := eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:       "run-happy-path",
		Workflow: WorkflowName,
		Input:    StartInput{OriginalQuery: "what is CAP theorem", MaxExecutorCalls: 5},
	})
	require.NoError(t, err)

	var result WorkflowResult
	require.NoError(t, handle.Wait(ctx, &result))

	assert.Equal(t, StopDone, result.Stop)
	require.NotNil(t, result.State)
	assert.Equal(t, "what is CAP theorem", result.State.OriginalQuery)
	// One checkpoint after each of planner/executor/evaluator/reporter, plus
	// one more when driveFrom reaches the ToEnd transition itself.
	assert.Equal(t, int64(5), checkpoints.Load())
}

func TestWorkflowResumesFromCheckpointedStateAndTransition(t *testing.T) {
	eng := newTestEngine(t, nil)
	ctx := context.Background()

	state := NewRunState("resumed query", 3)

	handle, err := eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:       "run-resume",
		Workflow: WorkflowName,
		Input:    ResumeInput{State: state, Transition: ToEvaluator},
	})
	require.NoError(t, err)

	var result WorkflowResult
	require.NoError(t, handle.Wait(ctx, &result))

	assert.Equal(t, StopDone, result.Stop)
}

func TestWorkflowStopsPausedOnSignal(t *testing.T) {
	block := make(chan struct{})
	eng := inmem.New()
	ctx := context.Background()

	require.NoError(t, eng.RegisterActivity(ctx, engine.ActivityDefinition{
		Name: ActivityPlanner,
		Handler: func(ctx context.Context, input any) (any, error) {
			<-block
			in := input.(NodeInput)
			return NodeOutput{State: in.State, Transition: ToExecutor}, nil
		},
	}))
	require.NoError(t, eng.RegisterActivity(ctx, engine.ActivityDefinition{
		Name: ActivityCheckpoint,
		Handler: func(ctx context.Context, input any) (any, error) { return nil, nil },
	}))
	require.NoError(t, eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name:    WorkflowName,
		Handler: Workflow,
	}))

	handle, err := eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:       "run-pause",
		Workflow: WorkflowName,
		Input:    StartInput{OriginalQuery: "q", MaxExecutorCalls: 3},
	})
	require.NoError(t, err)

	require.NoError(t, handle.Signal(ctx, interrupt.SignalPause, interrupt.PauseRequest{Reason: "client requested"}))
	close(block)

	var result WorkflowResult
	require.NoError(t, handle.Wait(ctx, &result))
	assert.Equal(t, StopPaused, result.Stop)
}
