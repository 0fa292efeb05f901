package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	approvalinmem "github.com/clearlane/deepresearch/approval/inmem"
	"github.com/clearlane/deepresearch/engine"
	"github.com/clearlane/deepresearch/engine/inmem"
	"github.com/clearlane/deepresearch/notify"
	"github.com/clearlane/deepresearch/research"
	"github.com/clearlane/deepresearch/runmeta"
	runmetainmem "github.com/clearlane/deepresearch/runmeta/inmem"
	storeinmem "github.com/clearlane/deepresearch/store/inmem"
)

// registerStubWorkflow registers a ResearchWorkflow stand-in that returns
// immediately with the given stop reason, letting these tests exercise
// Service without a full LLM-backed driver.
func registerStubWorkflow(t *testing.T, eng engine.Engine, stop research.StopReason) {
	t.Helper()
	err := eng.RegisterWorkflow(context.Background(), engine.WorkflowDefinition{
		Name: research.WorkflowName,
		Handler: func(wctx engine.WorkflowContext, input any) (any, error) {
			return research.WorkflowResult{Stop: stop}, nil
		},
	})
	require.NoError(t, err)
}

func newTestService(t *testing.T, maxConcurrent int) (*Service, runmeta.Store) {
	t.Helper()
	eng := inmem.New()
	runMeta := runmetainmem.New()
	approvals := approvalinmem.New()
	checkpoints := storeinmem.New()
	hub := notify.New(16)
	return NewService(eng, runMeta, approvals, checkpoints, hub, "test-queue", maxConcurrent, 5), runMeta
}

func TestStartResearchMarksRunActiveThenCompleted(t *testing.T) {
	svc, runMeta := newTestService(t, 0)
	registerStubWorkflow(t, svc.Engine, research.StopDone)
	ctx := context.Background()

	_, err := runMeta.Create(ctx, "run-1", "user-1", "what is CAP theorem", time.Now().UTC())
	require.NoError(t, err)

	run, err := svc.StartResearch(ctx, "run-1", "what is CAP theorem", 0)
	require.NoError(t, err)
	assert.Equal(t, runmeta.StatusActive, run.Status)

	require.Eventually(t, func() bool {
		r, err := runMeta.Load(ctx, "run-1")
		return err == nil && r.Status == runmeta.StatusCompleted
	}, time.Second, 5*time.Millisecond)
}

func TestStartResearchRejectsDoubleStart(t *testing.T) {
	svc, runMeta := newTestService(t, 0)
	registerStubWorkflow(t, svc.Engine, research.StopPaused)
	ctx := context.Background()

	_, err := runMeta.Create(ctx, "run-2", "user-1", "q", time.Now().UTC())
	require.NoError(t, err)

	_, err = svc.StartResearch(ctx, "run-2", "q", 0)
	require.NoError(t, err)

	_, err = svc.StartResearch(ctx, "run-2", "q", 0)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestHasStateReflectsCheckpointPresence(t *testing.T) {
	svc, runMeta := newTestService(t, 0)
	ctx := context.Background()

	_, err := runMeta.Create(ctx, "run-3", "user-1", "q", time.Now().UTC())
	require.NoError(t, err)

	has, err := svc.HasState(ctx, "run-3")
	require.NoError(t, err)
	assert.False(t, has)

	state := research.NewRunState("q", 5)
	err = research.StoreCheckpointer{Store: svc.Checkpoints}.SaveCheckpoint(ctx, "run-3", state)
	require.NoError(t, err)

	has, err = svc.HasState(ctx, "run-3")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRecoverMarksActiveRunsInterrupted(t *testing.T) {
	svc, runMeta := newTestService(t, 0)
	ctx := context.Background()

	_, err := runMeta.Create(ctx, "run-4", "user-1", "q", time.Now().UTC())
	require.NoError(t, err)
	active := runmeta.StatusActive
	_, err = runMeta.Patch(ctx, "run-4", nil, &active)
	require.NoError(t, err)

	require.NoError(t, svc.Recover(ctx))

	r, err := runMeta.Load(ctx, "run-4")
	require.NoError(t, err)
	assert.Equal(t, runmeta.StatusInterrupted, r.Status)
}

func TestAdmissionControlBlocksBeyondMaxConcurrentRuns(t *testing.T) {
	svc, runMeta := newTestService(t, 1)
	block := make(chan struct{})
	err := svc.Engine.RegisterWorkflow(context.Background(), engine.WorkflowDefinition{
		Name: research.WorkflowName,
		Handler: func(wctx engine.WorkflowContext, input any) (any, error) {
			<-block
			return research.WorkflowResult{Stop: research.StopDone}, nil
		},
	})
	require.NoError(t, err)
	defer close(block)
	ctx := context.Background()

	_, err = runMeta.Create(ctx, "run-5", "user-1", "q", time.Now().UTC())
	require.NoError(t, err)
	_, err = runMeta.Create(ctx, "run-6", "user-1", "q", time.Now().UTC())
	require.NoError(t, err)

	_, err = svc.StartResearch(ctx, "run-5", "q", 0)
	require.NoError(t, err)

	startCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = svc.StartResearch(startCtx, "run-6", "q", 0)
	assert.Error(t, err)
}
