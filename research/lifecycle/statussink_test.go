package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	approvalinmem "github.com/clearlane/deepresearch/approval/inmem"
	"github.com/clearlane/deepresearch/notify"
	"github.com/clearlane/deepresearch/research"
	runmetainmem "github.com/clearlane/deepresearch/runmeta/inmem"
)

// TestSyncStatusDrainsTokenUsageDeltaIntoRunMeta verifies that a node's
// accumulated LLM token usage reaches runmeta.Store.AddTokens and is
// cleared from the state afterward, so it is never double-counted by the
// next checkpoint.
func TestSyncStatusDrainsTokenUsageDeltaIntoRunMeta(t *testing.T) {
	runMeta := runmetainmem.New()
	approvals := approvalinmem.New()
	hub := notify.New(4)
	sink := NewStatusSink(runMeta, approvals, hub)

	ctx := context.Background()
	_, err := runMeta.Create(ctx, "run-1", "user-1", "q", time.Now())
	require.NoError(t, err)

	state := research.NewRunState("q", 5)
	state.TokenUsageDelta = 150

	require.NoError(t, sink.SyncStatus(ctx, "run-1", state))
	assert.Equal(t, int64(0), state.TokenUsageDelta)

	run, err := runMeta.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), run.TotalTokens)

	state.TokenUsageDelta = 50
	require.NoError(t, sink.SyncStatus(ctx, "run-1", state))
	run, err = runMeta.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), run.TotalTokens)
}

// TestSyncStatusSkipsAddTokensWhenDeltaIsZero confirms a node that made no
// LLM calls (e.g. a rejected plan confirmation) doesn't touch runmeta.
func TestSyncStatusSkipsAddTokensWhenDeltaIsZero(t *testing.T) {
	runMeta := runmetainmem.New()
	approvals := approvalinmem.New()
	hub := notify.New(4)
	sink := NewStatusSink(runMeta, approvals, hub)

	ctx := context.Background()
	_, err := runMeta.Create(ctx, "run-1", "user-1", "q", time.Now())
	require.NoError(t, err)

	state := research.NewRunState("q", 5)
	require.NoError(t, sink.SyncStatus(ctx, "run-1", state))

	run, err := runMeta.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), run.TotalTokens)
}
