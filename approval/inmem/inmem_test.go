package inmem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearlane/deepresearch/approval"
)

func TestRequestIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	a1, err := s.Request(ctx, "run-1", "hash-1", "rm -rf /tmp/x")
	require.NoError(t, err)
	assert.Equal(t, approval.Pending, a1.Decision)

	a2, err := s.Request(ctx, "run-1", "hash-1", "a different command text")
	require.NoError(t, err)
	assert.Equal(t, "rm -rf /tmp/x", a2.CommandText, "second request must not overwrite the first")
}

func TestRespondGrantedThenDenied(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Request(ctx, "run-1", "hash-1", "ls")
	require.NoError(t, err)

	a, err := s.Respond(ctx, "run-1", "hash-1", true)
	require.NoError(t, err)
	assert.Equal(t, approval.Granted, a.Decision)

	// Until the driver records consumption, the decision may still flip.
	a, err = s.Respond(ctx, "run-1", "hash-1", false)
	require.NoError(t, err)
	assert.Equal(t, approval.Denied, a.Decision)
}

func TestRespondUnknownReturnsErrNotFound(t *testing.T) {
	s := New()
	_, err := s.Respond(context.Background(), "run-1", "missing", true)
	assert.ErrorIs(t, err, approval.ErrNotFound)
}

func TestRecordConsumedThenFlipRejected(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Request(ctx, "run-1", "hash-1", "ls")
	require.NoError(t, err)

	_, err = s.Respond(ctx, "run-1", "hash-1", true)
	require.NoError(t, err)
	require.NoError(t, s.RecordConsumed(ctx, "run-1", "hash-1"))

	_, err = s.Respond(ctx, "run-1", "hash-1", false)
	assert.ErrorIs(t, err, approval.ErrAlreadyResolved)

	// Re-applying the same decision after consumption is a no-op, not an error.
	a, err := s.Respond(ctx, "run-1", "hash-1", true)
	require.NoError(t, err)
	assert.Equal(t, approval.Granted, a.Decision)
}

func TestListPendingExcludesResolved(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Request(ctx, "run-1", "hash-1", "ls")
	require.NoError(t, err)
	_, err = s.Request(ctx, "run-1", "hash-2", "pwd")
	require.NoError(t, err)
	_, err = s.Respond(ctx, "run-1", "hash-1", true)
	require.NoError(t, err)

	pending, err := s.ListPending(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "hash-2", pending[0].CommandHash)
}

func TestDeleteRunRemovesAllApprovals(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Request(ctx, "run-1", "hash-1", "ls")
	require.NoError(t, err)

	require.NoError(t, s.DeleteRun(ctx, "run-1"))
	_, err = s.Load(ctx, "run-1", "hash-1")
	assert.ErrorIs(t, err, approval.ErrNotFound)
}
