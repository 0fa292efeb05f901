package inmem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearlane/deepresearch/store"
)

func TestSaveAssignsMonotonicSeq(t *testing.T) {
	s := New()
	ctx := context.Background()

	seq1, err := s.Save(ctx, "run-1", []byte(`{"phase":"planning"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq1)

	seq2, err := s.Save(ctx, "run-1", []byte(`{"phase":"executing"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq2)
}

func TestSaveSequencesAreIndependentPerRun(t *testing.T) {
	s := New()
	ctx := context.Background()

	seqA, err := s.Save(ctx, "run-a", []byte("a"))
	require.NoError(t, err)
	seqB, err := s.Save(ctx, "run-b", []byte("b"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), seqA)
	assert.Equal(t, int64(1), seqB)
}

func TestLatestReturnsMostRecentCheckpoint(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Save(ctx, "run-1", []byte("first"))
	require.NoError(t, err)
	_, err = s.Save(ctx, "run-1", []byte("second"))
	require.NoError(t, err)

	latest, err := s.Latest(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.Seq)
	assert.Equal(t, "second", string(latest.State))
}

func TestLatestUnknownRunReturnsErrNotFound(t *testing.T) {
	s := New()
	_, err := s.Latest(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListReturnsAllSeqsOldestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Save(ctx, "run-1", []byte("state"))
		require.NoError(t, err)
	}

	seqs, err := s.List(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, seqs)
}

func TestDeleteRemovesAllCheckpoints(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Save(ctx, "run-1", []byte("state"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "run-1"))

	_, err = s.Latest(ctx, "run-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	seqs, err := s.List(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, seqs)
}

func TestLatestStateIsDefensivelyCopied(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Save(ctx, "run-1", []byte("original"))
	require.NoError(t, err)

	cp, err := s.Latest(ctx, "run-1")
	require.NoError(t, err)
	cp.State[0] = 'X'

	cp2, err := s.Latest(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "original", string(cp2.State))
}
