// Package inmem provides an in-memory implementation of store.Checkpointer
// for tests and local development. It holds no data across process restarts.
package inmem

import (
	"context"
	"fmt"
	"sync"

	"github.com/clearlane/deepresearch/store"
)

// Store implements store.Checkpointer in memory. Safe for concurrent use
// across runs; per-run Save calls are serialized by the mutex.
type Store struct {
	mu    sync.Mutex
	seqs  map[string]int64
	byRun map[string][]store.Checkpoint
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		seqs:  make(map[string]int64),
		byRun: make(map[string][]store.Checkpoint),
	}
}

// Save implements store.Checkpointer.
func (s *Store) Save(_ context.Context, runID string, state []byte) (int64, error) {
	if runID == "" {
		return 0, fmt.Errorf("inmem: run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seqs[runID] + 1
	s.seqs[runID] = seq

	cp := store.Checkpoint{RunID: runID, Seq: seq, State: append([]byte(nil), state...)}
	s.byRun[runID] = append(s.byRun[runID], cp)
	return seq, nil
}

// Latest implements store.Checkpointer.
func (s *Store) Latest(_ context.Context, runID string) (store.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.byRun[runID]
	if len(all) == 0 {
		return store.Checkpoint{}, store.ErrNotFound
	}
	cp := all[len(all)-1]
	cp.State = append([]byte(nil), cp.State...)
	return cp, nil
}

// List implements store.Checkpointer.
func (s *Store) List(_ context.Context, runID string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.byRun[runID]
	out := make([]int64, len(all))
	for i, cp := range all {
		out[i] = cp.Seq
	}
	return out, nil
}

// Delete implements store.Checkpointer.
func (s *Store) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byRun, runID)
	delete(s.seqs, runID)
	return nil
}
