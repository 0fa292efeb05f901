// Package inmem provides an in-memory implementation of approval.Store for
// tests and local development.
package inmem

import (
	"context"
	"sync"

	"github.com/clearlane/deepresearch/approval"
)

type key struct {
	runID, hash string
}

type entry struct {
	approval.Approval
	consumed bool
}

// Store implements approval.Store in memory. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[key]entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: make(map[key]entry)}
}

// Request implements approval.Store.
func (s *Store) Request(_ context.Context, runID, commandHash, commandText string) (approval.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{runID, commandHash}
	if e, ok := s.entries[k]; ok {
		return e.Approval, nil
	}
	a := approval.Approval{RunID: runID, CommandHash: commandHash, CommandText: commandText, Decision: approval.Pending}
	s.entries[k] = entry{Approval: a}
	return a, nil
}

// Respond implements approval.Store.
func (s *Store) Respond(_ context.Context, runID, commandHash string, approved bool) (approval.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{runID, commandHash}
	e, ok := s.entries[k]
	if !ok {
		return approval.Approval{}, approval.ErrNotFound
	}
	decision := approval.Denied
	if approved {
		decision = approval.Granted
	}
	if e.consumed && e.Decision != decision {
		return approval.Approval{}, approval.ErrAlreadyResolved
	}
	e.Decision = decision
	s.entries[k] = e
	return e.Approval, nil
}

// Load implements approval.Store.
func (s *Store) Load(_ context.Context, runID, commandHash string) (approval.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key{runID, commandHash}]
	if !ok {
		return approval.Approval{}, approval.ErrNotFound
	}
	return e.Approval, nil
}

// ListPending implements approval.Store.
func (s *Store) ListPending(_ context.Context, runID string) ([]approval.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []approval.Approval
	for k, e := range s.entries {
		if k.runID == runID && e.Decision == approval.Pending {
			out = append(out, e.Approval)
		}
	}
	return out, nil
}

// RecordConsumed implements approval.Store.
func (s *Store) RecordConsumed(_ context.Context, runID, commandHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{runID, commandHash}
	e, ok := s.entries[k]
	if !ok {
		return approval.ErrNotFound
	}
	e.consumed = true
	s.entries[k] = e
	return nil
}

// DeleteRun implements approval.Store.
func (s *Store) DeleteRun(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if k.runID == runID {
			delete(s.entries, k)
		}
	}
	return nil
}
