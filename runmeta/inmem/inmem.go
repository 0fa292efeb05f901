// Package inmem provides an in-memory implementation of runmeta.Store for
// tests and local development. No data survives process restart.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/clearlane/deepresearch/runmeta"
)

// Store implements runmeta.Store in memory. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	runs map[string]runmeta.Run
}

// New returns an empty Store.
func New() *Store {
	return &Store{runs: make(map[string]runmeta.Run)}
}

// Create implements runmeta.Store.
func (s *Store) Create(_ context.Context, id, userID, title string, createdAt time.Time) (runmeta.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; ok {
		return runmeta.Run{}, runmeta.ErrAlreadyExists
	}
	r := runmeta.Run{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Status:    runmeta.StatusActive,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	s.runs[id] = r
	return r, nil
}

// Load implements runmeta.Store.
func (s *Store) Load(_ context.Context, id string) (runmeta.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return runmeta.Run{}, runmeta.ErrNotFound
	}
	return r, nil
}

// Patch implements runmeta.Store.
func (s *Store) Patch(_ context.Context, id string, title *string, status *runmeta.Status) (runmeta.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return runmeta.Run{}, runmeta.ErrNotFound
	}
	if title != nil {
		r.Title = *title
	}
	if status != nil {
		r.Status = *status
	}
	r.UpdatedAt = time.Now().UTC()
	s.runs[id] = r
	return r, nil
}

// AddTokens implements runmeta.Store.
func (s *Store) AddTokens(_ context.Context, id string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return runmeta.ErrNotFound
	}
	r.TotalTokens += delta
	r.UpdatedAt = time.Now().UTC()
	s.runs[id] = r
	return nil
}

// ListByStatus implements runmeta.Store.
func (s *Store) ListByStatus(_ context.Context, statuses ...runmeta.Status) ([]runmeta.Run, error) {
	want := make(map[runmeta.Status]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []runmeta.Run
	for _, r := range s.runs {
		if len(want) == 0 || want[r.Status] {
			out = append(out, r)
		}
	}
	return out, nil
}

// Delete implements runmeta.Store.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	return nil
}
