package research

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clearlane/deepresearch/store"
)

// StoreCheckpointer adapts a store.Checkpointer into this package's
// Checkpointer seam, JSON-encoding RunState for the append-only log.
type StoreCheckpointer struct {
	Store store.Checkpointer
}

func (c StoreCheckpointer) SaveCheckpoint(ctx context.Context, runID string, state *RunState) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("research: encode checkpoint: %w", err)
	}
	_, err = c.Store.Save(ctx, runID, encoded)
	return err
}

// LoadLatestCheckpoint decodes the most recently saved checkpoint for runID
// back into a RunState, for crash/restart resume per spec.md §4.4.
func LoadLatestCheckpoint(ctx context.Context, s store.Checkpointer, runID string) (*RunState, error) {
	cp, err := s.Latest(ctx, runID)
	if err != nil {
		return nil, err
	}
	var state RunState
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return nil, fmt.Errorf("research: decode checkpoint: %w", err)
	}
	return &state, nil
}
