// Package approval implements the human-in-the-loop approvals half of the
// out-of-scope metadata store from spec.md §1(iv): pending terminal-command
// approvals keyed by (run_id, command_hash), with compare-and-set semantics
// so the driver's pending insert and the API's response write never race.
package approval

import (
	"context"
	"errors"
)

type (
	// Decision is the outcome of an approval request.
	Decision int

	// Approval is one pending or resolved terminal-command approval, per
	// spec.md §3.
	Approval struct {
		// RunID is the run the command was requested from.
		RunID string
		// CommandHash is md5(command_text), computed by terminal_prepare.
		CommandHash string
		// CommandText is the full shell command awaiting approval.
		CommandText string
		// Decision is Pending until the client responds.
		Decision Decision
	}

	// Store persists approvals with CAS semantics on (run_id, command_hash).
	// Implementations must reject a granted<->denied flip once a decision has
	// been read by RecordConsumed, matching spec §8's idempotence law.
	Store interface {
		// Request inserts a pending approval. Idempotent: if one already
		// exists for (runID, commandHash) it is returned unchanged rather than
		// overwritten.
		Request(ctx context.Context, runID, commandHash, commandText string) (Approval, error)

		// Respond resolves a pending approval to granted or denied. Returns
		// ErrAlreadyResolved if the approval was already consumed by the
		// driver (RecordConsumed), and ErrNotFound if it does not exist.
		// Re-applying the same decision to an already-resolved-but-unconsumed
		// approval is a no-op.
		Respond(ctx context.Context, runID, commandHash string, approved bool) (Approval, error)

		// Load returns the approval for (runID, commandHash). Returns
		// ErrNotFound if it does not exist.
		Load(ctx context.Context, runID, commandHash string) (Approval, error)

		// ListPending returns every pending approval for a run, used by
		// GET /approvals/{run_id}.
		ListPending(ctx context.Context, runID string) ([]Approval, error)

		// RecordConsumed marks the approval as read by the driver, after
		// which Respond may no longer flip its decision. Safe to call
		// multiple times.
		RecordConsumed(ctx context.Context, runID, commandHash string) error

		// DeleteRun removes every approval for a run, used when a run is
		// deleted (DELETE /runs/{id} cascades approvals).
		DeleteRun(ctx context.Context, runID string) error
	}
)

const (
	// Pending is the initial state: no client decision yet.
	Pending Decision = 0
	// Granted means the client approved the command.
	Granted Decision = 1
	// Denied means the client rejected the command.
	Denied Decision = -1
)

var (
	// ErrNotFound indicates no approval exists for (run_id, command_hash).
	ErrNotFound = errors.New("approval: not found")
	// ErrAlreadyResolved indicates Respond was called on an approval the
	// driver has already consumed.
	ErrAlreadyResolved = errors.New("approval: already resolved")
)
