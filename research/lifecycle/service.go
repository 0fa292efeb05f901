// Package lifecycle implements the run lifecycle service of spec.md §4.7:
// start/pause/resume/cancel, crash recovery at startup, and an in-memory
// map of live driver handles keyed by run id.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/clearlane/deepresearch/approval"
	"github.com/clearlane/deepresearch/engine"
	"github.com/clearlane/deepresearch/notify"
	"github.com/clearlane/deepresearch/research"
	"github.com/clearlane/deepresearch/research/interrupt"
	"github.com/clearlane/deepresearch/runmeta"
	"github.com/clearlane/deepresearch/store"
)

// Service drives run creation, suspension, and resumption through an
// engine.Engine, keeping runmeta.Store, approval.Store, and notify.Hub in
// sync with the live workflow's progress.
type Service struct {
	Engine      engine.Engine
	RunMeta     runmeta.Store
	Approvals   approval.Store
	Checkpoints store.Checkpointer
	Hub         notify.Hub
	TaskQueue   string

	// DefaultMaxExecutorCalls seeds new runs that don't specify their own
	// budget.
	DefaultMaxExecutorCalls int

	mu      sync.Mutex
	handles map[string]engine.WorkflowHandle
	sem     chan struct{}
}

// NewService builds a Service. maxConcurrentRuns <= 0 means unbounded, per
// spec.md §9's MaxConcurrentRuns admission control.
func NewService(eng engine.Engine, runMeta runmeta.Store, approvals approval.Store, checkpoints store.Checkpointer, hub notify.Hub, taskQueue string, maxConcurrentRuns, defaultMaxExecutorCalls int) *Service {
	var sem chan struct{}
	if maxConcurrentRuns > 0 {
		sem = make(chan struct{}, maxConcurrentRuns)
	}
	return &Service{
		Engine:                  eng,
		RunMeta:                 runMeta,
		Approvals:               approvals,
		Checkpoints:             checkpoints,
		Hub:                     hub,
		TaskQueue:               taskQueue,
		DefaultMaxExecutorCalls: defaultMaxExecutorCalls,
		handles:                 make(map[string]engine.WorkflowHandle),
		sem:                     sem,
	}
}

// Recover marks every run left `active` when the process last exited as
// `interrupted`, per spec.md §4.7 "Startup: any run with status active is
// set to interrupted".
func (s *Service) Recover(ctx context.Context) error {
	runs, err := s.RunMeta.ListByStatus(ctx, runmeta.StatusActive)
	if err != nil {
		return err
	}
	for _, r := range runs {
		status := runmeta.StatusInterrupted
		if _, err := s.RunMeta.Patch(ctx, r.ID, nil, &status); err != nil {
			return fmt.Errorf("lifecycle: recover run %q: %w", r.ID, err)
		}
		s.Hub.Publish(notify.Event{Type: notify.EventRunPaused, RunID: r.ID, Payload: map[string]any{"reason": "crashed"}})
	}
	return nil
}

func (s *Service) acquire(ctx context.Context) error {
	if s.sem == nil {
		return nil
	}
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) release() {
	if s.sem == nil {
		return
	}
	<-s.sem
}

func (s *Service) handle(runID string) (engine.WorkflowHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[runID]
	return h, ok
}

// ErrAlreadyRunning means StartResearch was called for a run that already
// has a live driver handle, per spec.md §6 "409 if the run is already
// executing on a start".
var ErrAlreadyRunning = errors.New("lifecycle: run is already executing")

// HasState reports whether runID has ever been checkpointed, the signal
// POST /research/message uses to decide between starting fresh and
// resuming from the latest checkpoint, per spec.md §6.
func (s *Service) HasState(ctx context.Context, runID string) (bool, error) {
	_, err := s.Checkpoints.Latest(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// StartResearch launches the workflow for an already-created run (created
// via RunMeta.Create by the run-CRUD endpoint), entering the planner with
// originalQuery, per spec.md §4.7 "a run can be started (creates initial
// state, enters planner)".
func (s *Service) StartResearch(ctx context.Context, runID, originalQuery string, maxExecutorCalls int) (runmeta.Run, error) {
	if _, ok := s.handle(runID); ok {
		return runmeta.Run{}, ErrAlreadyRunning
	}
	if err := s.acquire(ctx); err != nil {
		return runmeta.Run{}, err
	}

	if maxExecutorCalls <= 0 {
		maxExecutorCalls = s.DefaultMaxExecutorCalls
	}
	handle, err := s.Engine.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:        runID,
		Workflow:  research.WorkflowName,
		TaskQueue: s.TaskQueue,
		Input:     research.StartInput{OriginalQuery: originalQuery, MaxExecutorCalls: maxExecutorCalls},
	})
	if err != nil {
		s.release()
		return runmeta.Run{}, err
	}

	active := runmeta.StatusActive
	run, err := s.RunMeta.Patch(ctx, runID, nil, &active)
	if err != nil {
		s.release()
		return runmeta.Run{}, err
	}

	s.mu.Lock()
	s.handles[runID] = handle
	s.mu.Unlock()

	s.Hub.Publish(notify.Event{Type: notify.EventRunStart, RunID: runID, Payload: map[string]any{"original_query": originalQuery}})
	go s.await(runID, handle)
	return run, nil
}

// Pause requests cooperative cancellation at the next node boundary, per
// spec.md §4.7.
func (s *Service) Pause(ctx context.Context, runID string) error {
	h, ok := s.handle(runID)
	if !ok {
		return fmt.Errorf("lifecycle: no live driver for run %q", runID)
	}
	return h.Signal(ctx, interrupt.SignalPause, interrupt.PauseRequest{Reason: "requested by client"})
}

// Cancel stops the driver outright. A live run is signalled to stop; a run
// with no live handle (already paused or interrupted) is marked failed
// directly.
func (s *Service) Cancel(ctx context.Context, runID string) error {
	if h, ok := s.handle(runID); ok {
		return h.Signal(ctx, interrupt.SignalCancel, interrupt.CancelRequest{Reason: "requested by client"})
	}
	status := runmeta.StatusFailed
	_, err := s.RunMeta.Patch(ctx, runID, nil, &status)
	return err
}

// Resume restarts a paused or interrupted run's workflow from its latest
// checkpoint, per spec.md §4.7 "resumed (from latest checkpoint)".
func (s *Service) Resume(ctx context.Context, runID string) (runmeta.Run, error) {
	run, err := s.RunMeta.Load(ctx, runID)
	if err != nil {
		return runmeta.Run{}, err
	}
	if run.Status != runmeta.StatusPaused && run.Status != runmeta.StatusInterrupted {
		return runmeta.Run{}, fmt.Errorf("lifecycle: run %q is not paused or interrupted (status=%s)", runID, run.Status)
	}
	if err := s.acquire(ctx); err != nil {
		return runmeta.Run{}, err
	}

	state, err := research.LoadLatestCheckpoint(ctx, s.Checkpoints, runID)
	if err != nil {
		s.release()
		return runmeta.Run{}, err
	}
	transition := research.TransitionForPhase(state)

	handle, err := s.Engine.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:        runID,
		Workflow:  research.WorkflowName,
		TaskQueue: s.TaskQueue,
		Input:     research.ResumeInput{State: state, Transition: transition},
	})
	if err != nil {
		s.release()
		return runmeta.Run{}, err
	}

	status := runmeta.StatusActive
	if run, err = s.RunMeta.Patch(ctx, runID, nil, &status); err != nil {
		s.release()
		return runmeta.Run{}, err
	}

	s.mu.Lock()
	s.handles[runID] = handle
	s.mu.Unlock()

	s.Hub.Publish(notify.Event{Type: notify.EventPhaseChange, RunID: runID, Payload: map[string]any{"phase": state.Phase, "resumed": true}})
	go s.await(runID, handle)
	return run, nil
}

// ConfirmPlan resolves the plan-confirmation interrupt of spec.md §4.6 for
// a live run.
func (s *Service) ConfirmPlan(ctx context.Context, runID string, approve bool, note string) error {
	h, ok := s.handle(runID)
	if !ok {
		return fmt.Errorf("lifecycle: no live driver for run %q", runID)
	}
	return h.Signal(ctx, research.SignalPlanConfirmation, research.PlanConfirmationSignal{Approve: approve, Note: note})
}

// RespondApproval resolves a pending terminal-command approval and signals
// the waiting driver, per spec.md §4.6.
func (s *Service) RespondApproval(ctx context.Context, runID, commandHash string, approved bool) error {
	if _, err := s.Approvals.Respond(ctx, runID, commandHash, approved); err != nil {
		return err
	}
	h, ok := s.handle(runID)
	if !ok {
		return fmt.Errorf("lifecycle: no live driver for run %q", runID)
	}
	if err := h.Signal(ctx, research.SignalTerminalApproval, research.TerminalApprovalSignal{Approved: approved}); err != nil {
		return err
	}
	if err := s.Approvals.RecordConsumed(ctx, runID, commandHash); err != nil {
		return err
	}
	s.Hub.Publish(notify.Event{Type: notify.EventApprovalResponse, RunID: runID, Payload: map[string]any{"command_hash": commandHash, "approved": approved}})
	return nil
}

// await blocks on the workflow handle and reconciles runmeta/notify once it
// returns, releasing the admission semaphore either way.
func (s *Service) await(runID string, handle engine.WorkflowHandle) {
	defer s.release()
	ctx := context.Background()

	var result research.WorkflowResult
	err := handle.Wait(ctx, &result)

	s.mu.Lock()
	delete(s.handles, runID)
	s.mu.Unlock()

	if err != nil {
		status := runmeta.StatusFailed
		s.RunMeta.Patch(ctx, runID, nil, &status)
		s.Hub.Publish(notify.Event{Type: notify.EventRunError, RunID: runID, Payload: map[string]any{"error": err.Error()}})
		s.Hub.EndRun(runID)
		return
	}

	switch result.Stop {
	case research.StopPaused:
		status := runmeta.StatusPaused
		s.RunMeta.Patch(ctx, runID, nil, &status)
		s.Hub.Publish(notify.Event{Type: notify.EventRunPaused, RunID: runID, Payload: map[string]any{"reason": result.Reason}})
	case research.StopCancelled:
		status := runmeta.StatusFailed
		s.RunMeta.Patch(ctx, runID, nil, &status)
		s.Hub.Publish(notify.Event{Type: notify.EventRunError, RunID: runID, Payload: map[string]any{"error": result.Reason}})
		s.Hub.EndRun(runID)
	default: // research.StopDone
		status := runmeta.StatusCompleted
		s.RunMeta.Patch(ctx, runID, nil, &status)
		s.Hub.Publish(notify.Event{Type: notify.EventRunComplete, RunID: runID})
		s.Hub.EndRun(runID)
	}
}
