// Package engine defines the workflow engine abstractions the research
// driver is built on. It provides a pluggable interface so the durable
// research workflow can target Temporal or an in-memory engine without
// modification, and so the engine can be swapped in tests.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/clearlane/deepresearch/telemetry"
)

// ErrWorkflowNotFound indicates a query targeted a workflow/run id the
// engine has no record of.
var ErrWorkflowNotFound = errors.New("engine: workflow not found")

type (
	// Engine abstracts workflow registration and execution so adapters
	// (Temporal, in-memory) can be swapped without touching the research
	// driver.
	Engine interface {
		// RegisterWorkflow registers a workflow definition with the engine.
		// Must be called during service initialization before starting the
		// worker pool. Returns an error if the name is already registered.
		RegisterWorkflow(ctx context.Context, def WorkflowDefinition) error

		// RegisterActivity registers an activity definition with the engine.
		// Must be called during initialization before starting workers.
		RegisterActivity(ctx context.Context, def ActivityDefinition) error

		// StartWorkflow initiates a new workflow execution and returns a
		// handle for interacting with it. req.ID must be unique.
		StartWorkflow(ctx context.Context, req WorkflowStartRequest) (WorkflowHandle, error)

		// QueryRunStatus returns the current lifecycle status for a workflow
		// execution. Returns ErrWorkflowNotFound if runID is unknown.
		QueryRunStatus(ctx context.Context, runID string) (RunStatus, error)
	}

	// WorkflowDefinition binds a workflow handler to a logical name and
	// default task queue.
	WorkflowDefinition struct {
		// Name is the logical identifier registered with the engine (e.g.
		// "ResearchWorkflow").
		Name string
		// TaskQueue is the default queue used when starting new workflows.
		TaskQueue string
		// Handler is the workflow function invoked by the engine.
		Handler WorkflowFunc
	}

	// WorkflowFunc is the research workflow entry point. It receives a
	// WorkflowContext and input, returning a result or error. The function
	// must be deterministic under replay: it should produce the same
	// execution sequence given the same inputs and activity results.
	WorkflowFunc func(ctx WorkflowContext, input any) (any, error)

	// WorkflowContext exposes engine operations to workflow handlers.
	//
	// Implementations must ensure deterministic replay: operations that
	// interact with the workflow engine (ExecuteActivity, SignalChannel)
	// must produce deterministic results when replayed. Direct I/O, random
	// number generation, or system time access within workflows violates
	// determinism.
	//
	// Thread-safety: WorkflowContext is bound to a single workflow
	// execution and must not be shared across goroutines.
	WorkflowContext interface {
		// Context returns the Go context for the workflow.
		Context() context.Context
		// WorkflowID returns the unique identifier for this execution.
		WorkflowID() string
		// RunID returns the engine-assigned run identifier.
		RunID() string
		// ExecuteActivity schedules an activity and waits for its result.
		ExecuteActivity(ctx context.Context, req ActivityRequest, result any) error
		// ExecuteActivityAsync schedules an activity without blocking and
		// returns a Future. Enables parallel execution (search fan-out).
		ExecuteActivityAsync(ctx context.Context, req ActivityRequest) (Future, error)
		// SignalChannel returns a channel for the given signal name.
		SignalChannel(name string) SignalChannel
		// Logger returns a logger scoped to this workflow execution.
		Logger() telemetry.Logger
		// Metrics returns a metrics recorder scoped to this execution.
		Metrics() telemetry.Metrics
		// Tracer returns a tracer for spans within the workflow.
		Tracer() telemetry.Tracer
		// Now returns the current workflow time in a deterministic, replay-safe manner.
		Now() time.Time
	}

	// Future represents a pending activity result. Futures enable parallel
	// activity execution: workflows launch multiple activities via
	// ExecuteActivityAsync and collect results later via Get.
	Future interface {
		// Get blocks until the activity completes and populates result.
		// Calling Get multiple times returns the same result/error.
		Get(ctx context.Context, result any) error
		// IsReady reports whether Get will not block.
		IsReady() bool
	}

	// ActivityDefinition registers an activity handler with optional defaults.
	ActivityDefinition struct {
		// Name is the logical identifier for the activity.
		Name string
		// Handler executes the activity logic when invoked.
		Handler ActivityFunc
		// Options configures retry/timeout behavior.
		Options ActivityOptions
	}

	// ActivityFunc handles an activity invocation. Unlike workflows,
	// activities may perform side effects (I/O, API calls).
	ActivityFunc func(ctx context.Context, input any) (any, error)

	// ActivityOptions configures retry and timeouts for an activity.
	ActivityOptions struct {
		// Queue overrides the default activity queue. Empty inherits the
		// workflow's task queue.
		Queue string
		// RetryPolicy and Timeout are stored with the definition, but neither
		// bundled adapter applies them: retries and timeouts come only from
		// the per-call ActivityRequest.
		RetryPolicy RetryPolicy
		Timeout     time.Duration
	}

	// WorkflowStartRequest describes how to launch a workflow execution.
	WorkflowStartRequest struct {
		// ID is the workflow identifier, unique within the engine scope.
		ID string
		// Workflow names the registered workflow definition to execute.
		Workflow string
		// TaskQueue selects the queue to schedule the workflow on.
		TaskQueue string
		// Input is the payload passed to the workflow handler.
		Input any
		// Memo stores small diagnostic payloads alongside the execution.
		Memo map[string]any
		// SearchAttributes captures indexed metadata for visibility queries.
		SearchAttributes map[string]any
		// RetryPolicy controls automatic restarts of the start attempt.
		RetryPolicy RetryPolicy
	}

	// ActivityRequest contains the info needed to schedule an activity.
	ActivityRequest struct {
		// Name identifies the activity to execute.
		Name string
		// Input is the payload passed to the activity handler.
		Input any
		// Queue optionally overrides the queue for this invocation.
		Queue string
		// RetryPolicy controls retry behavior for this invocation.
		RetryPolicy RetryPolicy
		// Timeout bounds the activity execution time. The Temporal adapter
		// uses it as the start-to-close timeout, with zero meaning 10
		// minutes; the in-memory engine applies no timeout at all.
		Timeout time.Duration
	}

	// WorkflowHandle allows callers to interact with a running workflow.
	WorkflowHandle interface {
		// Wait blocks until the workflow completes, populating result.
		Wait(ctx context.Context, result any) error
		// Signal sends an asynchronous message to the workflow.
		Signal(ctx context.Context, name string, payload any) error
		// Cancel requests cancellation of the workflow.
		Cancel(ctx context.Context) error
	}

	// RetryPolicy defines retry semantics shared by workflows and activities.
	// Zero-valued fields mean the engine uses its defaults.
	RetryPolicy struct {
		// MaxAttempts caps the total number of attempts. Zero means unlimited.
		MaxAttempts int
		// InitialInterval is the delay before the first retry.
		InitialInterval time.Duration
		// BackoffCoefficient multiplies the delay after each retry. Values
		// below 1 are treated as 1 (constant backoff).
		BackoffCoefficient float64
	}

	// SignalChannel exposes workflow signal delivery in an engine-agnostic
	// way. Implementations wrap engine-specific channels (Temporal signal
	// channels, in-process Go channels) and provide blocking/non-blocking
	// receive helpers.
	SignalChannel interface {
		// Receive blocks until a signal is delivered and decodes it into dest.
		Receive(ctx context.Context, dest any) error
		// ReceiveAsync attempts a non-blocking receive; returns true if dest
		// was populated.
		ReceiveAsync(dest any) bool
	}

	// RunStatus is the coarse-grained lifecycle state of a workflow
	// execution as tracked by the engine (distinct from research.RunStatus,
	// which additionally tracks awaiting_confirmation/paused semantics).
	RunStatus string
)

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCanceled  RunStatus = "canceled"
)
