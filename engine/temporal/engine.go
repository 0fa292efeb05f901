// Package temporal adapts engine.Engine onto Temporal, giving the research
// workflow durable, crash-resumable execution. It registers workflows and
// activities with a per-task-queue Temporal worker and wraps Temporal's
// workflow.Context behind the engine.WorkflowContext abstraction.
package temporal

import (
	"context"
	"fmt"
	"sync"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/clearlane/deepresearch/engine"
	"github.com/clearlane/deepresearch/telemetry"
)

// Options configures the Temporal engine adapter.
type Options struct {
	// Client is a pre-configured Temporal client. If nil, the adapter builds
	// a lazy client from ClientOptions.
	Client client.Client
	// ClientOptions configures a lazily-created client when Client is nil.
	ClientOptions *client.Options
	// TaskQueue is the default task queue used when workflow/activity
	// definitions omit one. Required.
	TaskQueue string
	// WorkerOptions is forwarded to worker.New for every queue the engine manages.
	WorkerOptions worker.Options
	// DisableInstrumentation skips adding the SDK's OTEL tracing interceptor
	// to the client the engine creates. No metrics interceptor is installed
	// either way.
	DisableInstrumentation bool
	// Logger, Metrics, Tracer default to no-ops when nil.
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Tracer  telemetry.Tracer
}

// Engine implements engine.Engine backed by a Temporal cluster.
type Engine struct {
	client      client.Client
	closeClient bool

	defaultQueue string
	workerOpts   worker.Options

	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer

	mu      sync.Mutex
	workers map[string]worker.Worker
	started bool

	workflows map[string]engine.WorkflowDefinition
}

// New constructs a Temporal-backed Engine. TaskQueue must be set.
func New(opts Options) (*Engine, error) {
	if opts.TaskQueue == "" {
		return nil, fmt.Errorf("temporal engine: TaskQueue is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}

	cli := opts.Client
	closeClient := false
	if cli == nil {
		if opts.ClientOptions == nil {
			return nil, fmt.Errorf("temporal engine: ClientOptions required when Client is nil")
		}
		clientOpts := *opts.ClientOptions
		if !opts.DisableInstrumentation {
			tp, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{})
			if err != nil {
				return nil, fmt.Errorf("temporal engine: configure tracing interceptor: %w", err)
			}
			clientOpts.Interceptors = append(clientOpts.Interceptors, tp)
		}
		var err error
		cli, err = client.NewLazyClient(clientOpts)
		if err != nil {
			return nil, fmt.Errorf("temporal engine: create client: %w", err)
		}
		closeClient = true
	}

	return &Engine{
		client:       cli,
		closeClient:  closeClient,
		defaultQueue: opts.TaskQueue,
		workerOpts:   opts.WorkerOptions,
		logger:       logger,
		metrics:      metrics,
		tracer:       tracer,
		workers:      make(map[string]worker.Worker),
		workflows:    make(map[string]engine.WorkflowDefinition),
	}, nil
}

// Close stops all managed workers and, if the engine created its own client,
// closes it too.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, w := range e.workers {
		w.Stop()
	}
	if e.closeClient {
		e.client.Close()
	}
}

// RegisterWorkflow registers def with the worker for def.TaskQueue (or the
// engine's default queue). The handler is wrapped to present a
// engine.WorkflowContext to research workflow code.
func (e *Engine) RegisterWorkflow(_ context.Context, def engine.WorkflowDefinition) error {
	if def.Name == "" || def.Handler == nil {
		return fmt.Errorf("temporal engine: invalid workflow definition")
	}
	queue := def.TaskQueue
	if queue == "" {
		queue = e.defaultQueue
	}
	e.mu.Lock()
	if _, dup := e.workflows[def.Name]; dup {
		e.mu.Unlock()
		return fmt.Errorf("temporal engine: workflow %q already registered", def.Name)
	}
	e.workflows[def.Name] = def
	e.mu.Unlock()

	w := e.workerForQueue(queue)
	w.RegisterWorkflowWithOptions(func(tctx workflow.Context, input any) (any, error) {
		wctx := newWorkflowContext(e, tctx)
		return def.Handler(wctx, input)
	}, workflow.RegisterOptions{Name: def.Name})
	return nil
}

// RegisterActivity registers def with the worker for def.Options.Queue (or
// the engine's default queue).
func (e *Engine) RegisterActivity(_ context.Context, def engine.ActivityDefinition) error {
	if def.Name == "" || def.Handler == nil {
		return fmt.Errorf("temporal engine: invalid activity definition")
	}
	queue := def.Options.Queue
	if queue == "" {
		queue = e.defaultQueue
	}
	w := e.workerForQueue(queue)
	w.RegisterActivityWithOptions(func(actx context.Context, input any) (any, error) {
		return def.Handler(actx, input)
	}, activityRegisterOptions(def.Name))
	return nil
}

// StartWorkflow starts req.Workflow on Temporal and ensures workers are running.
func (e *Engine) StartWorkflow(ctx context.Context, req engine.WorkflowStartRequest) (engine.WorkflowHandle, error) {
	if req.Workflow == "" {
		return nil, fmt.Errorf("temporal engine: workflow name is required")
	}
	e.mu.Lock()
	def, ok := e.workflows[req.Workflow]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("temporal engine: workflow %q not registered", req.Workflow)
	}

	if err := e.ensureWorkersStarted(); err != nil {
		return nil, err
	}

	queue := req.TaskQueue
	if queue == "" {
		queue = def.TaskQueue
	}
	if queue == "" {
		queue = e.defaultQueue
	}

	startOpts := client.StartWorkflowOptions{
		ID:        req.ID,
		TaskQueue: queue,
		Memo:      req.Memo,
	}
	if rp := toRetryPolicy(req.RetryPolicy); rp != nil {
		startOpts.RetryPolicy = rp
	}

	run, err := e.client.ExecuteWorkflow(ctx, startOpts, req.Workflow, req.Input)
	if err != nil {
		return nil, fmt.Errorf("temporal engine: execute workflow: %w", err)
	}
	return &handle{client: e.client, run: run}, nil
}

// QueryRunStatus maps Temporal's execution status onto engine.RunStatus.
func (e *Engine) QueryRunStatus(ctx context.Context, runID string) (engine.RunStatus, error) {
	resp, err := e.client.DescribeWorkflowExecution(ctx, runID, "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", engine.ErrWorkflowNotFound, err)
	}
	info := resp.GetWorkflowExecutionInfo()
	if info == nil {
		return "", engine.ErrWorkflowNotFound
	}
	switch info.GetStatus().String() {
	case "Completed":
		return engine.RunStatusCompleted, nil
	case "Failed", "Terminated", "TimedOut":
		return engine.RunStatusFailed, nil
	case "Canceled":
		return engine.RunStatusCanceled, nil
	default:
		return engine.RunStatusRunning, nil
	}
}

func (e *Engine) workerForQueue(queue string) worker.Worker {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.workers[queue]; ok {
		return w
	}
	w := worker.New(e.client, queue, e.workerOpts)
	e.workers[queue] = w
	return w
}

func (e *Engine) ensureWorkersStarted() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}
	for queue, w := range e.workers {
		if err := w.Start(); err != nil {
			return fmt.Errorf("temporal engine: start worker for queue %q: %w", queue, err)
		}
	}
	e.started = true
	return nil
}

func activityRegisterOptions(name string) activity.RegisterOptions {
	return activity.RegisterOptions{Name: name}
}
