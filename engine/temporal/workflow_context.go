package temporal

import (
	"context"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/clearlane/deepresearch/engine"
	"github.com/clearlane/deepresearch/telemetry"
)

type (
	workflowContext struct {
		eng *Engine
		ctx workflow.Context
	}

	future struct {
		ctx workflow.Context
		f   workflow.Future
	}

	signalChannel struct {
		ctx workflow.Context
		ch  workflow.ReceiveChannel
	}
)

func newWorkflowContext(e *Engine, ctx workflow.Context) engine.WorkflowContext {
	return &workflowContext{eng: e, ctx: ctx}
}

// Context returns a detached context.Context. Workflow execution is
// distributed and replayed, so it cannot carry a process-local base context
// across replays; deterministic behavior relies on Temporal's own
// interceptors/propagators for trace context instead.
func (w *workflowContext) Context() context.Context {
	return context.Background()
}

func (w *workflowContext) WorkflowID() string {
	return workflow.GetInfo(w.ctx).WorkflowExecution.ID
}

func (w *workflowContext) RunID() string {
	return workflow.GetInfo(w.ctx).WorkflowExecution.RunID
}

func (w *workflowContext) Logger() telemetry.Logger   { return w.eng.logger }
func (w *workflowContext) Metrics() telemetry.Metrics { return w.eng.metrics }
func (w *workflowContext) Tracer() telemetry.Tracer   { return w.eng.tracer }
func (w *workflowContext) Now() time.Time             { return workflow.Now(w.ctx) }

func (w *workflowContext) ExecuteActivity(_ context.Context, req engine.ActivityRequest, result any) error {
	fut, err := w.ExecuteActivityAsync(nil, req)
	if err != nil {
		return err
	}
	return fut.Get(nil, result)
}

func (w *workflowContext) ExecuteActivityAsync(_ context.Context, req engine.ActivityRequest) (engine.Future, error) {
	opts := workflow.ActivityOptions{
		TaskQueue:           req.Queue,
		StartToCloseTimeout: req.Timeout,
		RetryPolicy:         convertRetryPolicy(req.RetryPolicy),
	}
	if opts.StartToCloseTimeout == 0 {
		opts.StartToCloseTimeout = 10 * time.Minute
	}
	actx := workflow.WithActivityOptions(w.ctx, opts)
	f := workflow.ExecuteActivity(actx, req.Name, req.Input)
	return &future{ctx: w.ctx, f: f}, nil
}

func (w *workflowContext) SignalChannel(name string) engine.SignalChannel {
	return &signalChannel{ctx: w.ctx, ch: workflow.GetSignalChannel(w.ctx, name)}
}

func (f *future) Get(_ context.Context, result any) error {
	return normalizeTemporalError(f.f.Get(f.ctx, result))
}

func (f *future) IsReady() bool {
	return f.f.IsReady()
}

func (s *signalChannel) Receive(_ context.Context, dest any) error {
	s.ch.Receive(s.ctx, dest)
	return nil
}

func (s *signalChannel) ReceiveAsync(dest any) bool {
	return s.ch.ReceiveAsync(dest)
}

func normalizeTemporalError(err error) error {
	if err == nil {
		return nil
	}
	if temporal.IsCanceledError(err) {
		return context.Canceled
	}
	return err
}

func convertRetryPolicy(r engine.RetryPolicy) *temporal.RetryPolicy {
	if r.MaxAttempts == 0 && r.InitialInterval == 0 && r.BackoffCoefficient == 0 {
		return nil
	}
	policy := &temporal.RetryPolicy{}
	if r.MaxAttempts > 0 {
		policy.MaximumAttempts = int32(r.MaxAttempts)
	}
	if r.InitialInterval > 0 {
		policy.InitialInterval = r.InitialInterval
	}
	switch {
	case r.BackoffCoefficient >= 1:
		policy.BackoffCoefficient = r.BackoffCoefficient
	case r.BackoffCoefficient != 0:
		policy.BackoffCoefficient = 1
	}
	return policy
}

func toRetryPolicy(r engine.RetryPolicy) *temporal.RetryPolicy {
	return convertRetryPolicy(r)
}
