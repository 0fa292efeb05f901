package executor

import (
	"context"

	"github.com/clearlane/deepresearch/research"
)

// Adapter satisfies research.ExecutorRunner, translating this package's
// Outcome into the outer driver's Transition vocabulary so research.Workflow
// can drive the executor subgraph as a single activity without importing
// this package directly.
type Adapter struct{}

func (Adapter) Run(ctx context.Context, state *research.RunState, deps research.Deps) (research.Transition, error) {
	res, err := Run(ctx, state, deps)
	if err != nil {
		return "", err
	}
	return outcomeTransition(res.Outcome), nil
}

func (Adapter) Resume(ctx context.Context, state *research.RunState, deps research.Deps, approved bool) (research.Transition, error) {
	res, err := Resume(ctx, state, deps, approved)
	if err != nil {
		return "", err
	}
	return outcomeTransition(res.Outcome), nil
}

func outcomeTransition(o Outcome) research.Transition {
	if o == OutcomeSuspendTerminal {
		return research.ToSuspendTerminal
	}
	return research.ToEvaluator
}
