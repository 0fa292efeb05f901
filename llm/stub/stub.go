// Package stub provides a scripted llm.Client test double so research node
// tests (planner/executor/evaluator/strategist/reporter) can run without a
// live provider.
package stub

import (
	"context"
	"fmt"
	"sync"

	"github.com/clearlane/deepresearch/llm"
)

// Client replays a queue of canned responses, one per Complete call, or
// delegates to Func when set. It records every request it receives so tests
// can assert on prompts sent by research nodes.
type Client struct {
	mu        sync.Mutex
	responses []llm.Response
	errs      []error
	calls     []llm.Request

	// Func, when set, overrides the canned-response queue entirely.
	Func func(ctx context.Context, req llm.Request) (llm.Response, error)
}

// New returns a Client that yields responses in order, one per call. Fewer
// responses than calls made is a test bug and panics with a clear message.
func New(responses ...llm.Response) *Client {
	return &Client{responses: responses}
}

// WithError appends err to a separate error queue indexed by call number:
// the Nth WithError error is returned by the Nth Complete call in place of
// that call's scripted response.
func (c *Client) WithError(err error) *Client {
	c.errs = append(c.errs, err)
	return c
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	idx := len(c.calls) - 1
	c.mu.Unlock()

	if c.Func != nil {
		return c.Func(ctx, req)
	}
	if idx < len(c.errs) && c.errs[idx] != nil {
		return llm.Response{}, c.errs[idx]
	}
	if idx >= len(c.responses) {
		panic(fmt.Sprintf("stub.Client: call %d has no scripted response (have %d)", idx, len(c.responses)))
	}
	return c.responses[idx], nil
}

// Calls returns every request the client has received, in order.
func (c *Client) Calls() []llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]llm.Request, len(c.calls))
	copy(out, c.calls)
	return out
}
