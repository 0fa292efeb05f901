// Package gateway provides llm.Client middleware. RateLimited wraps a
// provider client with a token-bucket limiter so a single process does not
// exceed the configured requests-per-second budget across concurrent
// planner/executor/evaluator/strategist/reporter calls.
package gateway

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/clearlane/deepresearch/llm"
)

// limitedClient enforces a process-local rate limit in front of an
// llm.Client. Burst controls how many requests may proceed without waiting
// when the bucket is full.
type limitedClient struct {
	next    llm.Client
	limiter *rate.Limiter
}

// RateLimited wraps next with a token-bucket limiter of rps requests per
// second and the given burst size. A non-positive rps disables limiting.
func RateLimited(next llm.Client, rps float64, burst int) llm.Client {
	if next == nil || rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &limitedClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Complete blocks until the rate limiter admits the call, then delegates to
// the wrapped client.
func (c *limitedClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return llm.Response{}, fmt.Errorf("gateway: rate limit wait: %w", err)
	}
	return c.next.Complete(ctx, req)
}
