// Package stub provides a deterministic search.Backend test double.
package stub

import (
	"context"
	"fmt"
	"sync"

	"github.com/clearlane/deepresearch/search"
)

// Backend returns scripted responses keyed by query, falling back to a
// single synthesized result so tests that don't care about content still
// get a non-empty response. Every call is recorded for assertions.
type Backend struct {
	mu        sync.Mutex
	responses map[string]search.Response
	calls     []string
}

// New returns a Backend seeded with responses keyed by the exact query string.
func New(responses map[string]search.Response) *Backend {
	return &Backend{responses: responses}
}

// Search implements search.Backend.
func (b *Backend) Search(_ context.Context, query string, maxResults int) (search.Response, error) {
	b.mu.Lock()
	b.calls = append(b.calls, query)
	b.mu.Unlock()

	if resp, ok := b.responses[query]; ok {
		if len(resp.Results) > maxResults {
			resp.Results = resp.Results[:maxResults]
		}
		return resp, nil
	}
	return search.Response{
		Results: []search.Result{{
			URL:     fmt.Sprintf("https://example.test/%s", query),
			Title:   query,
			Content: fmt.Sprintf("synthesized result for %q", query),
			Score:   0.9,
		}},
	}, nil
}

// Calls returns every query the backend received, in order.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.calls))
	copy(out, b.calls)
	return out
}
