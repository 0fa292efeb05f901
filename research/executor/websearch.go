package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/clearlane/deepresearch/llm"
	"github.com/clearlane/deepresearch/research"
	"github.com/clearlane/deepresearch/search"
)

const themeIdentifierSystemPrompt = "You are identifying web search queries " +
	"for a research step. Propose 1 to 3 queries, each on its own line " +
	"prefixed `SEARCH:`."

// runWebSearch implements the web_search branch of spec.md §4.2 step 4:
// theme_identifier (unless decision params already carry themes) ->
// search_dispatcher -> parallel search_worker fan-out -> search_merger ->
// accumulator, counting the entire fan-out as exactly one executor call.
func runWebSearch(ctx context.Context, state *research.RunState, deps research.Deps, decision research.Decision) {
	state.Phase = research.PhaseIdentifyingThemes

	themes := themesFromParams(decision.Params)
	if len(themes) == 0 {
		themes = identifyThemes(ctx, state, deps)
	}

	maxSearches := deps.Settings.MaxSearchesPerStep
	if maxSearches > 0 && len(themes) > maxSearches {
		themes = themes[:maxSearches]
	}

	state.SearchThemes = themes
	state.Phase = research.PhaseSearching
	results := dispatchSearches(ctx, themes, deps)
	state.ParallelSearchResults = results

	accumulateWebSearch(state, themes, results)
}

// identifyThemes runs the theme_identifier node: one LLM call producing
// 1-3 SEARCH:-prefixed queries from the current step's description.
func identifyThemes(ctx context.Context, state *research.RunState, deps research.Deps) []string {
	step := state.CurrentStep()
	desc := state.OriginalQuery
	if step != nil {
		desc = step.Description
	}

	resp, err := deps.LLM.Complete(ctx, llm.Request{
		Model: deps.Model,
		Messages: []llm.Message{
			{Role: "system", Content: themeIdentifierSystemPrompt},
			{Role: "user", Content: "Step: " + desc},
		},
	})
	var themes []string
	if err == nil {
		state.TokenUsageDelta += int64(resp.Usage.TotalTokens)
		themes = research.ParseSearchThemes(resp.Content, 3)
	}
	if len(themes) == 0 {
		themes = []string{desc}
	}
	return themes
}

type searchOutcome struct {
	sr research.SearchResult
}

// dispatchSearches runs one search_worker per theme concurrently and
// returns results in worker completion order, per spec.md §5 "the merger
// ... (b) worker finish order for findings".
func dispatchSearches(ctx context.Context, themes []string, deps research.Deps) []research.SearchResult {
	timeout := deps.Settings.SearchTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	ch := make(chan searchOutcome, len(themes))
	var wg sync.WaitGroup
	for _, theme := range themes {
		wg.Add(1)
		go func(query string) {
			defer wg.Done()
			workerCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			resp, err := deps.Search.Search(workerCtx, query, 5)
			sr := research.SearchResult{Query: query}
			if err != nil {
				sr.Error = err.Error()
				ch <- searchOutcome{sr: sr}
				return
			}

			var findings strings.Builder
			for _, r := range resp.Results {
				if r.Score < deps.Settings.SearchMinScore {
					continue
				}
				sr.Sources = append(sr.Sources, r.URL)
				fmt.Fprintf(&findings, "%s\n", r.Content)
			}
			sr.Findings = strings.TrimSpace(findings.String())
			ch <- searchOutcome{sr: sr}
		}(theme)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	results := make([]research.SearchResult, 0, len(themes))
	for outcome := range ch {
		results = append(results, outcome.sr)
	}
	return results
}

// accumulateWebSearch is the search_merger + accumulator for the web_search
// branch, per spec.md §4.2 step 5: merges all worker results into one
// ToolCallRecord, dedupes sources preserving first-seen order, joins
// findings, and increments call_count by exactly one for the whole fan-out.
func accumulateWebSearch(state *research.RunState, themes []string, results []research.SearchResult) {
	seen := make(map[string]bool)
	var sources []string
	var findingsParts []string
	var errs []string

	for _, r := range results {
		for _, src := range r.Sources {
			if !seen[src] {
				seen[src] = true
				sources = append(sources, src)
			}
		}
		if r.Findings != "" {
			findingsParts = append(findingsParts, fmt.Sprintf("[%s] %s", r.Query, r.Findings))
		}
		if r.Error != "" {
			errs = append(errs, fmt.Sprintf("%s: %s", r.Query, r.Error))
		}
	}

	themeParams := make([]any, len(themes))
	for i, t := range themes {
		themeParams[i] = t
	}

	rec := research.ToolCallRecord{
		ID:     state.NextToolCallID(),
		Tool:   "web_search",
		Params: map[string]any{"themes": themeParams, "sources": sources},
	}
	if len(findingsParts) > 0 {
		rec.Success = true
		rec.Result = strings.Join(findingsParts, "\n\n")
	} else {
		rec.Error = "no results"
		if len(errs) > 0 {
			rec.Error = strings.Join(errs, "; ")
		}
	}

	state.ExecutorToolHistory = append(state.ExecutorToolHistory, rec)
	state.ExecutorCallCount++
	state.ParallelSearchResults = nil
	state.Phase = research.PhaseExecuting
}
