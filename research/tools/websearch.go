package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/clearlane/deepresearch/search"
)

// WebSearch adapts a search.Backend to the web_search tool contract: a
// single query string in, relevance-grouped text and a deduplicated source
// list out.
type WebSearch struct {
	Backend    search.Backend
	MaxResults int
	// MinScore discards results scoring below this threshold before
	// formatting, mirroring the bi/cross-encoder floors spec §9 names.
	MinScore float64
}

func (w *WebSearch) Name() string { return "web_search" }

func (w *WebSearch) Execute(ctx context.Context, params map[string]any) (string, *ToolError) {
	if err := ValidateParams(w.Name(), params); err != nil {
		return "", FromError(err)
	}
	query, _ := params["query"].(string)

	maxResults := w.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	resp, err := w.Backend.Search(ctx, query, maxResults)
	if err != nil {
		return "", NewWithCause("web_search backend call failed", err)
	}

	var sb strings.Builder
	seen := make(map[string]bool)
	var sources []string
	kept := 0
	for _, r := range resp.Results {
		if r.Score < w.MinScore {
			continue
		}
		if !seen[r.URL] {
			seen[r.URL] = true
			sources = append(sources, r.URL)
		}
		title := r.Title
		if title == "" {
			title = r.URL
		}
		fmt.Fprintf(&sb, "[%s] %s\n%s\n\n", strconv.FormatFloat(r.Score, 'f', 2, 64), title, r.Content)
		kept++
	}
	if kept == 0 {
		return fmt.Sprintf("web_search for %q returned no results above the relevance threshold.", query), nil
	}
	sb.WriteString("Sources:\n")
	for _, s := range sources {
		sb.WriteString("- " + s + "\n")
	}
	return sb.String(), nil
}
