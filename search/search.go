// Package search defines the external search backend contract used by the
// executor subgraph's web_search tool. Ranking, chunking, and reranking
// happen entirely inside the backend implementation; this package only
// describes the request/response shape the research driver depends on.
package search

import "context"

type (
	// Backend performs a web search and returns ranked, source-attributed
	// content chunks. Implementations are responsible for querying a search
	// provider, chunking page content, and filtering/reranking to the
	// requested count — none of which the research driver concerns itself
	// with.
	Backend interface {
		// Search executes query and returns up to maxResults ranked chunks.
		// Returns an error only for transport/backend failures; an empty
		// Results slice with a nil error means the query legitimately found
		// nothing.
		Search(ctx context.Context, query string, maxResults int) (Response, error)
	}

	// Response wraps the ranked results for one search call.
	Response struct {
		// Results are ordered best-to-worst by relevance score.
		Results []Result
	}

	// Result is one ranked content chunk with its source attribution.
	Result struct {
		// URL is the source page this chunk was extracted from.
		URL string
		// Title is the source page title, if known.
		Title string
		// Content is the chunk text.
		Content string
		// Score is the backend's relevance score for this chunk, typically
		// in [0, 1]. Chunks below Settings.SearchRelevanceThreshold are
		// discarded by the executor before merge.
		Score float64
	}
)
