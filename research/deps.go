package research

import (
	"time"

	"github.com/clearlane/deepresearch/llm"
	"github.com/clearlane/deepresearch/research/tools"
	"github.com/clearlane/deepresearch/search"
)

// Settings bounds the outer and inner state machines, per spec.md §9
// "Configuration" and the matching config.Settings fields it is built from.
type Settings struct {
	MinPlanSteps       int
	MaxPlanSteps       int
	MaxExecutorCalls   int
	MaxSearchesPerStep int
	SearchTimeout      time.Duration
	SearchMinScore     float64
	TerminalTimeout    time.Duration
}

// Deps bundles the external collaborators every outer and inner node needs:
// an LLM client, the tool registry, the search backend, and the bounding
// settings. A single Deps value is shared read-only across a run's nodes.
type Deps struct {
	LLM      llm.Client
	Tools    *tools.Registry
	Search   search.Backend
	Settings Settings
	Model    string
}
