// Package llm provides a provider-agnostic abstraction over chat completion
// APIs (Anthropic, OpenAI, Bedrock) so the research nodes (planner, executor,
// evaluator, strategist, reporter) can invoke a model without coupling to a
// specific vendor SDK.
package llm

import (
	"context"
	"errors"
)

type (
	// Client defines the contract research nodes use to invoke LLM calls.
	// Implementations wrap provider SDKs and translate Request/Response to
	// provider-specific formats. Clients must be safe for concurrent use.
	Client interface {
		// Complete sends a chat completion request and returns the generated
		// response. Returns an error if the model is unavailable, quota is
		// exceeded, or the request is malformed.
		Complete(ctx context.Context, req Request) (Response, error)
	}

	// Request captures the normalized parameters for a model invocation.
	Request struct {
		// Model identifies the target model using the provider-specific
		// identifier (e.g. "claude-sonnet-4-5", "gpt-4o").
		Model string
		// Messages is the ordered chat history, including the system prompt
		// for the invoking node (planner/executor/evaluator/strategist/reporter).
		Messages []Message
		// Temperature controls sampling temperature. Zero leaves it unset, so
		// the provider's default applies.
		Temperature float32
		// MaxTokens caps the number of completion tokens generated. Zero uses
		// the provider default.
		MaxTokens int
	}

	// Response wraps the generated content and usage from the model provider.
	Response struct {
		// Content is the generated assistant text.
		Content string
		// Usage reports token usage when available.
		Usage TokenUsage
		// StopReason explains why the model stopped generating, when the
		// provider reports one ("stop", "length", "content_filter").
		StopReason string
	}

	// Message mirrors an LLM chat message with role and content.
	Message struct {
		// Role is "system", "user", or "assistant".
		Role string
		// Content is the message text.
		Content string
	}

	// TokenUsage records prompt/completion token counts when the provider
	// reports them. All fields are zero if the provider doesn't report usage.
	TokenUsage struct {
		InputTokens  int
		OutputTokens int
		TotalTokens  int
	}
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse indicates a provider returned no usable content. The
// research nodes do not retry it: like any other Complete error it takes
// the calling node's fallback path (the planner goes to the reporter, the
// evaluator defaults to APPROVE).
var ErrEmptyResponse = errors.New("llm: provider returned an empty response")
