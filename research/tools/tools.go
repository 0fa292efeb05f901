// Package tools implements the four executor tool adapters spec.md §4.3
// names: web_search, terminal_execute, file_read, and knowledge. Each adapter
// takes validated PARAMS and returns plain text suitable for appending to the
// executor's accumulated findings; failures are reported as a ToolError
// rather than a Go panic, so a failed tool call is itself a legitimate
// (if unsuccessful) ToolCallRecord.
package tools

import (
	"context"
	"errors"
	"fmt"
)

// ToolError is a structured, JSON-serializable error that preserves its
// cause chain across the workflow/activity boundary, where a raw Go error
// value does not survive a round trip through the engine's data converter.
type ToolError struct {
	Message string     `json:"message"`
	Kind    string     `json:"kind,omitempty"`
	Cause   *ToolError `json:"cause,omitempty"`
}

// Error kinds callers can branch on via ToolError.Kind, per spec.md §4.3's
// distinguished file_read error conditions.
const (
	KindNotFound = "not_found"
	KindNotAFile = "not_a_file"
)

// New returns a ToolError with no cause.
func New(message string) *ToolError {
	return &ToolError{Message: message}
}

// Errorf returns a ToolError formatted like fmt.Errorf, with no cause.
func Errorf(format string, args ...any) *ToolError {
	return &ToolError{Message: fmt.Sprintf(format, args...)}
}

// ErrorfKind is Errorf with an explicit Kind tag.
func ErrorfKind(kind, format string, args ...any) *ToolError {
	return &ToolError{Message: fmt.Sprintf(format, args...), Kind: kind}
}

// NewWithCause returns a ToolError wrapping cause.
func NewWithCause(message string, cause error) *ToolError {
	return &ToolError{Message: message, Cause: FromError(cause)}
}

// FromError converts any error into a *ToolError, preserving an existing
// ToolError's cause chain rather than nesting it behind a new one.
func FromError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Message: err.Error()}
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

// Unwrap lets errors.Is/errors.As walk the cause chain.
func (e *ToolError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}

// Adapter executes one named tool against validated parameters and returns
// the text to append to the calling step's accumulated findings.
type Adapter interface {
	// Name is the tool name as it appears in a decision PARAMS block
	// ("web_search", "terminal_execute", "file_read", "knowledge").
	Name() string

	// Execute validates params against Name's schema, runs the tool, and
	// returns the findings text to accumulate. A non-nil *ToolError still
	// becomes a legitimate (unsuccessful) ToolCallRecord at the caller.
	Execute(ctx context.Context, params map[string]any) (string, *ToolError)
}
