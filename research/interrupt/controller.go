// Package interrupt exposes the cooperative pause/cancel signal channels a
// running workflow polls between node boundaries, per spec.md §4.7
// "Between nodes, the driver yields so that pause/cancel signals can be
// observed."
package interrupt

import (
	"github.com/clearlane/deepresearch/engine"
)

const (
	// SignalPause requests a cooperative pause at the next node boundary.
	SignalPause = "research.pause"
	// SignalCancel requests the driver stop; the run ends failed with a
	// reason rather than paused.
	SignalCancel = "research.cancel"
)

type (
	// PauseRequest carries metadata attached to a pause signal.
	PauseRequest struct {
		Reason      string
		RequestedBy string
	}

	// CancelRequest carries metadata attached to a cancel signal.
	CancelRequest struct {
		Reason      string
		RequestedBy string
	}

	// Controller drains the pause/cancel signal channels so workflow code
	// can poll them non-blockingly between node executions.
	Controller struct {
		pauseCh  engine.SignalChannel
		cancelCh engine.SignalChannel
	}
)

// NewController wires a controller to the given workflow context's signal
// channels.
func NewController(wfCtx engine.WorkflowContext) *Controller {
	return &Controller{
		pauseCh:  wfCtx.SignalChannel(SignalPause),
		cancelCh: wfCtx.SignalChannel(SignalCancel),
	}
}

// PollPause attempts to dequeue a pause request without blocking.
func (c *Controller) PollPause() (PauseRequest, bool) {
	if c == nil || c.pauseCh == nil {
		return PauseRequest{}, false
	}
	var req PauseRequest
	if !c.pauseCh.ReceiveAsync(&req) {
		return PauseRequest{}, false
	}
	return req, true
}

// PollCancel attempts to dequeue a cancel request without blocking.
func (c *Controller) PollCancel() (CancelRequest, bool) {
	if c == nil || c.cancelCh == nil {
		return CancelRequest{}, false
	}
	var req CancelRequest
	if !c.cancelCh.ReceiveAsync(&req) {
		return CancelRequest{}, false
	}
	return req, true
}
