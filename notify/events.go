package notify

import "time"

type (
	// PhaseChangePayload reports a run state phase transition.
	PhaseChangePayload struct {
		Phase string `json:"phase"`
	}

	// MessagePayload appends one role-tagged message to the run's message log.
	MessagePayload struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	// ToolCallPayload reports one completed tool call record.
	ToolCallPayload struct {
		ID      int    `json:"id"`
		Tool    string `json:"tool"`
		Success bool   `json:"success"`
		Result  string `json:"result,omitempty"`
		Error   string `json:"error,omitempty"`
	}

	// StepStartPayload reports a plan step entering IN_PROGRESS.
	StepStartPayload struct {
		StepID      string `json:"step_id"`
		Description string `json:"description"`
	}

	// StepCompletePayload reports a plan step reaching a terminal status.
	StepCompletePayload struct {
		StepID string `json:"step_id"`
		Status string `json:"status"`
		Result string `json:"result,omitempty"`
	}

	// SearchParallelPayload reports one fan-out of concurrent search queries.
	SearchParallelPayload struct {
		Themes []string `json:"themes"`
	}

	// ApprovalNeededPayload reports a new pending terminal-command approval.
	ApprovalNeededPayload struct {
		CommandHash string `json:"command_hash"`
		CommandText string `json:"command_text"`
	}

	// ApprovalResponsePayload reports an approval decision being applied.
	ApprovalResponsePayload struct {
		CommandHash string `json:"command_hash"`
		Approved    bool   `json:"approved"`
	}

	// RunStartPayload marks a run entering its planner node for the first
	// time (or after a replan).
	RunStartPayload struct {
		OriginalQuery string `json:"original_query"`
	}

	// RunCompletePayload marks the reporter node finishing successfully.
	RunCompletePayload struct {
		Report string `json:"report"`
	}

	// RunErrorPayload marks the driver terminating on an unrecoverable error.
	RunErrorPayload struct {
		Message string `json:"message"`
	}

	// RunPausedPayload marks a cooperative pause taking effect.
	RunPausedPayload struct {
		At time.Time `json:"at"`
	}

	// PlanUpdatePayload reports a freshly (re)generated plan.
	PlanUpdatePayload struct {
		Steps []PlanStepSummary `json:"steps"`
	}

	// PlanStepSummary is the wire-level summary of one plan step used by
	// PlanUpdatePayload and StateSyncPayload.
	PlanStepSummary struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		Status      string `json:"status"`
	}

	// StateSyncPayload is a full run-state snapshot sent to a client
	// immediately after it subscribes, so it does not need to wait for the
	// next delta to render a consistent view.
	StateSyncPayload struct {
		Phase             string            `json:"phase"`
		Plan              []PlanStepSummary `json:"plan"`
		CurrentStepIndex  int               `json:"current_step_index"`
		Messages          []MessagePayload  `json:"messages"`
		IsRunning         bool              `json:"is_running"`
	}
)
