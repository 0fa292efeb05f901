package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/clearlane/deepresearch/research"
	"github.com/clearlane/deepresearch/research/lifecycle"
	"github.com/clearlane/deepresearch/runmeta"
	"github.com/gin-gonic/gin"
)

type startResearchRequest struct {
	RunID   string `json:"run_id"`
	Message string `json:"message"`
}

// startResearch handles POST /research/start {run_id, message?}.
func (s *Server) startResearch(c *gin.Context) {
	var req startResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RunID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id is required"})
		return
	}
	run, ok := s.loadOwnedRun(c, req.RunID, currentUser(c))
	if !ok {
		return
	}
	query := req.Message
	if query == "" {
		query = run.Title
	}
	started, err := s.Lifecycle.StartResearch(withRequestContext(c), req.RunID, query, 0)
	if err != nil {
		s.writeLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started", "run_id": started.ID, "message": "research execution started"})
}

// message handles POST /research/message {run_id, message}: starts research
// if no checkpoint exists yet, otherwise resumes, treating an
// "approve[:text]"/"reject:text" prefix as plan confirmation per spec.md §6.
func (s *Server) message(c *gin.Context) {
	var req startResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RunID == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id and message are required"})
		return
	}
	run, ok := s.loadOwnedRun(c, req.RunID, currentUser(c))
	if !ok {
		return
	}
	ctx := withRequestContext(c)

	hasState, err := s.Lifecycle.HasState(ctx, req.RunID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !hasState {
		started, err := s.Lifecycle.StartResearch(ctx, req.RunID, req.Message, 0)
		if err != nil {
			s.writeLifecycleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "started", "run_id": started.ID, "message": "research started with your query"})
		return
	}

	if approve, note, isConfirmation := parseConfirmationShorthand(req.Message); isConfirmation {
		if err := s.Lifecycle.ConfirmPlan(ctx, req.RunID, approve, note); err != nil {
			s.writeLifecycleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "confirmed", "run_id": req.RunID, "approved": approve})
		return
	}

	if run.Status == runmeta.StatusActive {
		c.JSON(http.StatusConflict, gin.H{"error": "run is already executing"})
		return
	}
	if _, err := s.Lifecycle.Resume(ctx, req.RunID); err != nil {
		s.writeLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resuming", "run_id": req.RunID, "message": "resuming from last checkpoint"})
}

// parseConfirmationShorthand recognizes the "approve[:text]" / "reject:text"
// message prefixes spec.md §6 defines for the plan-confirmation interrupt.
func parseConfirmationShorthand(message string) (approve bool, note string, ok bool) {
	switch {
	case message == "approve":
		return true, "", true
	case strings.HasPrefix(message, "approve:"):
		return true, strings.TrimPrefix(message, "approve:"), true
	case strings.HasPrefix(message, "reject:"):
		return false, strings.TrimPrefix(message, "reject:"), true
	default:
		return false, "", false
	}
}

// pauseResearch handles POST /research/pause {run_id}.
func (s *Server) pauseResearch(c *gin.Context) {
	var req struct {
		RunID string `json:"run_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RunID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id is required"})
		return
	}
	if _, ok := s.loadOwnedRun(c, req.RunID, currentUser(c)); !ok {
		return
	}
	if err := s.Lifecycle.Pause(withRequestContext(c), req.RunID); err != nil {
		s.writeLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "pausing", "run_id": req.RunID})
}

// resumeResearch handles POST /research/resume {run_id}.
func (s *Server) resumeResearch(c *gin.Context) {
	var req struct {
		RunID string `json:"run_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RunID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id is required"})
		return
	}
	if _, ok := s.loadOwnedRun(c, req.RunID, currentUser(c)); !ok {
		return
	}
	run, err := s.Lifecycle.Resume(withRequestContext(c), req.RunID)
	if err != nil {
		s.writeLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resuming", "run_id": run.ID, "message": "resuming from last checkpoint"})
}

type researchStateResponse struct {
	RunID            string              `json:"run_id"`
	Phase            string              `json:"phase"`
	Plan             []research.PlanStep `json:"plan"`
	CurrentStepIndex int                 `json:"current_step_index"`
	Messages         []research.Message  `json:"messages"`
	IsRunning        bool                `json:"is_running"`
}

// researchState handles GET /research/state/{run_id}.
func (s *Server) researchState(c *gin.Context) {
	runID := c.Param("run_id")
	run, ok := s.loadOwnedRun(c, runID, currentUser(c))
	if !ok {
		return
	}
	ctx := withRequestContext(c)

	state, err := research.LoadLatestCheckpoint(ctx, s.Checkpoints, runID)
	if err != nil {
		c.JSON(http.StatusOK, researchStateResponse{RunID: runID, Phase: "not_started", IsRunning: false})
		return
	}
	c.JSON(http.StatusOK, researchStateResponse{
		RunID:            runID,
		Phase:            string(state.Phase),
		Plan:             state.Plan,
		CurrentStepIndex: state.CurrentStepIndex,
		Messages:         state.Messages,
		IsRunning:        run.Status == runmeta.StatusActive,
	})
}

// writeLifecycleError maps a lifecycle.Service error to the status codes
// spec.md §6 defines.
func (s *Server) writeLifecycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, runmeta.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
