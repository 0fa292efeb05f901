package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type approvalItem struct {
	CommandHash string `json:"command_hash"`
	RunID       string `json:"run_id"`
	CommandText string `json:"command_text"`
	Approved    int    `json:"approved"`
}

// listApprovals handles GET /approvals/{run_id}.
func (s *Server) listApprovals(c *gin.Context) {
	runID := c.Param("run_id")
	if _, ok := s.loadOwnedRun(c, runID, currentUser(c)); !ok {
		return
	}
	pending, err := s.Approvals.ListPending(withRequestContext(c), runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]approvalItem, len(pending))
	for i, a := range pending {
		items[i] = approvalItem{CommandHash: a.CommandHash, RunID: a.RunID, CommandText: a.CommandText, Approved: int(a.Decision)}
	}
	c.JSON(http.StatusOK, gin.H{"approvals": items, "count": len(items)})
}

// respondApproval handles POST /approvals/{run_id}/{command_hash} {approved}.
func (s *Server) respondApproval(c *gin.Context) {
	runID := c.Param("run_id")
	commandHash := c.Param("command_hash")
	if _, ok := s.loadOwnedRun(c, runID, currentUser(c)); !ok {
		return
	}
	var req struct {
		Approved bool `json:"approved"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.Lifecycle.RespondApproval(withRequestContext(c), runID, commandHash, req.Approved); err != nil {
		s.writeLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "approved": req.Approved, "command_hash": commandHash})
}
