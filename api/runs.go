package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/clearlane/deepresearch/runmeta"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type runResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	TotalTokens int64     `json:"total_tokens"`
}

func toRunResponse(r runmeta.Run) runResponse {
	return runResponse{ID: r.ID, Title: r.Title, Status: string(r.Status), CreatedAt: r.CreatedAt, TotalTokens: r.TotalTokens}
}

// loadOwnedRun loads a run and checks it belongs to uid, writing the
// appropriate 404/403 response itself on failure.
func (s *Server) loadOwnedRun(c *gin.Context, runID, uid string) (runmeta.Run, bool) {
	run, err := s.RunMeta.Load(withRequestContext(c), runID)
	if err != nil {
		if errors.Is(err, runmeta.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return runmeta.Run{}, false
	}
	if run.UserID != uid {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
		return runmeta.Run{}, false
	}
	return run, true
}

// createRun handles POST /runs {title}.
func (s *Server) createRun(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	uid := currentUser(c)
	run, err := s.RunMeta.Create(withRequestContext(c), uuid.NewString(), uid, req.Title, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toRunResponse(run))
}

// getRun handles GET /runs/{id}.
func (s *Server) getRun(c *gin.Context) {
	run, ok := s.loadOwnedRun(c, c.Param("id"), currentUser(c))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toRunResponse(run))
}

// updateRun handles PATCH /runs/{id} {title?, status?}.
func (s *Server) updateRun(c *gin.Context) {
	runID := c.Param("id")
	if _, ok := s.loadOwnedRun(c, runID, currentUser(c)); !ok {
		return
	}
	var req struct {
		Title  *string `json:"title"`
		Status *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var status *runmeta.Status
	if req.Status != nil {
		st := runmeta.Status(*req.Status)
		status = &st
	}
	run, err := s.RunMeta.Patch(withRequestContext(c), runID, req.Title, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toRunResponse(run))
}

// deleteRun handles DELETE /runs/{id}, cascading approvals and checkpoints.
func (s *Server) deleteRun(c *gin.Context) {
	runID := c.Param("id")
	if _, ok := s.loadOwnedRun(c, runID, currentUser(c)); !ok {
		return
	}
	ctx := withRequestContext(c)
	if err := s.Approvals.DeleteRun(ctx, runID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := s.Checkpoints.Delete(ctx, runID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := s.RunMeta.Delete(ctx, runID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
