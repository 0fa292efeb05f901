package api

import (
	"github.com/clearlane/deepresearch/approval"
	"github.com/clearlane/deepresearch/notify"
	"github.com/clearlane/deepresearch/research/lifecycle"
	"github.com/clearlane/deepresearch/runmeta"
	"github.com/clearlane/deepresearch/store"
	"github.com/clearlane/deepresearch/telemetry"
	"github.com/gin-gonic/gin"
)

// Server wires the spec.md §6 client API onto the lifecycle service and its
// collaborator stores.
type Server struct {
	Auth        Authenticator
	Lifecycle   *lifecycle.Service
	RunMeta     runmeta.Store
	Approvals   approval.Store
	Checkpoints store.Checkpointer
	Hub         notify.Hub
	Logger      telemetry.Logger
}

// Router builds the gin.Engine serving every endpoint spec.md §6 names.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.logRequests())

	r.GET("/healthz", func(c *gin.Context) { c.Status(200) })

	// /ws/{run_id} authenticates itself (authenticateWS also accepts a
	// ?token= query parameter, since browser WebSocket clients cannot set
	// arbitrary handshake headers), so it sits outside the bearer-only group.
	r.GET("/ws/:run_id", s.serveWebSocket)

	authed := r.Group("/")
	authed.Use(s.Auth.Middleware())
	{
		authed.POST("/runs", s.createRun)
		authed.GET("/runs/:id", s.getRun)
		authed.PATCH("/runs/:id", s.updateRun)
		authed.DELETE("/runs/:id", s.deleteRun)

		authed.POST("/research/start", s.startResearch)
		authed.POST("/research/message", s.message)
		authed.POST("/research/pause", s.pauseResearch)
		authed.POST("/research/resume", s.resumeResearch)
		authed.GET("/research/state/:run_id", s.researchState)

		authed.GET("/approvals/:run_id", s.listApprovals)
		authed.POST("/approvals/:run_id/:command_hash", s.respondApproval)
	}
	return r
}

// logRequests mirrors every request's method/path/status/latency through
// telemetry.Logger, in place of gin's default text logger.
func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if s.Logger == nil {
			return
		}
		s.Logger.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}
