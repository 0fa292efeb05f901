package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/clearlane/deepresearch/notify"
	"github.com/clearlane/deepresearch/research"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsMessage struct {
	Type string `json:"type"`
}

type wsEvent struct {
	Type    string `json:"type"`
	RunID   string `json:"run_id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// serveWebSocket handles WS /ws/{run_id}: sends `connected`, a `state_sync`
// snapshot, then streams notify.Hub events for the run, per spec.md §6.
func (s *Server) serveWebSocket(c *gin.Context) {
	runID := c.Param("run_id")
	uid, err := s.authenticateWS(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if _, ok := s.loadOwnedRun(c, runID, uid); !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	sub := s.Hub.Subscribe(ctx, runID)
	defer sub.Close()

	_ = conn.WriteJSON(wsEvent{Type: "connected", RunID: runID})
	s.writeStateSync(ctx, conn, runID)

	incoming := make(chan wsMessage)
	go s.readWSMessages(conn, incoming)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-incoming:
			if !ok {
				return
			}
			switch msg.Type {
			case "ping":
				_ = conn.WriteJSON(wsEvent{Type: "pong"})
			case "request_state":
				s.writeStateSync(ctx, conn, runID)
			}
		case event, ok := <-sub.C():
			if !ok {
				return
			}
			if conn.WriteJSON(wsEvent{Type: string(event.Type), RunID: event.RunID, Payload: event.Payload}) != nil {
				return
			}
		}
	}
}

// readWSMessages pumps client frames into incoming until the connection
// closes, matching the read-goroutine pattern gorilla/websocket requires
// (a single goroutine per connection owns ReadMessage).
func (s *Server) readWSMessages(conn *websocket.Conn, incoming chan<- wsMessage) {
	defer close(incoming)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg wsMessage
		if json.Unmarshal(data, &msg) == nil {
			incoming <- msg
		}
	}
}

func (s *Server) writeStateSync(ctx context.Context, conn *websocket.Conn, runID string) {
	state, err := research.LoadLatestCheckpoint(ctx, s.Checkpoints, runID)
	if err != nil {
		_ = conn.WriteJSON(wsEvent{Type: string(notify.EventStateSync), RunID: runID, Payload: gin.H{"phase": "not_started"}})
		return
	}
	_ = conn.WriteJSON(wsEvent{Type: string(notify.EventStateSync), RunID: runID, Payload: gin.H{
		"phase":              state.Phase,
		"plan":               state.Plan,
		"current_step_index": state.CurrentStepIndex,
	}})
}

// authenticateWS accepts the bearer token either in the Authorization
// header or a "token" query parameter, since browser WebSocket clients
// cannot always set custom handshake headers.
func (s *Server) authenticateWS(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if tok := c.Query("token"); tok != "" {
			header = "Bearer " + tok
		}
	}
	return s.Auth.userID(header)
}
