// Package websocket streams session snapshots to browser clients.
package websocket

import (
	"net/http"
	"time"

	"github.com/bhandras/replbox/internal/api/view"
	"github.com/bhandras/replbox/internal/metrics"
	"github.com/bhandras/replbox/internal/session"
	"github.com/bhandras/replbox/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Origins are enforced by the CORS layer
	},
}

// Event is one message sent to the client.
type Event struct {
	Type    string        `json:"type"`
	Session *view.Session `json:"session,omitempty"`
}

// Event types.
const (
	EventSnapshot = "snapshot"
	EventClosed   = "closed"
)

// Server upgrades update requests and streams snapshots.
type Server struct {
	manager   *session.Manager
	publicURL string
}

// NewServer returns a stream server.
func NewServer(manager *session.Manager, publicURL string) *Server {
	return &Server{manager: manager, publicURL: publicURL}
}

// HandleUpdates handles GET /v1/sessions/:id/updates
//
// The current snapshot is sent immediately, then one snapshot per state
// change. Slow clients skip intermediate states.
func (s *Server) HandleUpdates(c *gin.Context) {
	st, err := s.manager.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("[ws] upgrade %s: %v", st.ID(), err)
		return
	}
	defer conn.Close()

	metrics.AddWSConnections(1)
	defer metrics.AddWSConnections(-1)
	logger.Debugf("[ws] client connected to %s", st.ID())

	updates, cancel := st.Subscribe()
	defer cancel()

	// The read loop only services control frames and detects disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debugf("[ws] %s read: %v", st.ID(), err)
				}
				return
			}
		}
	}()

	send := func(ev Event) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			logger.Debugf("[ws] %s write: %v", st.ID(), err)
			return false
		}
		return true
	}
	snapshot := func(state session.State) Event {
		v := view.New(st.ID(), s.publicURL, state)
		return Event{Type: EventSnapshot, Session: &v}
	}

	if !send(snapshot(st.Snapshot())) {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case state, ok := <-updates:
			if !ok {
				send(Event{Type: EventClosed})
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(writeWait))
				return
			}
			if !send(snapshot(state)) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			logger.Debugf("[ws] client left %s", st.ID())
			return
		}
	}
}
