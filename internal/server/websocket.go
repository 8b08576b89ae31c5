package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"decisionmesh/internal/mesh"
	"decisionmesh/internal/selection"
)

// handleWebSocket runs one client session: it sends the session id and a
// full scene snapshot, forwards selection changes, and applies inbound
// pointer and viewport messages to the view.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return
	}

	sess := newSession(conn, s.logger)
	s.hub.add(sess)
	s.metrics.SessionOpened()
	sess.logger.Info("websocket session opened")

	// Listeners run synchronously inside store mutations, so they only queue.
	unsubscribe := s.view.Listen(func(ch selection.Change) {
		state := ch.State
		sess.enqueueJSON(ServerMessage{Type: msgSelection, Field: ch.Field, State: &state})
	})

	defer func() {
		unsubscribe()
		s.hub.remove(sess)
		sess.close()
		s.metrics.SessionClosed()
		sess.logger.Info("websocket session closed")
	}()

	go sess.writeLoop()

	sess.enqueueJSON(ServerMessage{Type: msgSession, SessionID: sess.id})
	snap := s.view.Snapshot()
	sess.enqueueJSON(ServerMessage{Type: msgScene, Scene: &snap})

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			sess.logger.Debug("websocket read ended", zap.Error(err))
			return
		}
		s.dispatch(sess, msg)
	}
}

func (s *Server) dispatch(sess *session, msg ClientMessage) {
	switch msg.Type {
	case msgPointerMove:
		s.view.PointerMove(msg.X, msg.Y)
	case msgClick:
		hit, ok := s.view.Click(msg.X, msg.Y)
		out := ServerMessage{Type: msgPick}
		if ok {
			out.Hit = &hit
		}
		sess.enqueueJSON(out)
	case msgResize:
		if err := s.view.Resize(msg.Width, msg.Height); err != nil {
			sess.enqueueJSON(ServerMessage{Type: msgError, Error: err.Error()})
		}
	case msgFilter:
		s.view.SetFilter(mesh.NormalizeCategory(msg.Category))
	case msgDragStart:
		s.view.SetDragging(true)
	case msgDragEnd:
		s.view.SetDragging(false)
	case msgContextLost:
		s.view.ContextLost()
	case msgContextRestored:
		s.view.ContextRestored()
	default:
		sess.enqueueJSON(ServerMessage{Type: msgError, Error: "unknown message type: " + msg.Type})
	}
}
