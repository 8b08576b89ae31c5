package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

// Hub tracks the live websocket sessions and fans messages out to them.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	logger   *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{sessions: make(map[string]*session), logger: logger}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Broadcast encodes msg once and queues it on every session. Sessions whose
// queue is full drop the message.
func (h *Hub) Broadcast(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encoding broadcast", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.sessions {
		s.enqueue(data)
	}
}

// CloseAll disconnects every session. Their read loops then unwind and
// deregister.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()
	for _, s := range sessions {
		s.close()
	}
}

func (h *Hub) add(s *session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
}

type session struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

func newSession(conn *websocket.Conn, logger *zap.Logger) *session {
	id := uuid.New().String()
	return &session{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("session", id)),
	}
}

func (s *session) enqueue(data []byte) {
	select {
	case <-s.done:
	case s.send <- data:
	default:
		s.logger.Debug("session queue full, dropping message")
	}
}

func (s *session) enqueueJSON(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("encoding message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	s.enqueue(data)
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// writeLoop owns all writes to the connection.
func (s *session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn("failed to write websocket message", zap.Error(err))
				s.close()
				return
			}
		}
	}
}
