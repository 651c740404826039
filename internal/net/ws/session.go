package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"satchel/server/internal/net/proto"
)

// session serializes writes to one websocket connection. gorilla/websocket
// allows a single concurrent writer; the slot forwarder and the read loop
// both write.
type session struct {
	conn      *websocket.Conn
	writeWait time.Duration

	mu         sync.Mutex
	lastSeq    uint64
	lastResult []byte
}

func newSession(conn *websocket.Conn, writeWait time.Duration) *session {
	return &session{conn: conn, writeWait: writeWait}
}

func (s *session) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeWait > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	}
	return s.conn.WriteMessage(messageType, data)
}

// Close sends a close frame with code and reason, then drops the connection.
func (s *session) Close(code int, reason string) {
	s.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	s.conn.Close()
}

// replay reports whether seq was already handled. For a repeat of the last
// sequence the cached result frame is returned so it can be resent.
func (s *session) replay(seq uint64) (frame []byte, duplicate bool) {
	if seq == 0 {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSeq == 0 || seq > s.lastSeq {
		return nil, false
	}
	if seq == s.lastSeq {
		return s.lastResult, true
	}
	return nil, true
}

func (s *session) remember(seq uint64, frame []byte) {
	if seq == 0 {
		return
	}
	s.mu.Lock()
	s.lastSeq = seq
	s.lastResult = frame
	s.mu.Unlock()
}

func encodeStale(seq uint64) ([]byte, error) {
	return proto.EncodeError(seq, "stale command sequence")
}
