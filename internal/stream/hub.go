package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"cryptodesk/pkg/coin"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer   = 4
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// Hub fans live snapshots out to websocket subscribers.
// A subscriber whose buffer is full is dropped rather than waited on.
type Hub struct {
	mu       sync.Mutex
	subs     map[*subscriber]struct{}
	last     []byte
	lastTS   int64
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.Named("stream"),
	}
}

// OnSnapshot implements aggregator.Listener.
func (h *Hub) OnSnapshot(_ context.Context, snap coin.Snapshot) {
	msg, err := json.Marshal(snap)
	if err != nil {
		h.logger.Warn("failed to encode snapshot", zap.Error(err))
		return
	}

	h.mu.Lock()
	if snap.Timestamp < h.lastTS {
		h.mu.Unlock()
		h.logger.Debug("ignoring out-of-order snapshot", zap.Int64("timestamp", snap.Timestamp))
		return
	}
	h.last = msg
	h.lastTS = snap.Timestamp
	var slow []*subscriber
	for s := range h.subs {
		select {
		case s.send <- msg:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.Unlock()

	for _, s := range slow {
		h.logger.Warn("dropping slow subscriber", zap.String("remote", s.conn.RemoteAddr().String()))
		h.remove(s)
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeWS upgrades the request and streams snapshots until the peer goes away.
// A new subscriber first receives the most recent snapshot, if any.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.last != nil {
		s.send <- h.last
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("subscriber connected", zap.String("remote", conn.RemoteAddr().String()))

	go h.writeLoop(s)
	h.readLoop(s)
}

// readLoop only drains control frames; it returns when the peer disconnects.
func (h *Hub) readLoop(s *subscriber) {
	defer h.remove(s)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-s.send:
			if !ok {
				_ = s.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(s)
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				h.remove(s)
				return
			}
		}
	}
}

func (h *Hub) remove(s *subscriber) {
	s.once.Do(func() {
		h.mu.Lock()
		delete(h.subs, s)
		h.mu.Unlock()
		close(s.send)
		_ = s.conn.Close()
		h.logger.Info("subscriber disconnected", zap.String("remote", s.conn.RemoteAddr().String()))
	})
}
