package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"cryptodesk/pkg/coin"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	StreamPath     = "/api/crypto/stream"
	reconnectDelay = 3 * time.Second
)

// WSClient follows the server's snapshot stream and reconnects forever.
type WSClient struct {
	url     string
	mu      sync.Mutex
	conn    *websocket.Conn
	handler func(coin.Snapshot)
	logger  *zap.Logger
}

// NewWSClient takes the server's http(s) base URL.
func NewWSClient(baseURL string, logger *zap.Logger) *WSClient {
	u := strings.TrimRight(baseURL, "/")
	u = strings.Replace(u, "http", "ws", 1) // http→ws, https→wss
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSClient{url: u + StreamPath, logger: logger.Named("wsclient")}
}

// SetMessageHandler sets the function called for every snapshot received.
func (c *WSClient) SetMessageHandler(h func(coin.Snapshot)) {
	c.handler = h
}

// Connect dials the stream. It does not start the listener.
func (c *WSClient) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial %s: %w", c.url, err)
	}
	c.mu.Lock()
	old := c.conn
	c.conn = conn
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	c.logger.Info("WebSocket connected", zap.String("url", c.url))
	return nil
}

// Listen reads snapshots until ctx is done, reconnecting after read errors.
func (c *WSClient) Listen(ctx context.Context) {
	go func() {
		<-ctx.Done()
		if conn := c.current(); conn != nil {
			_ = conn.Close()
		}
	}()

	for ctx.Err() == nil {
		conn := c.current()
		if conn == nil {
			if !c.reconnect(ctx) {
				return
			}
			continue
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("WebSocket read error", zap.Error(err))
			if !c.reconnect(ctx) {
				return
			}
			continue
		}

		var snap coin.Snapshot
		if err := json.Unmarshal(msg, &snap); err != nil {
			c.logger.Warn("failed to decode snapshot", zap.Error(err))
			continue
		}
		if c.handler != nil {
			c.handler(snap)
		}
	}
}

func (c *WSClient) reconnect(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(reconnectDelay):
		}

		if err := c.Connect(ctx); err != nil {
			c.logger.Warn("Retrying reconnect...", zap.Error(err))
			continue
		}
		c.logger.Info("Reconnected successfully")
		return true
	}
}

func (c *WSClient) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}
