package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wicara-ai/wicara/domain/repositories"
	"github.com/wicara-ai/wicara/internal/chatlog"
	"github.com/wicara-ai/wicara/internal/protocol"
	"github.com/wicara-ai/wicara/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Client is a middleman between the websocket connection and the
// session protocol.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound frames.
	send chan []byte

	sessionID string
	proto     *session.Protocol
	logger    *zap.Logger

	// closed guards emission after disconnect: results of turns still
	// in flight when the peer goes away are dropped, not queued.
	mu     sync.Mutex
	closed bool
}

// Deps bundles the collaborators every new connection needs.
type Deps struct {
	Completion repositories.ChatCompletion
	Synthesis  repositories.SpeechSynthesis
	ChatLog    *chatlog.Logger
	Protocol   session.Config
}

// HandleWebSocket upgrades the request and starts a session for the
// connection.
func HandleWebSocket(hub *Hub, c echo.Context, deps Deps, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		logger: logger,
	}
	client.proto = session.New(
		deps.Protocol,
		deps.Completion,
		deps.Synthesis,
		deps.ChatLog,
		logger,
		client.emit,
	)
	client.sessionID = client.proto.ID()

	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all
	// work in new goroutines.
	go client.writePump()
	go client.readPump()

	client.proto.Announce()

	return nil
}

// emit serializes one protocol event onto the send channel. Events for
// a closed connection are dropped.
func (c *Client) emit(event protocol.Outbound) {
	data, err := protocol.EncodeOutbound(event)
	if err != nil {
		c.logger.Error("Failed to encode outbound event", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.logger.Debug("Dropping event for closed connection",
			zap.String("session_id", c.sessionID))
		return
	}
	select {
	case c.send <- data:
	default:
		// A peer too slow to drain the buffer must not lose frames
		// one by one; close and let it reconnect into a fresh session.
		c.closed = true
		c.logger.Warn("Send buffer full, closing connection",
			zap.String("session_id", c.sessionID))
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

// readPump pumps messages from the websocket connection into the
// session protocol. Frames are processed sequentially so a session's
// events keep arrival order.
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		msg, err := protocol.DecodeInbound(data)
		if err != nil {
			c.logger.Warn("Rejected inbound frame",
				zap.String("session_id", c.sessionID),
				zap.Error(err))
			c.emit(protocol.NewErrorEvent(err.Error()))
			continue
		}

		c.proto.Handle(context.Background(), msg)
	}
}

// writePump pumps frames from the send channel to the websocket
// connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
