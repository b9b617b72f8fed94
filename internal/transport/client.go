// Package transport maintains the client side of the chat connection:
// dialing, send serialization, and automatic reconnection with backoff.
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wicara-ai/wicara/internal/protocol"
)

// Config tunes connection behavior.
type Config struct {
	URL        string
	Backoff    time.Duration // fixed delay between reconnect attempts
	MaxRetries int           // attempts per (re)connect before giving up
}

// Handler receives connection lifecycle callbacks. OnConnect fires on
// every successful dial, including reconnects, so state tied to the
// previous connection can be discarded.
type Handler interface {
	OnConnect()
	OnEvent(event protocol.Outbound)
}

// Client is a reconnecting WebSocket client. Writes are serialized
// with a mutex; reads run in Run's loop.
type Client struct {
	config  Config
	handler Handler
	logger  *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient creates a client for the given server URL.
func NewClient(config Config, handler Handler, logger *zap.Logger) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if config.Backoff <= 0 {
		config.Backoff = 2 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 5
	}
	return &Client{
		config:  config,
		handler: handler,
		logger:  logger,
	}, nil
}

// Run dials the server and consumes events until ctx is cancelled or
// reconnection is exhausted.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.connect(ctx); err != nil {
			return err
		}
		c.handler.OnConnect()

		err := c.readLoop(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("Connection lost, reconnecting", zap.Error(err))
	}
}

// Send serializes one message onto the connection.
func (c *Client) Send(msg protocol.Inbound) error {
	data, err := protocol.EncodeInbound(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close tears the connection down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) connect(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.config.URL, nil)
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			c.logger.Info("Connected", zap.String("url", c.config.URL))
			return nil
		}
		lastErr = err
		c.logger.Warn("Dial failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.config.MaxRetries),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.config.Backoff):
		}
	}
	return fmt.Errorf("could not connect after %d attempts: %w", c.config.MaxRetries, lastErr)
}

func (c *Client) readLoop(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	// ReadMessage blocks until a frame or a connection error, so a
	// cancelled context unblocks it by closing the connection.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			conn.Close()
			return err
		}

		event, err := protocol.DecodeOutbound(data)
		if err != nil {
			c.logger.Warn("Dropping undecodable frame", zap.Error(err))
			continue
		}
		c.handler.OnEvent(event)
	}
}
