package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/hal-voice/utils/log"
)

type Client struct {
	conn         *websocket.Conn
	send         chan []byte
	incomingPing chan string
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.RWMutex
	closed       bool

	onMessage func(c *Client, message []byte)
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
)

// NewClient creates a new WebSocket client. onMessage receives every text frame
// the front-end sends.
func NewClient(conn *websocket.Conn, deviceID string, onMessage func(c *Client, message []byte)) *Client {
	sessionID := uuid.New().String()
	ctx := log.WithSession(context.Background(), sessionID, deviceID)
	ctx, cancel := context.WithCancel(ctx)
	return &Client{
		conn:         conn,
		send:         make(chan []byte, 256),
		incomingPing: make(chan string, 1),
		ctx:          ctx,
		cancel:       cancel,
		onMessage:    onMessage,
	}
}

func (c *Client) Run() {
	c.setupHandlers()

	go c.Ping()
	go c.readPump()
	go c.writePump()
}

// setupHandlers configures all WebSocket message handlers
func (c *Client) setupHandlers() {
	c.conn.SetCloseHandler(func(code int, text string) error {
		log.WithCtx(c.ctx).Debug("WebSocket connection closed", zap.Int("code", code), zap.String("text", text))
		c.Close()
		return nil
	})

	c.conn.SetPingHandler(func(appData string) error {
		log.WithCtx(c.ctx).Debug("Received ping from client", zap.String("appData", appData))
		select {
		case c.incomingPing <- appData:
		default:
		}
		return c.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	c.conn.SetPongHandler(func(appData string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
}

// Close gracefully closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}

	if c.conn != nil {
		c.conn.Close()
	}
}

// IsClosed returns true if the client connection is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Context returns the client's context
func (c *Client) Context() context.Context {
	return c.ctx
}

func (c *Client) Ping() {
	for {
		select {
		case <-c.incomingPing:
		case <-time.After(pingPeriod):
			if c.IsClosed() {
				return
			}

			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				log.WithCtx(c.ctx).Error("Failed to send ping", zap.Error(err))
				c.Close()
				return
			}
			log.WithCtx(c.ctx).Debug("Ping sent")
		case <-c.ctx.Done():
			return
		}
	}
}

// readPump handles incoming WebSocket messages
func (c *Client) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		if c.IsClosed() {
			return
		}

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithCtx(c.ctx).Error("WebSocket error", zap.Error(err))
			}
			return
		}

		// Any traffic proves the peer is alive.
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		log.WithCtx(c.ctx).Debug("Received message", zap.ByteString("message", message))
		if c.onMessage != nil {
			c.onMessage(c, message)
		}
	}
}

// writePump handles outgoing WebSocket messages
func (c *Client) writePump() {
	defer c.Close()

	for {
		select {
		case message := <-c.send:
			if c.IsClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.WithCtx(c.ctx).Error("Failed to write message", zap.Error(err))
				return
			}

		case <-c.ctx.Done():
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// SendMessage sends a message to the client safely
func (c *Client) SendMessage(message []byte) error {
	if c.IsClosed() {
		return websocket.ErrCloseSent
	}

	select {
	case c.send <- message:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		// Channel is full, close the connection
		c.Close()
		return websocket.ErrCloseSent
	}
}
