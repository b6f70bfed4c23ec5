package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait     = 10 * time.Second
	pingPeriod    = 30 * time.Second
	sendQueueSize = 128
)

// Client wraps a websocket connection with a buffered outbound queue drained
// by a single writer goroutine. All deliveries go through Enqueue; nothing
// writes to the socket directly.
type Client struct {
	ConnID string
	WS     *websocket.Conn
	Send   chan []byte

	closed chan struct{}
	once   sync.Once
}

func NewClient(connID string, ws *websocket.Conn) *Client {
	return &Client{
		ConnID: connID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		closed: make(chan struct{}),
	}
}

// Start launches the write loop. Call exactly once per connection.
func (c *Client) Start() {
	go c.writeLoop()
}

// Enqueue queues payload for delivery. A full queue drops the frame rather
// than blocking the caller; delivery to a closed client is a no-op.
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// Close terminates the connection and stops the write loop. Idempotent.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.closed)
		if c.WS != nil {
			_ = c.WS.Close()
		}
	})
}

// IsClosed reports whether Close has been called.
func (c *Client) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case payload := <-c.Send:
			if err := c.write(websocket.TextMessage, payload); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *Client) write(mt int, payload []byte) error {
	if err := c.WS.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.WS.WriteMessage(mt, payload)
}
