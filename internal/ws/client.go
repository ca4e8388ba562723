package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
)

// clientConn wraps one websocket connection. All writes go through the
// mutex; gorilla conns allow only a single concurrent writer.
type clientConn struct {
	rawConn *websocket.Conn
	id      string
	mu      sync.Mutex

	// roomID is written and read only by the connection's reader goroutine.
	roomID string

	// alive is cleared by the heartbeat on every probe and set again by the
	// pong handler.
	alive atomic.Bool
}

func (c *clientConn) write(mt int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteMessage(mt, data) // Text/Binary only
}

func (c *clientConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rawConn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// close tears the transport down; the reader loop unblocks with an error and
// deregisters the connection.
func (c *clientConn) close() error {
	return c.rawConn.Close()
}
