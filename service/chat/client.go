package chat

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Conn is one client connection. The transport owns the socket; the core
// only sees the id, the bound user and the outbound queue.
type Conn struct {
	id     string
	remote string
	send   chan []byte

	mu     sync.RWMutex
	userID int64
	authed bool

	present atomic.Bool // counted by the presence tracker

	closeOnce sync.Once
	done      chan struct{}
}

func NewConn(queue int, remote string) *Conn {
	if queue <= 0 {
		queue = 256
	}
	return &Conn{
		id:     uuid.NewString(),
		remote: remote,
		send:   make(chan []byte, queue),
		done:   make(chan struct{}),
	}
}

func (c *Conn) ID() string     { return c.id }
func (c *Conn) Remote() string { return c.remote }

// Authenticate binds the connection to a user. It happens once, at
// handshake, before the connect event.
func (c *Conn) Authenticate(userID int64) {
	c.mu.Lock()
	c.userID, c.authed = userID, true
	c.mu.Unlock()
}

func (c *Conn) UserID() (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.authed
}

// Outbound is drained by the connection's writer.
func (c *Conn) Outbound() <-chan []byte { return c.send }

func (c *Conn) Done() <-chan struct{} { return c.done }

// enqueue never blocks; a full queue drops the frame.
func (c *Conn) enqueue(frame []byte) bool {
	if c.Closed() {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close marks the connection finished. The send channel stays open so a
// concurrent broadcast cannot panic.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
