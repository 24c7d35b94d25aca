package chat

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"GVChat/logger"
	"GVChat/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WSConfig struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration // must be below PongWait
	MaxMessageSize int64
	CheckOrigin    func(origin string) bool
	// Authenticate resolves the handshake request to a user. Anonymous
	// connections are accepted but can only leave rooms.
	Authenticate func(r *http.Request) (int64, bool)
}

func (c *WSConfig) norm() {
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 64 << 10
	}
}

// WSServer is the WebSocket transport in front of Server.
type WSServer struct {
	s        *Server
	conf     WSConfig
	upgrader websocket.Upgrader

	mu    sync.Mutex
	socks map[*Conn]*websocket.Conn
	wg    sync.WaitGroup
}

func NewWSServer(s *Server, conf WSConfig) *WSServer {
	conf.norm()
	w := &WSServer{s: s, conf: conf, socks: make(map[*Conn]*websocket.Conn)}
	w.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if conf.CheckOrigin == nil {
				return true
			}
			return conf.CheckOrigin(r.Header.Get("Origin"))
		},
	}
	return w
}

// HandleWS upgrades the request and runs the connection until it closes.
// Events from one connection are dispatched in order on this goroutine.
func (w *WSServer) HandleWS(c *gin.Context) {
	var (
		uid    int64
		authed bool
	)
	if w.conf.Authenticate != nil {
		uid, authed = w.conf.Authenticate(c.Request)
	}

	ws, err := w.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Info("websocket upgrade failed", zap.String("remote", c.ClientIP()), zap.Error(err))
		return
	}

	conn := w.s.NewConn(c.ClientIP())
	if authed {
		conn.Authenticate(uid)
	}
	w.track(conn, ws)
	w.s.metrics.ConnOpened()
	defer w.s.metrics.ConnClosed()

	writerDone := make(chan struct{})
	safe.Go("ws-writer", func() {
		defer close(writerDone)
		w.writePump(conn, ws)
	})

	ctx := context.Background()
	if out := w.s.Dispatch(ctx, conn, EventConnect, nil); out == OutcomeFailed {
		conn.Close()
	} else {
		w.readPump(ctx, conn, ws)
	}

	dctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	w.s.Dispatch(dctx, conn, EventDisconnect, nil)
	cancel()

	conn.Close()
	<-writerDone
	_ = ws.Close()
	w.untrack(conn)
}

func (w *WSServer) readPump(ctx context.Context, conn *Conn, ws *websocket.Conn) {
	ws.SetReadLimit(w.conf.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(w.conf.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(w.conf.PongWait))
	})

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			logReadErr(conn, err)
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		f, err := ParseFrame(data)
		if err != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Debug("bad frame", zap.String("conn", conn.ID()), zap.ByteString("sample", sample), zap.Error(err))
			continue
		}
		// connect and disconnect belong to the transport
		if f.Event == EventConnect || f.Event == EventDisconnect {
			continue
		}
		w.s.Dispatch(ctx, conn, f.Event, f.Data)
	}
}

func logReadErr(conn *Conn, err error) {
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		logger.Debug("peer closed", zap.String("conn", conn.ID()))
	default:
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			logger.Info("read timeout", zap.String("conn", conn.ID()))
			return
		}
		logger.Debug("read error", zap.String("conn", conn.ID()), zap.Error(err))
	}
}

// writePump is the only writer of ws. It closes the socket on a write
// failure so the reader unblocks.
func (w *WSServer) writePump(conn *Conn, ws *websocket.Conn) {
	ticker := time.NewTicker(w.conf.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-conn.Outbound():
			// frames queued while the connection was closing are not written
			if conn.Closed() {
				writeClose(ws, w.conf.WriteWait)
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(w.conf.WriteWait))
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Debug("write failed", zap.String("conn", conn.ID()), zap.Error(err))
				conn.Close()
				_ = ws.Close()
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(w.conf.WriteWait)); err != nil {
				conn.Close()
				_ = ws.Close()
				return
			}
		case <-conn.Done():
			writeClose(ws, w.conf.WriteWait)
			return
		}
	}
}

func writeClose(ws *websocket.Conn, wait time.Duration) {
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wait))
}

func (w *WSServer) track(c *Conn, ws *websocket.Conn) {
	w.mu.Lock()
	w.socks[c] = ws
	w.wg.Add(1)
	w.mu.Unlock()
}

func (w *WSServer) untrack(c *Conn) {
	w.mu.Lock()
	if _, ok := w.socks[c]; ok {
		delete(w.socks, c)
		w.wg.Done()
	}
	w.mu.Unlock()
}

// Count is the number of open connections.
func (w *WSServer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.socks)
}

// Shutdown sends going-away to every connection and waits for their
// disconnect handling to finish, or for ctx.
func (w *WSServer) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	for c, ws := range w.socks {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		c.Close()
		_ = ws.Close()
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
