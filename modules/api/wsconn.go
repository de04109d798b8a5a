package api

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/realtime-chat/modules/realtime"
	"github.com/gofiber/contrib/websocket"
)

const (
	writeWait = 10 * time.Second
	closeWait = time.Second
)

// wsConn adapts an upgraded Fiber WebSocket to realtime.Conn.
type wsConn struct {
	conn      *websocket.Conn
	mu        sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

var _ realtime.Conn = (*wsConn)(nil)

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

// Read returns the next text or binary frame. A close handshake, or a read
// failing because the connection was closed locally, yields io.EOF.
func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = w.conn.SetReadDeadline(deadline)
	}
	_, data, err := w.conn.ReadMessage()
	if err != nil {
		if w.closed.Load() || websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived,
		) {
			return nil, io.EOF
		}
		return nil, err
	}
	return data, nil
}

// Write sends one text frame.
func (w *wsConn) Write(ctx context.Context, data []byte) error {
	if w.closed.Load() {
		return io.ErrClosedPipe
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a normal close frame and closes the socket. Safe to call more
// than once.
func (w *wsConn) Close() error {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		w.mu.Lock()
		_ = w.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWait),
		)
		w.mu.Unlock()
		w.closeErr = w.conn.Close()
	})
	return w.closeErr
}

func (w *wsConn) RemoteAddr() string {
	if addr := w.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
