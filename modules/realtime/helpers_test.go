package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/example/realtime-chat/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

func newMockLogger() types.Logger {
	return &mockLogger{}
}

var errConnClosed = errors.New("use of closed connection")

// fakeConn is an in-memory Conn. Frames pushed with send are returned by
// Read; frames written by the session are available on writes.
type fakeConn struct {
	in     chan []byte
	writes chan []byte
	closed chan struct{}
	once   sync.Once

	// stall, when non-nil, blocks every Write until it is closed.
	stall chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 64),
		writes: make(chan []byte, 1024),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.in:
		return data, nil
	case <-c.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Write(_ context.Context, data []byte) error {
	if c.stall != nil {
		select {
		case <-c.stall:
		case <-c.closed:
			return errConnClosed
		}
	}
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	c.writes <- data
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) RemoteAddr() string { return "pipe" }

func (c *fakeConn) send(t *testing.T, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	c.in <- data
}

func (c *fakeConn) sendRaw(data string) {
	c.in <- []byte(data)
}

func (c *fakeConn) next(t *testing.T) chat.OutboundFrame {
	t.Helper()
	select {
	case data := <-c.writes:
		var f chat.OutboundFrame
		require.NoError(t, json.Unmarshal(data, &f))
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return chat.OutboundFrame{}
	}
}

func (c *fakeConn) expectSilence(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case data := <-c.writes:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(d):
	}
}

// client is a served fake connection.
type client struct {
	conn *fakeConn
	done chan error
}

func (cl *client) hangup(t *testing.T) {
	t.Helper()
	_ = cl.conn.Close()
	select {
	case <-cl.done:
	case <-time.After(time.Second):
		t.Fatal("session did not finish")
	}
}

func connect(t *testing.T, e *Engine, identity *chat.Identity, room chat.RoomRef) *client {
	t.Helper()
	before := e.Registry().MemberCount(room.GroupKey())
	cl := &client{conn: newFakeConn(), done: make(chan error, 1)}
	go func() {
		cl.done <- e.Serve(context.Background(), cl.conn, identity, room)
	}()
	require.Eventually(t, func() bool {
		return e.Registry().MemberCount(room.GroupKey()) == before+1
	}, time.Second, 2*time.Millisecond)
	t.Cleanup(func() { _ = cl.conn.Close() })
	return cl
}

func identity(username string) *chat.Identity {
	return &chat.Identity{UserID: username + "-id", Username: username}
}

type recordedPersist struct {
	Room   chat.RoomRef
	Sender string
	Text   string
}

type fakeStore struct {
	mu    sync.Mutex
	saved []recordedPersist
	err   error
}

func (s *fakeStore) Persist(_ context.Context, room chat.RoomRef, sender, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, recordedPersist{Room: room, Sender: sender, Text: text})
	return nil
}

func (s *fakeStore) all() []recordedPersist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedPersist(nil), s.saved...)
}

type presenceCall struct {
	Username string
	Online   bool
}

type fakeListener struct {
	mu    sync.Mutex
	calls []presenceCall
}

func (l *fakeListener) PresenceChanged(username string, online bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, presenceCall{username, online})
}

func (l *fakeListener) all() []presenceCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]presenceCall(nil), l.calls...)
}
