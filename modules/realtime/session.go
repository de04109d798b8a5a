package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/example/realtime-chat/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
)

// AnonymousName is shown in notices for sessions without a display name.
const AnonymousName = "Anonymous"

// Delivery errors.
var (
	ErrSessionClosed = errors.New("session closed")
	ErrSlowConsumer  = errors.New("outbound queue full")
)

// State is the lifecycle state of a Session.
type State int32

const (
	StateConnecting State = iota
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one live client connection joined to exactly one room.
// Outbound frames go through a bounded queue drained by a single writer, so
// a slow client never stalls the goroutine that broadcasts to it.
type Session struct {
	id       string
	conn     Conn
	identity *chat.Identity
	room     chat.RoomRef
	logger   types.Logger

	out  chan []byte
	done chan struct{}

	state      atomic.Int32
	closeOnce  sync.Once
	membership *Membership
	dropped    atomic.Uint64
}

func newSession(conn Conn, identity *chat.Identity, room chat.RoomRef, queueSize int, logger types.Logger) *Session {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	id := uuid.NewString()
	return &Session{
		id:       id,
		conn:     conn,
		identity: identity,
		room:     room,
		logger:   logger.With("sessionID", id, "room", room.String()),
		out:      make(chan []byte, queueSize),
		done:     make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Room returns the room the session is bound to.
func (s *Session) Room() chat.RoomRef { return s.room }

// Identity returns the authenticated identity, or nil for anonymous sessions.
func (s *Session) Identity() *chat.Identity { return s.identity }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Dropped returns the number of frames discarded because the queue was full.
func (s *Session) Dropped() uint64 { return s.dropped.Load() }

// DisplayName is the name used in join and leave notices.
func (s *Session) DisplayName() string {
	if name := s.identity.Name(); name != "" {
		return name
	}
	return AnonymousName
}

// sender resolves who a frame is attributed to. An authenticated identity
// always wins over the fields the client put in the frame.
func (s *Session) sender(username, name string) (string, string) {
	if s.identity != nil {
		return s.identity.Username, s.identity.Name()
	}
	return username, name
}

// Deliver enqueues an encoded frame without blocking.
func (s *Session) Deliver(frame []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.out <- frame:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		s.dropped.Add(1)
		return ErrSlowConsumer
	}
}

func (s *Session) markJoined(m *Membership) bool {
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateJoined)) {
		return false
	}
	s.membership = m
	return true
}

// markClosed moves the session to Closed. Only the first call returns true.
func (s *Session) markClosed() bool {
	if State(s.state.Swap(int32(StateClosed))) == StateClosed {
		return false
	}
	s.closeOnce.Do(func() { close(s.done) })
	return true
}

// writeLoop drains the outbound queue until the session closes.
// A write failure closes the connection, which ends the read loop too.
func (s *Session) writeLoop(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.out:
			if err := s.conn.Write(ctx, frame); err != nil {
				s.logger.Warn("Failed to write frame", "error", err)
				_ = s.conn.Close()
				return
			}
		}
	}
}
