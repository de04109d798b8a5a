package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/example/realtime-chat/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/singleflight"
)

// Engine defaults.
const (
	DefaultQueueSize      = 64
	DefaultPersistTimeout = 5 * time.Second
)

// EngineConfig tunes the engine.
type EngineConfig struct {
	// QueueSize bounds each session's outbound queue.
	QueueSize int
	// MaxMessageLength is the longest accepted chat message, in runes.
	MaxMessageLength int
	// PersistTimeout bounds one message store call.
	PersistTimeout time.Duration
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.MaxMessageLength <= 0 {
		c.MaxMessageLength = chat.MaxMessageLength
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = DefaultPersistTimeout
	}
	return c
}

// EngineOption wires a collaborator into the engine.
type EngineOption func(*Engine)

// WithMessageStore sets where chat messages are persisted.
func WithMessageStore(store MessageStore) EngineOption {
	return func(e *Engine) { e.store = store }
}

// WithDirectory sets the private room directory.
func WithDirectory(dir Directory) EngineOption {
	return func(e *Engine) { e.directory = dir }
}

// WithPresenceListener sets who is told about presence transitions.
func WithPresenceListener(l PresenceListener) EngineOption {
	return func(e *Engine) { e.listener = l }
}

// Engine owns the room registry, the presence tracker and the broadcaster,
// and runs every connected session.
type Engine struct {
	cfg         EngineConfig
	registry    *Registry
	presence    *Presence
	broadcaster *Broadcaster
	logger      types.Logger

	store     MessageStore
	directory Directory
	listener  PresenceListener

	private singleflight.Group

	mu       sync.Mutex
	sessions map[*Session]struct{}
	wg       sync.WaitGroup
}

// NewEngine creates an Engine. Collaborators not given default to no-ops.
func NewEngine(cfg EngineConfig, logger types.Logger, opts ...EngineOption) *Engine {
	registry := NewRegistry()
	e := &Engine{
		cfg:         cfg.withDefaults(),
		registry:    registry,
		presence:    NewPresence(),
		broadcaster: NewBroadcaster(registry, logger),
		logger:      logger,
		store:       nopStore{},
		listener:    nopListener{},
		sessions:    make(map[*Session]struct{}),
	}
	e.Configure(opts...)
	return e
}

// Configure applies options. It must be called before sessions are served.
func (e *Engine) Configure(opts ...EngineOption) {
	for _, opt := range opts {
		opt(e)
	}
}

// Registry returns the room registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Presence returns the presence tracker.
func (e *Engine) Presence() *Presence { return e.presence }

// Broadcaster returns the broadcaster.
func (e *Engine) Broadcaster() *Broadcaster { return e.broadcaster }

// IsOnline reports whether the user has an active public-room session.
func (e *Engine) IsOnline(username string) bool {
	return e.presence.IsOnline(username)
}

// Serve joins conn to room and runs the session until the connection ends.
// Private rooms require an identity. The returned error is nil for a normal
// close and wraps chat.ErrConnection otherwise.
func (e *Engine) Serve(ctx context.Context, conn Conn, identity *chat.Identity, room chat.RoomRef) error {
	if room.IsPrivate() && identity == nil {
		return chat.ErrUnauthenticated
	}

	s := newSession(conn, identity, room, e.cfg.QueueSize, e.logger)
	if !e.track(s) {
		_ = conn.Close()
		return fmt.Errorf("%w: engine stopped", chat.ErrConnection)
	}
	defer e.untrack(s)

	e.join(s)
	s.logger.Info("Session joined", "remote", conn.RemoteAddr(), "user", identity.Name())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx)
	}()

	err := e.readLoop(ctx, s)
	e.close(s)
	<-writerDone

	s.logger.Info("Session closed", "dropped", s.Dropped())
	return err
}

func (e *Engine) join(s *Session) {
	key := s.room.GroupKey()
	m := e.registry.Join(key, s)
	s.markJoined(m)

	if s.room.IsPrivate() {
		return
	}
	if s.identity != nil && e.presence.SetOnline(s.identity.Username) {
		e.listener.PresenceChanged(s.identity.Username, true)
	}
	_, _ = e.broadcaster.Broadcast(key, chat.JoinedNotice(s.DisplayName()))
}

// close tears a session down once. The session leaves its room before the
// leave notice goes out, so it never receives its own notice.
func (e *Engine) close(s *Session) {
	if !s.markClosed() {
		return
	}
	e.registry.Leave(s.membership)
	_ = s.conn.Close()

	if s.room.IsPrivate() {
		return
	}
	if s.identity != nil && e.presence.SetOffline(s.identity.Username) {
		e.listener.PresenceChanged(s.identity.Username, false)
	}
	_, _ = e.broadcaster.Broadcast(s.room.GroupKey(), chat.LeftNotice(s.DisplayName()))
}

// readLoop handles inbound frames one at a time, which keeps each sender's
// frames in order.
func (e *Engine) readLoop(ctx context.Context, s *Session) error {
	for {
		data, err := s.conn.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || s.State() == StateClosed {
				return nil
			}
			return fmt.Errorf("%w: %v", chat.ErrConnection, err)
		}
		if s.State() != StateJoined {
			return nil
		}

		frame, err := chat.DecodeInbound(data)
		if err != nil {
			s.logger.Warn("Dropped malformed frame", "error", err)
			continue
		}
		if leave := e.handle(ctx, s, frame); leave {
			return nil
		}
	}
}

func (e *Engine) handle(ctx context.Context, s *Session, frame chat.Inbound) (leave bool) {
	key := s.room.GroupKey()

	switch f := frame.(type) {
	case chat.ChatFrame:
		e.handleChat(ctx, s, f)
	case chat.TypingFrame:
		sender, name := s.sender(f.Username, f.Name)
		_, _ = e.broadcaster.Broadcast(key, chat.TypingStarted{Sender: sender, DisplayName: name})
	case chat.StopTypingFrame:
		sender, _ := s.sender(f.Username, "")
		_, _ = e.broadcaster.Broadcast(key, chat.TypingStopped{Sender: sender})
	case chat.LeaveFrame:
		return true
	}
	return false
}

func (e *Engine) handleChat(ctx context.Context, s *Session, f chat.ChatFrame) {
	if f.Blank() {
		return
	}
	if utf8.RuneCountInString(f.Message) > e.cfg.MaxMessageLength {
		s.logger.Warn("Dropped oversized message", "length", utf8.RuneCountInString(f.Message))
		return
	}

	sender, name := s.sender(f.Username, f.Name)

	pctx, cancel := context.WithTimeout(ctx, e.cfg.PersistTimeout)
	err := e.store.Persist(pctx, s.room, sender, f.Message)
	cancel()
	if err != nil {
		s.logger.Error("Failed to persist message", "sender", sender, "error", fmt.Errorf("%w: %v", chat.ErrStore, err))
	}

	_, _ = e.broadcaster.Broadcast(s.room.GroupKey(), chat.ChatMessage{
		Text:        f.Message,
		Sender:      sender,
		DisplayName: name,
	})
}

// ResolvePrivate returns the private room shared by a and b, creating it on
// first use. Concurrent calls for the same pair share one directory call, and
// the directory itself treats the pair as unique, so exactly one room exists
// per pair.
func (e *Engine) ResolvePrivate(ctx context.Context, a, b string) (*chat.PrivateRoom, error) {
	if a == b {
		return nil, chat.ErrSelfChat
	}
	if e.directory == nil {
		return nil, errNoDirectory
	}

	lo, hi := chat.SortedPair(a, b)
	slug := chat.PrivateSlug(lo, hi)

	v, err, _ := e.private.Do(slug, func() (any, error) {
		return e.directory.EnsurePrivateRoom(ctx, lo, hi)
	})
	if err != nil {
		return nil, err
	}
	return v.(*chat.PrivateRoom), nil
}

func (e *Engine) track(s *Session) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sessions == nil {
		return false
	}
	e.sessions[s] = struct{}{}
	e.wg.Add(1)
	return true
}

func (e *Engine) untrack(s *Session) {
	e.mu.Lock()
	if e.sessions != nil {
		delete(e.sessions, s)
	}
	e.mu.Unlock()
	e.wg.Done()
}

// Shutdown closes every live connection and waits for the sessions to finish
// or for ctx to expire. New sessions are refused afterwards.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	live := make([]*Session, 0, len(e.sessions))
	for s := range e.sessions {
		live = append(live, s)
	}
	e.sessions = nil
	e.mu.Unlock()

	for _, s := range live {
		_ = s.conn.Close()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
