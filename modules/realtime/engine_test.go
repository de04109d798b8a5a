package realtime

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/realtime-chat/domain/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inbound map[string]string

func newTestEngine(opts ...EngineOption) *Engine {
	return NewEngine(EngineConfig{QueueSize: 64}, newMockLogger(), opts...)
}

// joinPublic connects a user to a public room and consumes its own join notice.
func joinPublic(t *testing.T, e *Engine, id *chat.Identity, slug string) *client {
	t.Helper()
	cl := connect(t, e, id, chat.PublicRef(slug))
	f := cl.conn.next(t)
	require.Equal(t, chat.SystemSender, f.Username)
	require.True(t, strings.HasSuffix(f.Message, " joined the chat"))
	return cl
}

func TestEngine_JoinNotices(t *testing.T) {
	listener := &fakeListener{}
	e := newTestEngine(WithPresenceListener(listener))

	alice := connect(t, e, identity("alice"), chat.PublicRef("general"))
	f := alice.conn.next(t)
	assert.Equal(t, chat.OutboundFrame{Message: "alice joined the chat", Username: "System", Name: "System"}, f)

	joinPublic(t, e, identity("bob"), "general")
	assert.Equal(t, "bob joined the chat", alice.conn.next(t).Message)

	assert.True(t, e.IsOnline("alice"))
	assert.True(t, e.IsOnline("bob"))
	assert.Equal(t, []presenceCall{{"alice", true}, {"bob", true}}, listener.all())
}

func TestEngine_FramesArriveInSendOrder(t *testing.T) {
	e := newTestEngine()
	alice := joinPublic(t, e, identity("alice"), "general")
	bob := joinPublic(t, e, identity("bob"), "general")
	alice.conn.next(t) // bob joined

	alice.conn.send(t, inbound{"type": "typing", "username": "alice", "name": "alice"})
	alice.conn.send(t, inbound{"message": "hello", "username": "alice", "name": "alice"})
	alice.conn.send(t, inbound{"type": "stop_typing", "username": "alice"})

	for _, cl := range []*client{bob, alice} {
		f := cl.conn.next(t)
		assert.Equal(t, chat.FrameTyping, f.Type)
		assert.Equal(t, "alice", f.Username)

		f = cl.conn.next(t)
		assert.Equal(t, chat.OutboundFrame{Message: "hello", Username: "alice", Name: "alice"}, f)

		f = cl.conn.next(t)
		assert.Equal(t, chat.OutboundFrame{Type: chat.FrameStopTyping, Username: "alice"}, f)
	}
}

func TestEngine_ManyMessagesKeepOrder(t *testing.T) {
	e := newTestEngine()
	alice := joinPublic(t, e, identity("alice"), "general")
	bob := joinPublic(t, e, identity("bob"), "general")
	alice.conn.next(t)

	const n = 40
	for i := 0; i < n; i++ {
		alice.conn.send(t, inbound{"message": strings.Repeat("m", i+1), "username": "alice", "name": "alice"})
	}
	for i := 0; i < n; i++ {
		assert.Len(t, bob.conn.next(t).Message, i+1)
	}
}

func TestEngine_BlankMessageIsDropped(t *testing.T) {
	store := &fakeStore{}
	e := newTestEngine(WithMessageStore(store))
	alice := joinPublic(t, e, identity("alice"), "general")
	bob := joinPublic(t, e, identity("bob"), "general")
	alice.conn.next(t)

	alice.conn.send(t, inbound{"message": "   \t\n"})
	bob.conn.expectSilence(t, 50*time.Millisecond)
	assert.Empty(t, store.all())

	alice.conn.send(t, inbound{"message": "still here", "username": "alice", "name": "alice"})
	assert.Equal(t, "still here", bob.conn.next(t).Message)
}

func TestEngine_MalformedFramesKeepConnectionOpen(t *testing.T) {
	e := newTestEngine()
	alice := joinPublic(t, e, identity("alice"), "general")
	bob := joinPublic(t, e, identity("bob"), "general")
	alice.conn.next(t)

	alice.conn.sendRaw("{not json")
	alice.conn.sendRaw(`{"type":"dance","username":"alice"}`)
	alice.conn.sendRaw(`{"type":"typing"}`)
	alice.conn.sendRaw(`{"message":"no sender"}`)
	bob.conn.expectSilence(t, 50*time.Millisecond)

	alice.conn.send(t, inbound{"message": "valid", "username": "alice", "name": "alice"})
	assert.Equal(t, "valid", bob.conn.next(t).Message)
	assert.Equal(t, 2, e.Registry().MemberCount(chat.PublicRef("general").GroupKey()))
}

func TestEngine_OversizedMessageIsDropped(t *testing.T) {
	e := NewEngine(EngineConfig{MaxMessageLength: 10}, newMockLogger())
	alice := joinPublic(t, e, identity("alice"), "general")

	alice.conn.send(t, inbound{"message": strings.Repeat("x", 11), "username": "alice", "name": "alice"})
	alice.conn.expectSilence(t, 50*time.Millisecond)

	alice.conn.send(t, inbound{"message": strings.Repeat("é", 10), "username": "alice", "name": "alice"})
	assert.Equal(t, strings.Repeat("é", 10), alice.conn.next(t).Message)
}

func TestEngine_IdentityOverridesFrameSender(t *testing.T) {
	store := &fakeStore{}
	e := newTestEngine(WithMessageStore(store))
	id := &chat.Identity{Username: "alice", DisplayName: "Alice"}
	alice := joinPublic(t, e, id, "general")

	alice.conn.send(t, inbound{"message": "hi", "username": "mallory", "name": "Mallory"})
	assert.Equal(t, chat.OutboundFrame{Message: "hi", Username: "alice", Name: "Alice"}, alice.conn.next(t))

	require.Len(t, store.all(), 1)
	assert.Equal(t, recordedPersist{Room: chat.PublicRef("general"), Sender: "alice", Text: "hi"}, store.all()[0])
}

func TestEngine_AnonymousPublicSession(t *testing.T) {
	listener := &fakeListener{}
	e := newTestEngine(WithPresenceListener(listener))

	anon := connect(t, e, nil, chat.PublicRef("lobby"))
	assert.Equal(t, "Anonymous joined the chat", anon.conn.next(t).Message)

	anon.conn.send(t, inbound{"message": "hey", "username": "guest", "name": "Guest"})
	assert.Equal(t, chat.OutboundFrame{Message: "hey", Username: "guest", Name: "Guest"}, anon.conn.next(t))

	anon.hangup(t)
	assert.Empty(t, listener.all())
}

func TestEngine_StoreFailureStillBroadcasts(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	e := newTestEngine(WithMessageStore(store))
	alice := joinPublic(t, e, identity("alice"), "general")

	alice.conn.send(t, inbound{"message": "hello", "username": "alice", "name": "alice"})
	assert.Equal(t, "hello", alice.conn.next(t).Message)
}

func TestEngine_DisconnectRemovesMember(t *testing.T) {
	listener := &fakeListener{}
	e := newTestEngine(WithPresenceListener(listener))
	alice := joinPublic(t, e, identity("alice"), "general")
	bob := joinPublic(t, e, identity("bob"), "general")
	alice.conn.next(t)

	bob.hangup(t)

	assert.Equal(t, "bob left the chat", alice.conn.next(t).Message)
	assert.Equal(t, 1, e.Registry().MemberCount(chat.PublicRef("general").GroupKey()))
	assert.False(t, e.IsOnline("bob"))
	assert.Contains(t, listener.all(), presenceCall{"bob", false})

	alice.conn.send(t, inbound{"message": "anyone?", "username": "alice", "name": "alice"})
	assert.Equal(t, "anyone?", alice.conn.next(t).Message)
}

func TestEngine_LeaveFrameClosesSession(t *testing.T) {
	e := newTestEngine()
	alice := joinPublic(t, e, identity("alice"), "general")

	alice.conn.send(t, inbound{"type": "leave"})

	select {
	case err := <-alice.done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("session did not close")
	}
	assert.Zero(t, e.Registry().SessionCount())
	assert.False(t, e.IsOnline("alice"))
}

func TestEngine_SecondTabKeepsUserOnline(t *testing.T) {
	listener := &fakeListener{}
	e := newTestEngine(WithPresenceListener(listener))

	tab1 := joinPublic(t, e, identity("alice"), "general")
	joinPublic(t, e, identity("alice"), "random")

	tab1.hangup(t)
	assert.True(t, e.IsOnline("alice"))
	assert.Equal(t, []presenceCall{{"alice", true}}, listener.all())
}

func TestEngine_PrivateRoomRequiresIdentity(t *testing.T) {
	e := newTestEngine()
	err := e.Serve(context.Background(), newFakeConn(), nil, chat.PrivateRef("alice_bob"))
	assert.ErrorIs(t, err, chat.ErrUnauthenticated)
	assert.Zero(t, e.Registry().SessionCount())
}

func TestEngine_PrivateRoomIsSilent(t *testing.T) {
	listener := &fakeListener{}
	store := &fakeStore{}
	e := newTestEngine(WithPresenceListener(listener), WithMessageStore(store))
	room := chat.PrivateRef("alice_bob")

	alice := connect(t, e, identity("alice"), room)
	bob := connect(t, e, identity("bob"), room)
	alice.conn.expectSilence(t, 50*time.Millisecond)

	bob.conn.send(t, inbound{"message": "psst", "username": "bob", "name": "bob"})
	assert.Equal(t, chat.OutboundFrame{Message: "psst", Username: "bob", Name: "bob"}, alice.conn.next(t))
	assert.Equal(t, "psst", bob.conn.next(t).Message)

	bob.hangup(t)
	alice.conn.expectSilence(t, 50*time.Millisecond)

	assert.Empty(t, listener.all())
	assert.False(t, e.IsOnline("alice"))
	require.Len(t, store.all(), 1)
	assert.Equal(t, room, store.all()[0].Room)
}

func TestEngine_PrivateAndPublicRoomsWithSameSlugAreIsolated(t *testing.T) {
	e := newTestEngine()
	pub := joinPublic(t, e, identity("carol"), "alice_bob")
	priv := connect(t, e, identity("alice"), chat.PrivateRef("alice_bob"))

	priv.conn.send(t, inbound{"message": "secret", "username": "alice", "name": "alice"})
	assert.Equal(t, "secret", priv.conn.next(t).Message)
	pub.conn.expectSilence(t, 50*time.Millisecond)
}

type fakeDirectory struct {
	mu      sync.Mutex
	rooms   map[string]*chat.PrivateRoom
	inserts atomic.Int32
	calls   atomic.Int32
}

func (d *fakeDirectory) EnsurePrivateRoom(_ context.Context, a, b string) (*chat.PrivateRoom, error) {
	d.calls.Add(1)
	time.Sleep(20 * time.Millisecond)

	slug := chat.PrivateSlug(a, b)
	d.mu.Lock()
	defer d.mu.Unlock()
	if room, ok := d.rooms[slug]; ok {
		return room, nil
	}
	d.inserts.Add(1)
	room := &chat.PrivateRoom{Slug: slug, UserA: a, UserB: b, CreatedAt: time.Now()}
	d.rooms[slug] = room
	return room, nil
}

func TestEngine_ResolvePrivateConcurrentFirstContact(t *testing.T) {
	dir := &fakeDirectory{rooms: make(map[string]*chat.PrivateRoom)}
	e := newTestEngine(WithDirectory(dir))

	start := make(chan struct{})
	results := make([]*chat.PrivateRoom, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		wg.Add(1)
		go func(i int, a, b string) {
			defer wg.Done()
			<-start
			results[i], errs[i] = e.ResolvePrivate(context.Background(), a, b)
		}(i, pair[0], pair[1])
	}
	close(start)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, "alice_bob", results[0].Slug)
	assert.Equal(t, "alice_bob", results[1].Slug)
	assert.Equal(t, "alice", results[0].UserA)
	assert.Equal(t, "bob", results[0].UserB)
	assert.Equal(t, int32(1), dir.inserts.Load())

	room := chat.PrivateRef(results[0].Slug)
	connect(t, e, identity("alice"), room)
	connect(t, e, identity("bob"), room)
	assert.Equal(t, 2, e.Registry().MemberCount(room.GroupKey()))
}

func TestEngine_ResolvePrivateErrors(t *testing.T) {
	e := newTestEngine()

	_, err := e.ResolvePrivate(context.Background(), "alice", "alice")
	assert.ErrorIs(t, err, chat.ErrSelfChat)

	_, err = e.ResolvePrivate(context.Background(), "alice", "bob")
	assert.ErrorIs(t, err, errNoDirectory)
}

func TestEngine_Shutdown(t *testing.T) {
	e := newTestEngine()
	joinPublic(t, e, identity("alice"), "general")
	joinPublic(t, e, identity("bob"), "random")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.Shutdown(ctx))
	assert.Zero(t, e.Registry().SessionCount())
	assert.Zero(t, e.Presence().OnlineCount())

	err := e.Serve(context.Background(), newFakeConn(), identity("carol"), chat.PublicRef("general"))
	assert.ErrorIs(t, err, chat.ErrConnection)
}
