package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/realtime-chat/domain/chat"
	"github.com/example/realtime-chat/modules/auth"
	"github.com/example/realtime-chat/modules/realtime"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
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

// mockIdentity accepts the tokens it knows; "broken" simulates an
// unreachable auth module.
type mockIdentity struct {
	tokens map[string]*chat.Identity
}

func (m *mockIdentity) Authenticate(_ context.Context, token string) (*chat.Identity, error) {
	if token == "broken" {
		return nil, io.ErrUnexpectedEOF
	}
	if id, ok := m.tokens[token]; ok {
		return id, nil
	}
	return nil, chat.ErrUnauthenticated
}

// mockDirectory is an in-memory directory.DirectoryPort.
type mockDirectory struct {
	mu      sync.Mutex
	rooms   map[string]chat.Room
	private map[string]chat.PrivateRoom
	users   map[string]chat.User
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		rooms:   make(map[string]chat.Room),
		private: make(map[string]chat.PrivateRoom),
		users:   make(map[string]chat.User),
	}
}

func (d *mockDirectory) CreateRoom(_ context.Context, name, createdBy string) (*chat.Room, error) {
	slug, err := chat.ValidateRoomName(name)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rooms[slug]; ok {
		return nil, chat.ErrRoomExists
	}
	room := chat.Room{Slug: slug, Name: name, CreatedBy: createdBy, CreatedAt: time.Now()}
	d.rooms[slug] = room
	return &room, nil
}

func (d *mockDirectory) GetRoom(_ context.Context, slug string) (*chat.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[slug]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return &room, nil
}

func (d *mockDirectory) ListRooms(_ context.Context) ([]chat.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rooms := make([]chat.Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		rooms = append(rooms, r)
	}
	return rooms, nil
}

func (d *mockDirectory) EnsurePrivateRoom(_ context.Context, a, b string) (*chat.PrivateRoom, error) {
	lo, hi := chat.SortedPair(a, b)
	slug := chat.PrivateSlug(lo, hi)
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.private[slug]
	if !ok {
		room = chat.PrivateRoom{Slug: slug, UserA: lo, UserB: hi, CreatedAt: time.Now()}
		d.private[slug] = room
	}
	return &room, nil
}

func (d *mockDirectory) GetPrivateRoom(_ context.Context, slug string) (*chat.PrivateRoom, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.private[slug]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return &room, nil
}

func (d *mockDirectory) UpsertUser(_ context.Context, username, displayName string) (*chat.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	user := chat.User{Username: username, DisplayName: displayName}
	d.users[username] = user
	return &user, nil
}

func (d *mockDirectory) GetUser(_ context.Context, username string) (*chat.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[username]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return &user, nil
}

func (d *mockDirectory) DeleteRoom(_ context.Context, slug, requestedBy string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[slug]
	if !ok {
		return chat.ErrNotFound
	}
	if room.CreatedBy != requestedBy {
		return chat.ErrForbidden
	}
	delete(d.rooms, slug)
	return nil
}

func (d *mockDirectory) SearchUsers(_ context.Context, query string, _ int) ([]chat.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	query = strings.ToLower(query)
	var users []chat.User
	for _, u := range d.users {
		if strings.Contains(strings.ToLower(u.Username), query) ||
			strings.Contains(strings.ToLower(u.DisplayName), query) {
			users = append(users, u)
		}
	}
	return users, nil
}

// mockAccounts is an in-memory auth.AccountPort with plain-text passwords.
type mockAccounts struct {
	mu        sync.Mutex
	passwords map[string]string
}

func (a *mockAccounts) Register(_ context.Context, username, password, displayName string) (*auth.Token, error) {
	if err := chat.ValidateUsername(username); err != nil {
		return nil, &auth.ValidationError{Reason: err.Error()}
	}
	if len(password) < 8 {
		return nil, &auth.ValidationError{Reason: auth.ErrWeakPassword.Error()}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.passwords[username]; ok {
		return nil, auth.ErrAccountExists
	}
	a.passwords[username] = password
	return mockToken(username, displayName), nil
}

func (a *mockAccounts) Login(_ context.Context, username, password string) (*auth.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if stored, ok := a.passwords[username]; !ok || stored != password {
		return nil, auth.ErrInvalidCredentials
	}
	return mockToken(username, ""), nil
}

func mockToken(username, displayName string) *auth.Token {
	return &auth.Token{
		AccessToken: "token-for-" + username,
		TokenType:   "Bearer",
		ExpiresIn:   3600,
		Identity:    &chat.Identity{UserID: "id-" + username, Username: username, DisplayName: displayName},
	}
}

// mockStore is an in-memory history.StorePort.
type mockStore struct {
	mu        sync.Mutex
	messages  map[chat.RoomRef][]chat.Message
	lastLimit int
}

func newMockStore() *mockStore {
	return &mockStore{messages: make(map[chat.RoomRef][]chat.Message)}
}

func (s *mockStore) Persist(_ context.Context, room chat.RoomRef, sender, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[room] = append(s.messages[room], chat.Message{
		ID:        sender + "-" + text,
		RoomSlug:  room.Slug,
		RoomKind:  room.Kind,
		Sender:    sender,
		Content:   text,
		Timestamp: time.Now(),
	})
	return nil
}

func (s *mockStore) History(_ context.Context, room chat.RoomRef, limit int) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit
	msgs := s.messages[room]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]chat.Message(nil), msgs...), nil
}

type mockPresence struct {
	online map[string]bool
}

func (p *mockPresence) IsOnline(_ context.Context, username string) (bool, error) {
	return p.online[username], nil
}

type testEnv struct {
	module    *APIModule
	app       *fiber.App
	directory *mockDirectory
	store     *mockStore
	engine    *realtime.Engine
}

// newTestEnv builds an APIModule over mock ports and a real engine. Tokens
// "alice-token", "bob-token" and "carol-token" authenticate those users.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := newMockDirectory()
	store := newMockStore()
	engine := realtime.NewEngine(realtime.EngineConfig{}, &mockLogger{},
		realtime.WithDirectory(dir),
		realtime.WithMessageStore(store),
	)

	m := NewModule(Config{Port: 0}, &mockLogger{})
	m.identity = &mockIdentity{tokens: map[string]*chat.Identity{
		"alice-token": {UserID: "1", Username: "alice", DisplayName: "Alice"},
		"bob-token":   {UserID: "2", Username: "bob", DisplayName: "Bob"},
		"carol-token": {UserID: "3", Username: "carol"},
	}}
	m.accounts = &mockAccounts{passwords: make(map[string]string)}
	m.directory = dir
	m.history = store
	m.SetEngine(engine)
	m.app = m.newApp()

	t.Cleanup(func() {
		m.cancel()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = engine.Shutdown(ctx)
	})

	return &testEnv{module: m, app: m.app, directory: dir, store: store, engine: engine}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
