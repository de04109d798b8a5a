package api

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/example/realtime-chat/domain/chat"
	"github.com/example/realtime-chat/modules/auth"
	"github.com/example/realtime-chat/modules/history"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Locals keys shared between the pre-upgrade checks and the socket handler.
const (
	localIdentity = "identity"
	localRoom     = "room"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)

	// WebSocket endpoints. Everything that can reject the client runs before
	// the upgrade so the refusal is a plain HTTP status.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat/:room", m.identify, m.authorizePublic, websocket.New(m.handleWebSocket))
	app.Get("/ws/private/:slug", m.identify, m.authorizePrivate, websocket.New(m.handleWebSocket))

	api := app.Group("/api/v1", m.identify)

	api.Post("/auth/register", m.register)
	api.Post("/auth/login", m.login)

	api.Get("/rooms", m.listRooms)
	api.Post("/rooms", m.requireIdentity, m.createRoom)
	api.Get("/rooms/:slug", m.getRoom)
	api.Delete("/rooms/:slug", m.requireIdentity, m.deleteRoom)
	api.Get("/rooms/:slug/history", m.getHistory)

	api.Post("/private/:username", m.requireIdentity, m.openPrivate)
	api.Get("/private/:slug/history", m.requireIdentity, m.getPrivateHistory)

	api.Get("/users", m.searchUsers)
	api.Get("/users/:username/status", m.userStatus)
}

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(ErrorResponse{Error: code, Message: message})
}

// bearerToken reads the access token from the token query parameter or the
// Authorization header. Browsers cannot set headers on WebSocket handshakes,
// hence the query parameter.
func bearerToken(c *fiber.Ctx) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// identify resolves the caller's identity when a token is presented.
// Requests without a token continue anonymously; a bad token is rejected.
func (m *APIModule) identify(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return c.Next()
	}

	identity, err := m.identity.Authenticate(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, chat.ErrUnauthenticated) {
			return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "Invalid or expired token")
		}
		m.logger.Error("Token validation failed", "error", err)
		return errorJSON(c, fiber.StatusServiceUnavailable, "auth_unavailable", "Authentication unavailable")
	}

	c.Locals(localIdentity, identity)
	m.rememberUser(c.UserContext(), identity)
	return c.Next()
}

func (m *APIModule) requireIdentity(c *fiber.Ctx) error {
	if identityFrom(c) == nil {
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}
	return c.Next()
}

func identityFrom(c *fiber.Ctx) *chat.Identity {
	identity, _ := c.Locals(localIdentity).(*chat.Identity)
	return identity
}

// rememberUser records an authenticated user in the directory once per
// process so private chats can find it.
func (m *APIModule) rememberUser(ctx context.Context, identity *chat.Identity) {
	if _, loaded := m.knownUsers.LoadOrStore(identity.Username, struct{}{}); loaded {
		return
	}
	if _, err := m.directory.UpsertUser(ctx, identity.Username, identity.DisplayName); err != nil {
		m.knownUsers.Delete(identity.Username)
		m.logger.Warn("Failed to record user", "username", identity.Username, "error", err)
	}
}

// lookupRoom finds a public room, serving from the known-rooms cache first.
func (m *APIModule) lookupRoom(ctx context.Context, slug string) (*chat.Room, error) {
	if v, ok := m.rooms.Load(slug); ok {
		room := v.(chat.Room)
		return &room, nil
	}
	room, err := m.directory.GetRoom(ctx, slug)
	if err != nil {
		return nil, err
	}
	m.rooms.Store(slug, *room)
	return room, nil
}

func (m *APIModule) members(ref chat.RoomRef) int {
	return m.engine.Registry().MemberCount(ref.GroupKey())
}

func toTokenResponse(token *auth.Token) TokenResponse {
	return TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   token.ExpiresIn,
		Username:    token.Identity.Username,
		DisplayName: token.Identity.DisplayName,
	}
}

// register handles POST /api/v1/auth/register.
func (m *APIModule) register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}

	token, err := m.accounts.Register(c.UserContext(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		var verr *auth.ValidationError
		switch {
		case errors.As(err, &verr):
			return errorJSON(c, fiber.StatusBadRequest, "validation_error", verr.Reason)
		case errors.Is(err, auth.ErrAccountExists):
			return errorJSON(c, fiber.StatusConflict, "conflict", "Username already exists")
		}
		m.logger.Error("Registration failed", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_error", "An internal error occurred")
	}

	m.rememberUser(c.UserContext(), token.Identity)
	return c.Status(fiber.StatusCreated).JSON(toTokenResponse(token))
}

// login handles POST /api/v1/auth/login.
func (m *APIModule) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_request", "Username and password are required")
	}

	token, err := m.accounts.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "Invalid username or password")
		}
		m.logger.Error("Login failed", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_error", "An internal error occurred")
	}

	m.rememberUser(c.UserContext(), token.Identity)
	return c.JSON(toTokenResponse(token))
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	delivered, failed := m.engine.Broadcaster().Stats()
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":       "api",
			"sessions":     m.engine.Registry().SessionCount(),
			"active_rooms": m.engine.Registry().RoomCount(),
			"online_users": m.engine.Presence().OnlineCount(),
			"delivered":    delivered,
			"failed":       failed,
		},
	})
}

// listRooms handles GET /api/v1/rooms.
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	rooms, err := m.directory.ListRooms(c.UserContext())
	if err != nil {
		m.logger.Error("Failed to list rooms", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "list_failed", "Failed to list rooms")
	}

	response := RoomListResponse{
		Rooms: make([]RoomResponse, 0, len(rooms)),
		Total: len(rooms),
	}
	for i := range rooms {
		m.rooms.Store(rooms[i].Slug, rooms[i])
		response.Rooms = append(response.Rooms,
			toRoomResponse(&rooms[i], m.members(chat.PublicRef(rooms[i].Slug))))
	}
	return c.JSON(response)
}

// createRoom handles POST /api/v1/rooms.
func (m *APIModule) createRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if _, err := chat.ValidateRoomName(req.Name); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}

	identity := identityFrom(c)
	room, err := m.directory.CreateRoom(c.UserContext(), req.Name, identity.Username)
	if err != nil {
		if errors.Is(err, chat.ErrRoomExists) {
			return errorJSON(c, fiber.StatusConflict, "room_exists", "A room with this name already exists")
		}
		m.logger.Error("Failed to create room", "name", req.Name, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "create_failed", "Failed to create room")
	}

	m.rooms.Store(room.Slug, *room)
	return c.Status(fiber.StatusCreated).JSON(toRoomResponse(room, 0))
}

// getRoom handles GET /api/v1/rooms/:slug.
func (m *APIModule) getRoom(c *fiber.Ctx) error {
	room, err := m.lookupRoom(c.UserContext(), c.Params("slug"))
	if err != nil {
		return m.roomLookupError(c, err)
	}
	return c.JSON(toRoomResponse(room, m.members(chat.PublicRef(room.Slug))))
}

// deleteRoom handles DELETE /api/v1/rooms/:slug. Only the creator may delete
// a room; connected members stay connected until they leave.
func (m *APIModule) deleteRoom(c *fiber.Ctx) error {
	slug := c.Params("slug")
	err := m.directory.DeleteRoom(c.UserContext(), slug, identityFrom(c).Username)
	if err != nil {
		if errors.Is(err, chat.ErrForbidden) {
			return errorJSON(c, fiber.StatusForbidden, "forbidden", "Only the creator can delete this room")
		}
		return m.roomLookupError(c, err)
	}

	m.rooms.Delete(slug)
	return c.SendStatus(fiber.StatusNoContent)
}

func (m *APIModule) roomLookupError(c *fiber.Ctx, err error) error {
	if errors.Is(err, chat.ErrNotFound) {
		return errorJSON(c, fiber.StatusNotFound, "not_found", "Room not found")
	}
	m.logger.Error("Room lookup failed", "error", err)
	return errorJSON(c, fiber.StatusInternalServerError, "lookup_failed", "Failed to look up room")
}

func historyLimit(c *fiber.Ctx) int {
	limit := history.DefaultLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= history.MaxLimit {
			limit = parsed
		}
	}
	return limit
}

// getHistory handles GET /api/v1/rooms/:slug/history.
func (m *APIModule) getHistory(c *fiber.Ctx) error {
	room, err := m.lookupRoom(c.UserContext(), c.Params("slug"))
	if err != nil {
		return m.roomLookupError(c, err)
	}

	ref := chat.PublicRef(room.Slug)
	messages, err := m.history.History(c.UserContext(), ref, historyLimit(c))
	if err != nil {
		m.logger.Error("Failed to load history", "room", ref.String(), "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "history_failed", "Failed to load history")
	}
	return c.JSON(toHistoryResponse(ref, messages))
}

// openPrivate handles POST /api/v1/private/:username. It returns the private
// room shared with the named user, creating it on first contact.
func (m *APIModule) openPrivate(c *fiber.Ctx) error {
	identity := identityFrom(c)
	peer := c.Params("username")

	if err := chat.ValidateUsername(peer); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}
	if peer == identity.Username {
		return errorJSON(c, fiber.StatusBadRequest, "validation_error", chat.ErrSelfChat.Error())
	}
	if _, err := m.directory.GetUser(c.UserContext(), peer); err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		m.logger.Error("User lookup failed", "username", peer, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "lookup_failed", "Failed to look up user")
	}

	room, err := m.engine.ResolvePrivate(c.UserContext(), identity.Username, peer)
	if err != nil {
		m.logger.Error("Failed to open private room", "peer", peer, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "private_failed", "Failed to open private room")
	}

	return c.JSON(PrivateRoomResponse{
		Slug:         room.Slug,
		Peer:         room.Peer(identity.Username),
		Participants: []string{room.UserA, room.UserB},
		WebSocket:    "/ws/private/" + room.Slug,
	})
}

// participantRoom loads a private room and checks the caller belongs to it.
func (m *APIModule) participantRoom(c *fiber.Ctx, slug string) (*chat.PrivateRoom, error) {
	room, err := m.directory.GetPrivateRoom(c.UserContext(), slug)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return nil, errorJSON(c, fiber.StatusNotFound, "not_found", "Room not found")
		}
		m.logger.Error("Private room lookup failed", "slug", slug, "error", err)
		return nil, errorJSON(c, fiber.StatusInternalServerError, "lookup_failed", "Failed to look up room")
	}
	if !room.HasParticipant(identityFrom(c).Username) {
		return nil, errorJSON(c, fiber.StatusForbidden, "forbidden", "Not a participant of this room")
	}
	return room, nil
}

// getPrivateHistory handles GET /api/v1/private/:slug/history.
func (m *APIModule) getPrivateHistory(c *fiber.Ctx) error {
	room, err := m.participantRoom(c, c.Params("slug"))
	if room == nil {
		return err
	}

	ref := chat.PrivateRef(room.Slug)
	messages, err := m.history.History(c.UserContext(), ref, historyLimit(c))
	if err != nil {
		m.logger.Error("Failed to load history", "room", ref.String(), "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "history_failed", "Failed to load history")
	}
	return c.JSON(toHistoryResponse(ref, messages))
}

// searchUsers handles GET /api/v1/users?q=.
func (m *APIModule) searchUsers(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return errorJSON(c, fiber.StatusBadRequest, "validation_error", "Query parameter q is required")
	}

	users, err := m.directory.SearchUsers(c.UserContext(), query, 0)
	if err != nil {
		m.logger.Error("User search failed", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "search_failed", "Failed to search users")
	}

	resp := UserListResponse{
		Users: make([]UserStatusResponse, 0, len(users)),
		Total: len(users),
	}
	for _, u := range users {
		resp.Users = append(resp.Users, UserStatusResponse{
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Online:      m.engine.IsOnline(u.Username),
		})
	}
	return c.JSON(resp)
}

// userStatus handles GET /api/v1/users/:username/status. Local sessions are
// checked first, then the shared presence mirror when one is configured.
func (m *APIModule) userStatus(c *fiber.Ctx) error {
	username := c.Params("username")
	online := m.engine.IsOnline(username)
	if !online && m.presence != nil {
		remote, err := m.presence.IsOnline(c.UserContext(), username)
		if err != nil {
			m.logger.Warn("Presence lookup failed", "username", username, "error", err)
		}
		online = remote
	}

	resp := UserStatusResponse{Username: username, Online: online}
	user, err := m.directory.GetUser(c.UserContext(), username)
	switch {
	case err == nil:
		resp.DisplayName = user.DisplayName
	case errors.Is(err, chat.ErrNotFound):
		if !online {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "User not found")
		}
	default:
		m.logger.Warn("User lookup failed", "username", username, "error", err)
	}
	return c.JSON(resp)
}

// authorizePublic resolves the room of /ws/chat/:room. The path carries the
// room name, which is normalized to its slug.
func (m *APIModule) authorizePublic(c *fiber.Ctx) error {
	slug := chat.Slugify(c.Params("room"))
	if slug == "" {
		return errorJSON(c, fiber.StatusNotFound, "not_found", "Room not found")
	}
	room, err := m.lookupRoom(c.UserContext(), slug)
	if err != nil {
		return m.roomLookupError(c, err)
	}
	c.Locals(localRoom, chat.PublicRef(room.Slug))
	return c.Next()
}

// authorizePrivate admits only the two participants to /ws/private/:slug.
func (m *APIModule) authorizePrivate(c *fiber.Ctx) error {
	if identityFrom(c) == nil {
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}
	room, err := m.participantRoom(c, c.Params("slug"))
	if room == nil {
		return err
	}
	c.Locals(localRoom, chat.PrivateRef(room.Slug))
	return c.Next()
}

// handleWebSocket serves an upgraded connection until it closes.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	identity, _ := c.Locals(localIdentity).(*chat.Identity)
	room, ok := c.Locals(localRoom).(chat.RoomRef)
	if !ok {
		_ = c.Close()
		return
	}

	if err := m.engine.Serve(m.ctx, newWSConn(c), identity, room); err != nil {
		m.logger.Warn("WebSocket session ended with error", "room", room.String(), "error", err)
	}
}
