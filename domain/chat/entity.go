package chat

import "time"

// RoomKind distinguishes open rooms from one-to-one rooms.
type RoomKind string

const (
	RoomKindPublic  RoomKind = "public"
	RoomKindPrivate RoomKind = "private"
)

// Room represents a public chat room.
type Room struct {
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// PrivateRoom is the single room shared by an unordered pair of users.
// UserA is always the lexicographically smaller username.
type PrivateRoom struct {
	Slug      string    `json:"slug"`
	UserA     string    `json:"user_a"`
	UserB     string    `json:"user_b"`
	CreatedAt time.Time `json:"created_at"`
}

// HasParticipant reports whether username is one of the pair.
func (r *PrivateRoom) HasParticipant(username string) bool {
	return r.UserA == username || r.UserB == username
}

// Peer returns the other participant.
func (r *PrivateRoom) Peer(username string) string {
	if r.UserA == username {
		return r.UserB
	}
	return r.UserA
}

// Message represents a persisted chat message.
type Message struct {
	ID        string    `json:"id"`
	RoomSlug  string    `json:"room_slug"`
	RoomKind  RoomKind  `json:"room_kind"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// User is a directory entry.
type User struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Online      bool   `json:"online"`
}

// Identity is the authenticated principal behind a connection.
// A nil *Identity means the connection is anonymous.
type Identity struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// Name returns the display name, falling back to the username.
func (i *Identity) Name() string {
	if i == nil {
		return ""
	}
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Username
}

// RoomRef addresses a room of either kind.
type RoomRef struct {
	Kind RoomKind `json:"kind"`
	Slug string   `json:"slug"`
}

// PublicRef returns a reference to a public room.
func PublicRef(slug string) RoomRef {
	return RoomRef{Kind: RoomKindPublic, Slug: slug}
}

// PrivateRef returns a reference to a private room.
func PrivateRef(slug string) RoomRef {
	return RoomRef{Kind: RoomKindPrivate, Slug: slug}
}

// GroupKey is the key under which members of the room are tracked.
func (r RoomRef) GroupKey() string {
	if r.Kind == RoomKindPrivate {
		return "private_chat_" + r.Slug
	}
	return "chat_" + r.Slug
}

// IsPrivate reports whether the reference points at a private room.
func (r RoomRef) IsPrivate() bool {
	return r.Kind == RoomKindPrivate
}

func (r RoomRef) String() string {
	return r.GroupKey()
}
