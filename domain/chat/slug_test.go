package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"general", "general"},
		{"General Chat", "general-chat"},
		{"  Go   Gophers  ", "go-gophers"},
		{"Hello, World!", "hello-world"},
		{"a - b", "a-b"},
		{"Café Crème", "cafe-creme"},
		{"snake_case_room", "snake_case_room"},
		{"_-edge-_", "edge"},
		{"日本語", ""},
		{"Room #42", "room-42"},
		{"--", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestPrivateSlug(t *testing.T) {
	assert.Equal(t, "alice_bob", PrivateSlug("alice", "bob"))
	assert.Equal(t, "alice_bob", PrivateSlug("bob", "alice"))

	lo, hi := SortedPair("zed", "amy")
	assert.Equal(t, "amy", lo)
	assert.Equal(t, "zed", hi)
}

func TestRoomRef_GroupKey(t *testing.T) {
	assert.Equal(t, "chat_general", PublicRef("general").GroupKey())
	assert.Equal(t, "private_chat_alice_bob", PrivateRef("alice_bob").GroupKey())
	assert.True(t, PrivateRef("x").IsPrivate())
	assert.False(t, PublicRef("x").IsPrivate())
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("alice42"))
	assert.ErrorIs(t, ValidateUsername(""), ErrUsernameEmpty)
	assert.ErrorIs(t, ValidateUsername("has space"), ErrUsernameInvalid)
	assert.ErrorIs(t, ValidateUsername("under_score"), ErrUsernameInvalid)

	long := make([]byte, MaxUsernameLength+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.ErrorIs(t, ValidateUsername(string(long)), ErrUsernameTooLong)
}

func TestValidateRoomName(t *testing.T) {
	slug, err := ValidateRoomName("  Go Gophers ")
	assert.NoError(t, err)
	assert.Equal(t, "go-gophers", slug)

	_, err = ValidateRoomName("   ")
	assert.ErrorIs(t, err, ErrRoomNameEmpty)

	_, err = ValidateRoomName("!!!")
	assert.ErrorIs(t, err, ErrRoomNameInvalid)
}

func TestIdentity_Name(t *testing.T) {
	var anon *Identity
	assert.Equal(t, "", anon.Name())
	assert.Equal(t, "alice", (&Identity{Username: "alice"}).Name())
	assert.Equal(t, "Alice", (&Identity{Username: "alice", DisplayName: "Alice"}).Name())
}

func TestPrivateRoom_Participants(t *testing.T) {
	room := &PrivateRoom{Slug: "alice_bob", UserA: "alice", UserB: "bob"}
	assert.True(t, room.HasParticipant("alice"))
	assert.True(t, room.HasParticipant("bob"))
	assert.False(t, room.HasParticipant("carol"))
	assert.Equal(t, "bob", room.Peer("alice"))
	assert.Equal(t, "alice", room.Peer("bob"))
}
