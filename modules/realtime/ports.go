package realtime

import (
	"context"
	"errors"

	"github.com/example/realtime-chat/domain/chat"
)

// MessageStore persists chat messages.
type MessageStore interface {
	Persist(ctx context.Context, room chat.RoomRef, sender, text string) error
}

// Directory resolves private rooms for a pair of users.
type Directory interface {
	// EnsurePrivateRoom returns the room for the ordered pair (userA <= userB),
	// creating it if it does not exist yet.
	EnsurePrivateRoom(ctx context.Context, userA, userB string) (*chat.PrivateRoom, error)
}

// PresenceListener is told about online/offline transitions.
type PresenceListener interface {
	PresenceChanged(username string, online bool)
}

var errNoDirectory = errors.New("realtime: directory not configured")

type nopStore struct{}

func (nopStore) Persist(context.Context, chat.RoomRef, string, string) error { return nil }

type nopListener struct{}

func (nopListener) PresenceChanged(string, bool) {}
