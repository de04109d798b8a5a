package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// PresenceChangedEvent is emitted when a user goes online or offline.
// It fires on transitions only: the first session of a user brings it online,
// the last one to close takes it offline.
type PresenceChangedEvent struct {
	Username  string    `json:"username"`
	Online    bool      `json:"online"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomCreatedEvent is emitted when a public room is created.
type RoomCreatedEvent struct {
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomDeletedEvent is emitted when a public room is deleted by its creator.
type RoomDeletedEvent struct {
	Slug      string    `json:"slug"`
	DeletedBy string    `json:"deleted_by"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	PresenceChangedV1 = helper.EventDefinition[PresenceChangedEvent](
		"realtime",
		"PresenceChanged",
		"v1",
	)

	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"directory",
		"RoomCreated",
		"v1",
	)

	RoomDeletedV1 = helper.EventDefinition[RoomDeletedEvent](
		"directory",
		"RoomDeleted",
		"v1",
	)
)
