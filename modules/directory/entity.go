package directory

import (
	"time"

	"github.com/example/realtime-chat/domain/chat"
)

// roomRecord is the persisted form of a public room.
type roomRecord struct {
	Slug      string    `gorm:"primarykey;size:255"`
	Name      string    `gorm:"size:255;not null;uniqueIndex"`
	CreatedBy string    `gorm:"size:50"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName returns the table name for roomRecord.
func (roomRecord) TableName() string {
	return "rooms"
}

func (r *roomRecord) toDomain() chat.Room {
	return chat.Room{Slug: r.Slug, Name: r.Name, CreatedBy: r.CreatedBy, CreatedAt: r.CreatedAt}
}

// privateRoomRecord is the persisted form of a one-to-one room.
// The pair (user_a, user_b) is stored sorted and is unique.
type privateRoomRecord struct {
	Slug      string `gorm:"primarykey;size:101"`
	UserA     string `gorm:"size:50;not null;uniqueIndex:idx_private_pair"`
	UserB     string `gorm:"size:50;not null;uniqueIndex:idx_private_pair"`
	CreatedAt time.Time
}

// TableName returns the table name for privateRoomRecord.
func (privateRoomRecord) TableName() string {
	return "private_rooms"
}

func (r *privateRoomRecord) toDomain() chat.PrivateRoom {
	return chat.PrivateRoom{Slug: r.Slug, UserA: r.UserA, UserB: r.UserB, CreatedAt: r.CreatedAt}
}

// userRecord is the directory entry of a user.
type userRecord struct {
	Username    string `gorm:"primarykey;size:50"`
	DisplayName string `gorm:"size:150"`
	IsOnline    bool   `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for userRecord.
func (userRecord) TableName() string {
	return "users"
}

func (r *userRecord) toDomain() chat.User {
	return chat.User{Username: r.Username, DisplayName: r.DisplayName, Online: r.IsOnline}
}
