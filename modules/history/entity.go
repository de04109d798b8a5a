package history

import (
	"time"

	"github.com/example/realtime-chat/domain/chat"
)

// messageRecord is the persisted form of a chat message.
// IDs are UUIDv7, so they sort in insertion order.
type messageRecord struct {
	ID        string        `gorm:"primarykey;size:36"`
	RoomKind  chat.RoomKind `gorm:"size:16;not null;index:idx_messages_room,priority:1"`
	RoomSlug  string        `gorm:"size:255;not null;index:idx_messages_room,priority:2"`
	Sender    string        `gorm:"size:50;not null"`
	Content   string        `gorm:"type:text;not null"`
	Timestamp time.Time     `gorm:"not null;index:idx_messages_room,priority:3"`
}

// TableName returns the table name for messageRecord.
func (messageRecord) TableName() string {
	return "messages"
}

func (r *messageRecord) toDomain() chat.Message {
	return chat.Message{
		ID:        r.ID,
		RoomSlug:  r.RoomSlug,
		RoomKind:  r.RoomKind,
		Sender:    r.Sender,
		Content:   r.Content,
		Timestamp: r.Timestamp,
	}
}
