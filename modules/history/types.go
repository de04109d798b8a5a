package history

import "github.com/example/realtime-chat/domain/chat"

// PersistRequest is the request for storing a message.
type PersistRequest struct {
	RoomKind chat.RoomKind `json:"room_kind"`
	RoomSlug string        `json:"room_slug"`
	Sender   string        `json:"sender"`
	Content  string        `json:"content"`
}

// PersistResponse returns the stored message.
type PersistResponse struct {
	Message chat.Message `json:"message"`
}

// HistoryRequest asks for the latest messages of a room.
type HistoryRequest struct {
	RoomKind chat.RoomKind `json:"room_kind"`
	RoomSlug string        `json:"room_slug"`
	Limit    int           `json:"limit"`
}

// HistoryResponse contains messages in chronological order.
type HistoryResponse struct {
	Messages []chat.Message `json:"messages"`
	Total    int            `json:"total"`
}
