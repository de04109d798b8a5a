package api

import (
	"time"

	"github.com/example/realtime-chat/domain/chat"
)

// CreateRoomRequest is the API request to create a room.
type CreateRoomRequest struct {
	Name string `json:"name"`
}

// RoomResponse is the API response for a room.
type RoomResponse struct {
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Members   int       `json:"members"`
}

// RoomListResponse is the API response for listing rooms.
type RoomListResponse struct {
	Rooms []RoomResponse `json:"rooms"`
	Total int            `json:"total"`
}

// MessageResponse is the API response for a message.
type MessageResponse struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryResponse is the API response for message history.
type HistoryResponse struct {
	Room     string            `json:"room"`
	Kind     chat.RoomKind     `json:"kind"`
	Messages []MessageResponse `json:"messages"`
}

// PrivateRoomResponse is the API response for a resolved private room.
type PrivateRoomResponse struct {
	Slug         string   `json:"slug"`
	Peer         string   `json:"peer"`
	Participants []string `json:"participants"`
	WebSocket    string   `json:"websocket"`
}

// UserStatusResponse is the API response for a user's presence.
type UserStatusResponse struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Online      bool   `json:"online"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

func toRoomResponse(room *chat.Room, members int) RoomResponse {
	return RoomResponse{
		Slug:      room.Slug,
		Name:      room.Name,
		CreatedBy: room.CreatedBy,
		CreatedAt: room.CreatedAt,
		Members:   members,
	}
}

func toHistoryResponse(ref chat.RoomRef, messages []chat.Message) HistoryResponse {
	resp := HistoryResponse{
		Room:     ref.Slug,
		Kind:     ref.Kind,
		Messages: make([]MessageResponse, 0, len(messages)),
	}
	for _, msg := range messages {
		resp.Messages = append(resp.Messages, MessageResponse{
			ID:        msg.ID,
			Sender:    msg.Sender,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		})
	}
	return resp
}

// RegisterRequest is the API request to create an account.
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the API request to log in.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is the API response carrying an access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
}

// UserListResponse is the API response for a user search.
type UserListResponse struct {
	Users []UserStatusResponse `json:"users"`
	Total int                  `json:"total"`
}
