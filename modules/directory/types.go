package directory

import "github.com/example/realtime-chat/domain/chat"

// CreateRoomRequest is the request for creating a public room.
type CreateRoomRequest struct {
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
}

// CreateRoomResponse is the response after creating a room.
// Exists is set instead of an error when the name is taken.
type CreateRoomResponse struct {
	Room   *chat.Room `json:"room,omitempty"`
	Exists bool       `json:"exists"`
}

// GetRoomRequest is the request for getting a room.
type GetRoomRequest struct {
	Slug string `json:"slug"`
}

// GetRoomResponse is the response of get-room.
type GetRoomResponse struct {
	Room  *chat.Room `json:"room,omitempty"`
	Found bool       `json:"found"`
}

// ListRoomsRequest is the request for listing rooms.
type ListRoomsRequest struct{}

// ListRoomsResponse contains all public rooms.
type ListRoomsResponse struct {
	Rooms []chat.Room `json:"rooms"`
	Total int         `json:"total"`
}

// EnsurePrivateRoomRequest asks for the room of a user pair.
type EnsurePrivateRoomRequest struct {
	UserA string `json:"user_a"`
	UserB string `json:"user_b"`
}

// GetPrivateRoomRequest is the request for getting a private room.
type GetPrivateRoomRequest struct {
	Slug string `json:"slug"`
}

// PrivateRoomResponse is the response of the private room services.
type PrivateRoomResponse struct {
	Room    *chat.PrivateRoom `json:"room,omitempty"`
	Found   bool              `json:"found"`
	Created bool              `json:"created"`
}

// UpsertUserRequest creates or refreshes a user.
type UpsertUserRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// GetUserRequest is the request for getting a user.
type GetUserRequest struct {
	Username string `json:"username"`
}

// UserResponse is the response of the user services.
type UserResponse struct {
	User  *chat.User `json:"user,omitempty"`
	Found bool       `json:"found"`
}

// DeleteRoomRequest is the request for deleting a public room.
type DeleteRoomRequest struct {
	Slug        string `json:"slug"`
	RequestedBy string `json:"requested_by"`
}

// DeleteRoomResponse is the response of delete-room. Found and Forbidden
// are set instead of errors.
type DeleteRoomResponse struct {
	Deleted   bool `json:"deleted"`
	Found     bool `json:"found"`
	Forbidden bool `json:"forbidden"`
}

// SearchUsersRequest is the request for searching users.
type SearchUsersRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchUsersResponse is the response of search-users.
type SearchUsersResponse struct {
	Users []chat.User `json:"users"`
	Total int         `json:"total"`
}
