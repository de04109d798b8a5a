package chat

import (
	"errors"
	"fmt"
)

// Error taxonomy of the messaging path.
var (
	// ErrClientProtocol marks a malformed inbound frame. The frame is dropped,
	// the connection stays open.
	ErrClientProtocol = errors.New("client protocol error")
	// ErrNotFound marks a referenced room or user that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStore marks a persistence failure.
	ErrStore = errors.New("store error")
	// ErrConnection marks a socket-level failure.
	ErrConnection = errors.New("connection error")
	// ErrForbidden marks an identity that may not use the room.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated marks an operation that needs an identity.
	ErrUnauthenticated = errors.New("authentication required")
)

// Validation errors.
var (
	ErrUsernameEmpty   = errors.New("username cannot be empty")
	ErrUsernameTooLong = errors.New("username exceeds maximum length")
	ErrUsernameInvalid = errors.New("username can only contain letters and numbers")
	ErrRoomNameEmpty   = errors.New("room name cannot be empty")
	ErrRoomNameTooLong = errors.New("room name exceeds maximum length")
	ErrRoomNameInvalid = errors.New("room name has no usable characters")
	ErrRoomExists      = errors.New("room already exists")
	ErrSelfChat        = errors.New("cannot open a private chat with yourself")
)

// ProtocolError describes why an inbound frame was rejected.
type ProtocolError struct {
	Field  string
	Reason string
}

func (e *ProtocolError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("client protocol error: %s", e.Reason)
	}
	return fmt.Sprintf("client protocol error: %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrClientProtocol.
func (e *ProtocolError) Unwrap() error {
	return ErrClientProtocol
}

func missingField(field string) error {
	return &ProtocolError{Field: field, Reason: "required"}
}
