package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/realtime-chat/domain/chat"
	"github.com/example/realtime-chat/events"
	"github.com/go-monolith/mono"
)

const maxSearchResults = 20

// createRoom handles the create-room service request.
func (m *Module) createRoom(ctx context.Context, req CreateRoomRequest, _ *mono.Msg) (CreateRoomResponse, error) {
	room, err := m.repo.CreateRoom(ctx, req.Name, req.CreatedBy)
	if errors.Is(err, chat.ErrRoomExists) {
		return CreateRoomResponse{Exists: true}, nil
	}
	if err != nil {
		return CreateRoomResponse{}, err
	}

	if m.eventBus != nil {
		event := events.RoomCreatedEvent{
			Slug:      room.Slug,
			Name:      room.Name,
			CreatedBy: room.CreatedBy,
			Timestamp: time.Now(),
		}
		if err := events.RoomCreatedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish RoomCreated event", "slug", room.Slug, "error", err)
		}
	}

	m.logger.Info("Room created", "slug", room.Slug, "createdBy", room.CreatedBy)
	return CreateRoomResponse{Room: room}, nil
}

// getRoom handles the get-room service request.
func (m *Module) getRoom(ctx context.Context, req GetRoomRequest, _ *mono.Msg) (GetRoomResponse, error) {
	if req.Slug == "" {
		return GetRoomResponse{}, fmt.Errorf("slug is required")
	}
	room, err := m.repo.FindRoom(ctx, req.Slug)
	if errors.Is(err, chat.ErrNotFound) {
		return GetRoomResponse{}, nil
	}
	if err != nil {
		return GetRoomResponse{}, err
	}
	return GetRoomResponse{Room: room, Found: true}, nil
}

// listRooms handles the list-rooms service request.
func (m *Module) listRooms(ctx context.Context, _ ListRoomsRequest, _ *mono.Msg) (ListRoomsResponse, error) {
	rooms, err := m.repo.ListRooms(ctx)
	if err != nil {
		return ListRoomsResponse{}, err
	}
	return ListRoomsResponse{Rooms: rooms, Total: len(rooms)}, nil
}

// deleteRoom handles the delete-room service request.
func (m *Module) deleteRoom(ctx context.Context, req DeleteRoomRequest, _ *mono.Msg) (DeleteRoomResponse, error) {
	if req.Slug == "" || req.RequestedBy == "" {
		return DeleteRoomResponse{}, fmt.Errorf("slug and requested_by are required")
	}
	err := m.repo.DeleteRoom(ctx, req.Slug, req.RequestedBy)
	switch {
	case errors.Is(err, chat.ErrNotFound):
		return DeleteRoomResponse{}, nil
	case errors.Is(err, chat.ErrForbidden):
		return DeleteRoomResponse{Found: true, Forbidden: true}, nil
	case err != nil:
		return DeleteRoomResponse{}, err
	}

	if m.eventBus != nil {
		event := events.RoomDeletedEvent{
			Slug:      req.Slug,
			DeletedBy: req.RequestedBy,
			Timestamp: time.Now(),
		}
		if err := events.RoomDeletedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish RoomDeleted event", "slug", req.Slug, "error", err)
		}
	}

	m.logger.Info("Room deleted", "slug", req.Slug, "deletedBy", req.RequestedBy)
	return DeleteRoomResponse{Deleted: true, Found: true}, nil
}

// ensurePrivateRoom handles the ensure-private-room service request.
func (m *Module) ensurePrivateRoom(ctx context.Context, req EnsurePrivateRoomRequest, _ *mono.Msg) (PrivateRoomResponse, error) {
	if req.UserA == "" || req.UserB == "" {
		return PrivateRoomResponse{}, fmt.Errorf("user_a and user_b are required")
	}
	room, created, err := m.repo.EnsurePrivateRoom(ctx, req.UserA, req.UserB)
	if err != nil {
		return PrivateRoomResponse{}, err
	}
	if created {
		m.logger.Info("Private room created", "slug", room.Slug)
	}
	return PrivateRoomResponse{Room: room, Found: true, Created: created}, nil
}

// getPrivateRoom handles the get-private-room service request.
func (m *Module) getPrivateRoom(ctx context.Context, req GetPrivateRoomRequest, _ *mono.Msg) (PrivateRoomResponse, error) {
	if req.Slug == "" {
		return PrivateRoomResponse{}, fmt.Errorf("slug is required")
	}
	room, err := m.repo.FindPrivateRoom(ctx, req.Slug)
	if errors.Is(err, chat.ErrNotFound) {
		return PrivateRoomResponse{}, nil
	}
	if err != nil {
		return PrivateRoomResponse{}, err
	}
	return PrivateRoomResponse{Room: room, Found: true}, nil
}

// upsertUser handles the upsert-user service request.
func (m *Module) upsertUser(ctx context.Context, req UpsertUserRequest, _ *mono.Msg) (UserResponse, error) {
	user, err := m.repo.UpsertUser(ctx, req.Username, req.DisplayName)
	if err != nil {
		return UserResponse{}, err
	}
	return UserResponse{User: user, Found: true}, nil
}

// getUser handles the get-user service request.
func (m *Module) getUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (UserResponse, error) {
	if req.Username == "" {
		return UserResponse{}, fmt.Errorf("username is required")
	}
	user, err := m.repo.FindUser(ctx, req.Username)
	if errors.Is(err, chat.ErrNotFound) {
		return UserResponse{}, nil
	}
	if err != nil {
		return UserResponse{}, err
	}
	return UserResponse{User: user, Found: true}, nil
}

// searchUsers handles the search-users service request.
func (m *Module) searchUsers(ctx context.Context, req SearchUsersRequest, _ *mono.Msg) (SearchUsersResponse, error) {
	limit := req.Limit
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}
	users, err := m.repo.SearchUsers(ctx, req.Query, limit)
	if err != nil {
		return SearchUsersResponse{}, err
	}
	return SearchUsersResponse{Users: users, Total: len(users)}, nil
}

// handlePresenceChanged stores the online flag carried by the event.
func (m *Module) handlePresenceChanged(ctx context.Context, event events.PresenceChangedEvent, _ *mono.Msg) error {
	if err := m.repo.SetOnline(ctx, event.Username, event.Online); err != nil {
		m.logger.Error("Failed to store presence", "username", event.Username, "error", err)
		return err
	}
	m.logger.Debug("Stored presence", "username", event.Username, "online", event.Online)
	return nil
}
