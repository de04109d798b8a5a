package directory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/realtime-chat/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// DirectoryPort is what other modules use to reach the directory.
type DirectoryPort interface {
	CreateRoom(ctx context.Context, name, createdBy string) (*chat.Room, error)
	GetRoom(ctx context.Context, slug string) (*chat.Room, error)
	ListRooms(ctx context.Context) ([]chat.Room, error)
	DeleteRoom(ctx context.Context, slug, requestedBy string) error
	EnsurePrivateRoom(ctx context.Context, userA, userB string) (*chat.PrivateRoom, error)
	GetPrivateRoom(ctx context.Context, slug string) (*chat.PrivateRoom, error)
	UpsertUser(ctx context.Context, username, displayName string) (*chat.User, error)
	GetUser(ctx context.Context, username string) (*chat.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]chat.User, error)
}

// directoryAdapter calls the directory services through the ServiceContainer.
type directoryAdapter struct {
	container mono.ServiceContainer
}

// NewDirectoryAdapter creates a DirectoryPort over the directory module's
// ServiceContainer received via SetDependencyServiceContainer.
func NewDirectoryAdapter(container mono.ServiceContainer) DirectoryPort {
	if container == nil {
		panic("directory adapter requires non-nil ServiceContainer")
	}
	return &directoryAdapter{container: container}
}

func (a *directoryAdapter) call(ctx context.Context, service string, req, resp any) error {
	if err := helper.CallRequestReplyService(
		ctx, a.container, service, json.Marshal, json.Unmarshal, req, resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w", service, err)
	}
	return nil
}

func (a *directoryAdapter) CreateRoom(ctx context.Context, name, createdBy string) (*chat.Room, error) {
	req := CreateRoomRequest{Name: name, CreatedBy: createdBy}
	var resp CreateRoomResponse
	if err := a.call(ctx, "create-room", &req, &resp); err != nil {
		return nil, err
	}
	if resp.Exists {
		return nil, chat.ErrRoomExists
	}
	return resp.Room, nil
}

func (a *directoryAdapter) GetRoom(ctx context.Context, slug string) (*chat.Room, error) {
	req := GetRoomRequest{Slug: slug}
	var resp GetRoomResponse
	if err := a.call(ctx, "get-room", &req, &resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, fmt.Errorf("room %q: %w", slug, chat.ErrNotFound)
	}
	return resp.Room, nil
}

func (a *directoryAdapter) ListRooms(ctx context.Context) ([]chat.Room, error) {
	var resp ListRoomsResponse
	if err := a.call(ctx, "list-rooms", &ListRoomsRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

func (a *directoryAdapter) DeleteRoom(ctx context.Context, slug, requestedBy string) error {
	req := DeleteRoomRequest{Slug: slug, RequestedBy: requestedBy}
	var resp DeleteRoomResponse
	if err := a.call(ctx, "delete-room", &req, &resp); err != nil {
		return err
	}
	switch {
	case !resp.Found:
		return fmt.Errorf("room %q: %w", slug, chat.ErrNotFound)
	case resp.Forbidden:
		return fmt.Errorf("room %q: %w", slug, chat.ErrForbidden)
	}
	return nil
}

func (a *directoryAdapter) EnsurePrivateRoom(ctx context.Context, userA, userB string) (*chat.PrivateRoom, error) {
	req := EnsurePrivateRoomRequest{UserA: userA, UserB: userB}
	var resp PrivateRoomResponse
	if err := a.call(ctx, "ensure-private-room", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Room, nil
}

func (a *directoryAdapter) GetPrivateRoom(ctx context.Context, slug string) (*chat.PrivateRoom, error) {
	req := GetPrivateRoomRequest{Slug: slug}
	var resp PrivateRoomResponse
	if err := a.call(ctx, "get-private-room", &req, &resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, fmt.Errorf("private room %q: %w", slug, chat.ErrNotFound)
	}
	return resp.Room, nil
}

func (a *directoryAdapter) UpsertUser(ctx context.Context, username, displayName string) (*chat.User, error) {
	req := UpsertUserRequest{Username: username, DisplayName: displayName}
	var resp UserResponse
	if err := a.call(ctx, "upsert-user", &req, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (a *directoryAdapter) GetUser(ctx context.Context, username string) (*chat.User, error) {
	req := GetUserRequest{Username: username}
	var resp UserResponse
	if err := a.call(ctx, "get-user", &req, &resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, fmt.Errorf("user %q: %w", username, chat.ErrNotFound)
	}
	return resp.User, nil
}

func (a *directoryAdapter) SearchUsers(ctx context.Context, query string, limit int) ([]chat.User, error) {
	req := SearchUsersRequest{Query: query, Limit: limit}
	var resp SearchUsersResponse
	if err := a.call(ctx, "search-users", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}
