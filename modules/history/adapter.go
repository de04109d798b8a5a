package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/realtime-chat/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// StorePort is what other modules use to store and read messages.
type StorePort interface {
	Persist(ctx context.Context, room chat.RoomRef, sender, text string) error
	History(ctx context.Context, room chat.RoomRef, limit int) ([]chat.Message, error)
}

// storeAdapter calls the history services through the ServiceContainer.
type storeAdapter struct {
	container mono.ServiceContainer
}

// NewStoreAdapter creates a StorePort over the history module's
// ServiceContainer received via SetDependencyServiceContainer.
func NewStoreAdapter(container mono.ServiceContainer) StorePort {
	if container == nil {
		panic("history adapter requires non-nil ServiceContainer")
	}
	return &storeAdapter{container: container}
}

// Persist stores one message via the persist service.
func (a *storeAdapter) Persist(ctx context.Context, room chat.RoomRef, sender, text string) error {
	req := PersistRequest{RoomKind: room.Kind, RoomSlug: room.Slug, Sender: sender, Content: text}
	var resp PersistResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"persist",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("persist service call failed: %w", err)
	}
	return nil
}

// History loads the latest messages via the history service.
func (a *storeAdapter) History(ctx context.Context, room chat.RoomRef, limit int) ([]chat.Message, error) {
	req := HistoryRequest{RoomKind: room.Kind, RoomSlug: room.Slug, Limit: limit}
	var resp HistoryResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"history",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("history service call failed: %w", err)
	}
	return resp.Messages, nil
}
