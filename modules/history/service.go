package history

import (
	"context"
	"fmt"

	"github.com/example/realtime-chat/domain/chat"
	"github.com/go-monolith/mono"
)

func roomRef(kind chat.RoomKind, slug string) (chat.RoomRef, error) {
	if slug == "" {
		return chat.RoomRef{}, fmt.Errorf("room_slug is required")
	}
	switch kind {
	case chat.RoomKindPublic, chat.RoomKindPrivate:
		return chat.RoomRef{Kind: kind, Slug: slug}, nil
	default:
		return chat.RoomRef{}, fmt.Errorf("invalid room_kind %q", kind)
	}
}

// persist handles the persist service request.
func (m *Module) persist(ctx context.Context, req PersistRequest, _ *mono.Msg) (PersistResponse, error) {
	room, err := roomRef(req.RoomKind, req.RoomSlug)
	if err != nil {
		return PersistResponse{}, err
	}
	if req.Sender == "" {
		return PersistResponse{}, fmt.Errorf("sender is required")
	}

	msg, err := m.repo.Save(ctx, room, req.Sender, req.Content)
	if err != nil {
		return PersistResponse{}, err
	}
	m.logger.Debug("Stored message", "room", room.String(), "messageID", msg.ID)
	return PersistResponse{Message: *msg}, nil
}

// history handles the history service request.
func (m *Module) history(ctx context.Context, req HistoryRequest, _ *mono.Msg) (HistoryResponse, error) {
	room, err := roomRef(req.RoomKind, req.RoomSlug)
	if err != nil {
		return HistoryResponse{}, err
	}

	msgs, err := m.repo.Latest(ctx, room, req.Limit)
	if err != nil {
		return HistoryResponse{}, err
	}
	return HistoryResponse{Messages: msgs, Total: len(msgs)}, nil
}
