package realtime

import (
	"errors"
	"sync/atomic"

	"github.com/example/realtime-chat/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
)

// BroadcastResult summarizes one fan-out.
type BroadcastResult struct {
	Delivered int
	Failed    int
}

// Broadcaster fans events out to every member of a room.
type Broadcaster struct {
	registry *Registry
	logger   types.Logger

	delivered atomic.Uint64
	failed    atomic.Uint64
}

// NewBroadcaster creates a Broadcaster over the given registry.
func NewBroadcaster(registry *Registry, logger types.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, logger: logger}
}

// Broadcast encodes event once and enqueues it to every current member of
// the room, including the originating session. A failed member does not
// affect the others.
func (b *Broadcaster) Broadcast(roomKey string, event chat.Event) (BroadcastResult, error) {
	var result BroadcastResult

	data, err := chat.EncodeEvent(event)
	if err != nil {
		b.logger.Error("Failed to encode event", "room", roomKey, "error", err)
		return result, err
	}

	for _, s := range b.registry.Members(roomKey) {
		if err := s.Deliver(data); err != nil {
			result.Failed++
			if errors.Is(err, ErrSlowConsumer) {
				b.logger.Warn("Dropped frame for slow consumer", "room", roomKey, "sessionID", s.ID())
			}
			continue
		}
		result.Delivered++
	}

	b.delivered.Add(uint64(result.Delivered))
	b.failed.Add(uint64(result.Failed))
	return result, nil
}

// Stats returns the cumulative delivered and failed counts.
func (b *Broadcaster) Stats() (delivered, failed uint64) {
	return b.delivered.Load(), b.failed.Load()
}
