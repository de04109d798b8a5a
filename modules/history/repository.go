package history

import (
	"context"
	"fmt"
	"time"

	"github.com/example/realtime-chat/domain/chat"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// History limits.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Repository stores chat messages.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new message repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the messages table.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&messageRecord{})
}

// Save stores one message and returns it with its assigned id and timestamp.
func (r *Repository) Save(ctx context.Context, room chat.RoomRef, sender, content string) (*chat.Message, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	rec := messageRecord{
		ID:        id.String(),
		RoomKind:  room.Kind,
		RoomSlug:  room.Slug,
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	msg := rec.toDomain()
	return &msg, nil
}

// Latest returns up to limit of the room's most recent messages, oldest first.
func (r *Repository) Latest(ctx context.Context, room chat.RoomRef, limit int) ([]chat.Message, error) {
	limit = clampLimit(limit)

	var recs []messageRecord
	err := r.db.WithContext(ctx).
		Where("room_kind = ? AND room_slug = ?", room.Kind, room.Slug).
		Order("timestamp DESC").Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	msgs := make([]chat.Message, len(recs))
	for i := range recs {
		msgs[len(recs)-1-i] = recs[i].toDomain()
	}
	return msgs, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
