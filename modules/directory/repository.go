package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/realtime-chat/domain/chat"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides access to rooms, private rooms and users.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new directory repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the directory tables.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&roomRecord{}, &privateRoomRecord{}, &userRecord{})
}

// CreateRoom stores a new public room. It returns chat.ErrRoomExists when the
// name or its slug is already taken.
func (r *Repository) CreateRoom(ctx context.Context, name, createdBy string) (*chat.Room, error) {
	slug, err := chat.ValidateRoomName(name)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	rec := roomRecord{Slug: slug, Name: name, CreatedBy: createdBy, CreatedAt: time.Now().UTC()}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if err := result.Error; err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	if result.RowsAffected == 0 {
		return nil, chat.ErrRoomExists
	}

	room := rec.toDomain()
	return &room, nil
}

// FindRoom retrieves a public room by slug.
func (r *Repository) FindRoom(ctx context.Context, slug string) (*chat.Room, error) {
	var rec roomRecord
	if err := r.db.WithContext(ctx).First(&rec, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, chat.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	room := rec.toDomain()
	return &room, nil
}

// ListRooms retrieves all public rooms ordered by name.
func (r *Repository) ListRooms(ctx context.Context) ([]chat.Room, error) {
	var recs []roomRecord
	if err := r.db.WithContext(ctx).Order("name").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	rooms := make([]chat.Room, len(recs))
	for i := range recs {
		rooms[i] = recs[i].toDomain()
	}
	return rooms, nil
}

// DeleteRoom removes a public room. Only its creator may delete it.
func (r *Repository) DeleteRoom(ctx context.Context, slug, requestedBy string) error {
	room, err := r.FindRoom(ctx, slug)
	if err != nil {
		return err
	}
	if room.CreatedBy != requestedBy {
		return chat.ErrForbidden
	}
	if err := r.db.WithContext(ctx).Delete(&roomRecord{}, "slug = ?", slug).Error; err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	return nil
}

// EnsurePrivateRoom returns the private room of the pair, creating it when
// missing. Concurrent callers racing on the same pair all get the same row:
// the insert ignores conflicts and the row is read back afterwards.
func (r *Repository) EnsurePrivateRoom(ctx context.Context, a, b string) (*chat.PrivateRoom, bool, error) {
	if a == b {
		return nil, false, chat.ErrSelfChat
	}
	lo, hi := chat.SortedPair(a, b)
	slug := chat.PrivateSlug(lo, hi)

	rec := privateRoomRecord{Slug: slug, UserA: lo, UserB: hi, CreatedAt: time.Now().UTC()}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if err := result.Error; err != nil {
		return nil, false, fmt.Errorf("failed to create private room: %w", err)
	}
	created := result.RowsAffected > 0

	room, err := r.FindPrivateRoom(ctx, slug)
	if err != nil {
		return nil, false, err
	}
	return room, created, nil
}

// FindPrivateRoom retrieves a private room by slug.
func (r *Repository) FindPrivateRoom(ctx context.Context, slug string) (*chat.PrivateRoom, error) {
	var rec privateRoomRecord
	if err := r.db.WithContext(ctx).First(&rec, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, chat.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find private room: %w", err)
	}
	room := rec.toDomain()
	return &room, nil
}

// UpsertUser creates the user or refreshes its display name.
func (r *Repository) UpsertUser(ctx context.Context, username, displayName string) (*chat.User, error) {
	if err := chat.ValidateUsername(username); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := userRecord{Username: username, DisplayName: displayName, CreatedAt: now, UpdatedAt: now}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return r.FindUser(ctx, username)
}

// FindUser retrieves a user by username.
func (r *Repository) FindUser(ctx context.Context, username string) (*chat.User, error) {
	var rec userRecord
	if err := r.db.WithContext(ctx).First(&rec, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, chat.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	user := rec.toDomain()
	return &user, nil
}

// SetOnline stores the online flag of a user. Unknown users are created.
func (r *Repository) SetOnline(ctx context.Context, username string, online bool) error {
	now := time.Now().UTC()
	rec := userRecord{Username: username, IsOnline: online, CreatedAt: now, UpdatedAt: now}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_online", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to update presence: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchUsers returns up to limit users whose username or display name
// contains query, case-insensitively, ordered by username.
func (r *Repository) SearchUsers(ctx context.Context, query string, limit int) ([]chat.User, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(query))) + "%"
	var recs []userRecord
	err := r.db.WithContext(ctx).
		Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(display_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("username").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	users := make([]chat.User, len(recs))
	for i := range recs {
		users[i] = recs[i].toDomain()
	}
	return users, nil
}
