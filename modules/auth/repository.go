package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrAccountNotFound is returned when no account has the username.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned when the username is taken.
	ErrAccountExists = errors.New("username already exists")
)

// accountRecord is the GORM model for login credentials.
type accountRecord struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Username     string    `gorm:"uniqueIndex;size:50;not null"`
	DisplayName  string    `gorm:"size:150"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (accountRecord) TableName() string {
	return "accounts"
}

// AccountRepository stores accounts using GORM.
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Migrate creates or updates the accounts table.
func (r *AccountRepository) Migrate() error {
	return r.db.AutoMigrate(&accountRecord{})
}

// Create stores a new account. A taken username yields ErrAccountExists.
func (r *AccountRepository) Create(ctx context.Context, rec *accountRecord) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if result.Error != nil {
		return fmt.Errorf("failed to create account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountExists
	}
	return nil
}

// FindByUsername retrieves an account by username.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*accountRecord, error) {
	var rec accountRecord
	if err := r.db.WithContext(ctx).First(&rec, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &rec, nil
}
