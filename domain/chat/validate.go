package chat

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validation limits.
const (
	MaxUsernameLength = 50
	MaxRoomNameLength = 255
	MaxMessageLength  = 5000
)

// ValidateUsername accepts non-empty alphanumeric usernames.
func ValidateUsername(username string) error {
	if username == "" {
		return ErrUsernameEmpty
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return ErrUsernameInvalid
		}
	}
	return nil
}

// ValidateRoomName checks a public room name and returns its slug.
func ValidateRoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrRoomNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxRoomNameLength {
		return "", ErrRoomNameTooLong
	}
	slug := Slugify(name)
	if slug == "" {
		return "", ErrRoomNameInvalid
	}
	return slug, nil
}
