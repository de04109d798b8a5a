package chat

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var asciiFold = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// Slugify turns a display name into a URL-safe identifier: compatibility
// decomposition, non-ASCII dropped, lowercased, anything other than letters,
// digits, underscores, hyphens and spaces removed, runs of spaces and hyphens
// collapsed to one hyphen, leading and trailing hyphens and underscores trimmed.
func Slugify(name string) string {
	folded, _, err := transform.String(asciiFold, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingDash := false
	for _, r := range folded {
		switch {
		case r == '-' || unicode.IsSpace(r):
			pendingDash = true
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingDash {
				b.WriteByte('-')
				pendingDash = false
			}
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_")
}

// SortedPair orders two usernames so that the smaller one comes first.
func SortedPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// PrivateSlug derives the private room slug for an unordered pair of users.
func PrivateSlug(a, b string) string {
	lo, hi := SortedPair(a, b)
	return lo + "_" + hi
}
