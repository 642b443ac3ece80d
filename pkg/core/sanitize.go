package core

import (
	"strings"
	"unicode/utf8"
)

const (
	// UntitledName is what an empty or blank name sanitizes to.
	UntitledName = "Untitled"

	// MaxNameLength caps a sanitized name, in runes.
	MaxNameLength = 100
)

// Sanitize converts a display name into a single filesystem-safe path segment.
//
// Reserved characters (< > : " / \ | ? *) and control characters become "_",
// surrounding whitespace is trimmed, the result is capped at MaxNameLength runes,
// and a name made only of dots has its dots replaced so it can never mean "." or "..".
// Blank input yields UntitledName. Sanitize is idempotent.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == utf8.RuneError:
			b.WriteRune('_')
		case r < 0x20 || r == 0x7f:
			b.WriteRune('_')
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	s := strings.TrimSpace(b.String())
	if utf8.RuneCountInString(s) > MaxNameLength {
		s = strings.TrimSpace(string([]rune(s)[:MaxNameLength]))
	}
	if s == "" {
		return UntitledName
	}
	if strings.Trim(s, ".") == "" {
		s = strings.Repeat("_", len(s))
	}
	return s
}
