package wager

import "strings"

// CanonicalMatchID extracts the fixture id from a client bet id of the form
// "<matchId>-<selectionLabel>". Input without a separator is returned trimmed.
func CanonicalMatchID(raw string) string {
	id, _, _ := strings.Cut(strings.TrimSpace(raw), "-")
	return id
}

// ValidMatchID reports whether id is a non-empty run of ASCII letters and digits.
func ValidMatchID(id string) bool {
	if id == "" || len(id) > 32 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}
