package util

import (
	"strconv"
	"strings"
)

// MustParseUint parses s as an unsigned id and returns 0 on failure.
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// ParseUintList parses "1,2,3" into ids, skipping blanks and junk.
func ParseUintList(s string) []uint {
	var ids []uint
	for _, part := range strings.Split(s, ",") {
		if id := MustParseUint(strings.TrimSpace(part)); id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
