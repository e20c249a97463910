package domain

import (
	"strings"
	"unicode"
)

const maxIDLength = 64

// ValidateID checks a cascade identifier before it is used as a catalog path
// segment. Ids are opaque, but they must be non-blank, short, and free of
// separators, whitespace and control characters.
func ValidateID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return NewValidationError(field, id, ErrInvalidID)
	}
	if len(id) > maxIDLength || strings.Contains(id, "..") {
		return NewValidationError(field, id, ErrInvalidID)
	}
	for _, r := range id {
		if r == '/' || r == '\\' || r == '?' || r == '#' || r == '%' ||
			unicode.IsSpace(r) || unicode.IsControl(r) {
			return NewValidationError(field, id, ErrInvalidID)
		}
	}
	return nil
}
