package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a catalog identifier. The remote API sends ids as JSON numbers or
// strings; both decode to the same textual form.
type ID string

// String returns the identifier text.
func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	s, err := scalarString(b)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(s)
	return nil
}

// Field is a loosely typed scalar from the catalog detail payload. Numbers,
// strings and booleans all decode to their text; null and absent keys decode
// to "". Objects and arrays are a shape mismatch.
type Field string

// UnmarshalJSON accepts any JSON scalar.
func (f *Field) UnmarshalJSON(b []byte) error {
	s, err := scalarString(b)
	if err != nil {
		return err
	}
	*f = Field(s)
	return nil
}

// OrUnknown returns the field text or the Unknown sentinel when blank.
func (f Field) OrUnknown() string {
	if f == "" {
		return Unknown
	}
	return string(f)
}

func scalarString(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", fmt.Errorf("%w: %v", ErrParse, err)
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("%w: expected scalar, got %s", ErrParse, shapeName(b[0]))
	}
	if !json.Valid(b) {
		return "", fmt.Errorf("%w: invalid scalar %q", ErrParse, b)
	}
	return string(b), nil
}

func shapeName(c byte) string {
	if c == '{' {
		return "object"
	}
	return "array"
}
