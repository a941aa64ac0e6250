package storage

import "errors"

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidateAddress rejects empty or path-like cache addresses.
func ValidateAddress(category, key string) error {
	if category == "" || key == "" {
		return ErrInvalidInput
	}
	for _, s := range []string{category, key} {
		for _, r := range s {
			if r == '/' || r == '\\' || r == 0 {
				return ErrInvalidInput
			}
		}
		if s == "." || s == ".." {
			return ErrInvalidInput
		}
	}
	return nil
}
