package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned when the backing store is transiently unreachable.
	ErrUnavailable = errors.New("store unavailable")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// Unavailable wraps a backend failure as ErrUnavailable, keeping the cause.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

// IsUnavailable reports whether err is a store availability failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
