// Package id generates keys for append-only rows (action history, outbox)
// and request correlation ids.
package id

import "github.com/google/uuid"

// ID is a UUIDv7. Its leading 48 bits are a millisecond timestamp, so ids
// sort by creation time.
type ID = uuid.UUID

// New returns a UUIDv7, falling back to a random UUID if the clock source
// fails.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// String returns a new id in canonical text form.
func String() string {
	return New().String()
}
