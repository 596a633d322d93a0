package model

import "github.com/google/uuid"

// IDFunc mints a fresh identifier with the given prefix.
type IDFunc func(prefix string) string

// NewID returns "<prefix>-<uuid>".
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
