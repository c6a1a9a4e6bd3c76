package util

import "github.com/google/uuid"

// NewID returns a random identifier prefixed with prefix and an underscore.
func NewID(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
