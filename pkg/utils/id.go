package utils

import "github.com/google/uuid"

// NewID returns a random v4 UUID in canonical form.
func NewID() string { return uuid.NewString() }
