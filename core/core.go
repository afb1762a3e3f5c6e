package core

import "github.com/google/uuid"

// NewID generates a new unique identifier for messages and turns.
//
// This function creates a UUID-based unique identifier that can be used
// for correlation throughout the runtime.
//
// Returns a string representation of a new UUID.
func NewID() string { return uuid.NewString() }
