package domain

import (
	"github.com/google/uuid"
)

// ConnectionID identifies a single transport connection for its lifetime.
// It is assigned at upgrade time and never reused.
type ConnectionID uuid.UUID

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.New())
}

func (c ConnectionID) String() string {
	return uuid.UUID(c).String()
}

// Validation limits, counted in runes after trimming.
const (
	MaxUsernameLength = 50
	MaxMessageLength  = 1000
)
