package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	// ParticipantID identifies the human subject assigned to this session.
	ParticipantID ID
	// SessionID identifies one GUI session of the experiment harness.
	SessionID ID
	// ChallengeID names a single challenge binary (path or name).
	ChallengeID ID
)

func (id ParticipantID) String() string { return ID(id).String() }
func (id SessionID) String() string     { return ID(id).String() }
func (id ChallengeID) String() string   { return ID(id).String() }

// ParseChallengeID parses a string into ChallengeID
func ParseChallengeID(s string) (ChallengeID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("challenge ID cannot be empty")
	}
	return ChallengeID(s), nil
}

// ParseSessionID parses a string into SessionID
func ParseSessionID(s string) (SessionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("session ID cannot be empty")
	}
	return SessionID(s), nil
}
