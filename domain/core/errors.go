package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Assignment lifecycle errors
	ErrNotAssigned     = errors.New("experiment has no assignment yet")
	ErrAlreadyAssigned = errors.New("experiment assignment already fixed")
	ErrNoActiveStudy   = errors.New("no study is currently active")

	// Recovery errors
	ErrRecoveryMissing = errors.New("no recovery record present")
	ErrRecoveryCorrupt = errors.New("recovery record is corrupt")

	// Configuration / structural errors
	ErrStudyCountMismatch     = errors.New("loaded study count does not match experiment parameters")
	ErrChallengeCountMismatch = errors.New("enumerated challenge count does not match experiment parameters")
	ErrPolicyEntryMissing     = errors.New("view policy has no entry for study/group pair")

	// Validation errors
	ErrInvalidDigest      = errors.New("digest is not a member of the valid assignment space")
	ErrUnknownStudyType   = errors.New("unknown study type")
	ErrInvalidGroupLetter = errors.New("group letter outside the study alphabet")
	ErrInvalidParams      = errors.New("invalid experiment parameters")
)

// Error constructors with context
func NewChallengeCountError(studyType string, got, want int) error {
	return fmt.Errorf("%w: study %s has %d challenges, want %d", ErrChallengeCountMismatch, studyType, got, want)
}

func NewStudyCountError(got, want int) error {
	return fmt.Errorf("%w: got %d, want %d", ErrStudyCountMismatch, got, want)
}

func NewRecoveryCorruptError(reason string) error {
	return fmt.Errorf("%w: %s", ErrRecoveryCorrupt, reason)
}

// Error checking helpers
func IsRecoveryError(err error) bool {
	return errors.Is(err, ErrRecoveryMissing) ||
		errors.Is(err, ErrRecoveryCorrupt)
}

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrStudyCountMismatch) ||
		errors.Is(err, ErrChallengeCountMismatch) ||
		errors.Is(err, ErrPolicyEntryMissing) ||
		errors.Is(err, ErrInvalidParams)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidDigest) ||
		errors.Is(err, ErrUnknownStudyType) ||
		errors.Is(err, ErrInvalidGroupLetter)
}
