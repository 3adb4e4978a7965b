package experiment

import (
	"fmt"

	"binstudy/domain/core"
)

// Default experiment dimensions. The digest scheme encodes the challenge
// order as single decimal digits and the rainbow table enumerates every
// permutation, so ChallengeCount has a hard ceiling.
const (
	DefaultStudyCount     = 2
	DefaultChallengeCount = 5

	// MaxChallengeCount bounds the factorial term in the rainbow table and
	// keeps challenge-order slots single digits in the digest cleartext.
	MaxChallengeCount = 7
)

// DefaultGroupLetters is the per-study group alphabet: 'A' is the treatment
// group, 'B' the control group. Meaning is study-type dependent (see Group).
const DefaultGroupLetters = "AB"

// Params fixes the dimensions of the assignment space. Digest generation and
// rainbow-table enumeration both read their ranges from the same Params
// value so the two can never drift apart.
type Params struct {
	StudyCount     int
	ChallengeCount int
	GroupLetters   string
}

// DefaultParams returns the production parameter set.
func DefaultParams() Params {
	return Params{
		StudyCount:     DefaultStudyCount,
		ChallengeCount: DefaultChallengeCount,
		GroupLetters:   DefaultGroupLetters,
	}
}

// Validate range-checks the parameter set.
func (p Params) Validate() error {
	if p.StudyCount != DefaultStudyCount {
		return fmt.Errorf("%w: study count must be %d, got %d", core.ErrInvalidParams, DefaultStudyCount, p.StudyCount)
	}
	if p.ChallengeCount < 1 || p.ChallengeCount > MaxChallengeCount {
		return fmt.Errorf("%w: challenge count %d outside [1, %d]", core.ErrInvalidParams, p.ChallengeCount, MaxChallengeCount)
	}
	if len(p.GroupLetters) < 2 {
		return fmt.Errorf("%w: group alphabet %q needs at least two letters", core.ErrInvalidParams, p.GroupLetters)
	}
	seen := map[byte]bool{}
	for i := 0; i < len(p.GroupLetters); i++ {
		c := p.GroupLetters[i]
		if c < 'A' || c > 'Z' || seen[c] {
			return fmt.Errorf("%w: group alphabet %q must be distinct upper-case letters", core.ErrInvalidParams, p.GroupLetters)
		}
		seen[c] = true
	}
	return nil
}

// FirstStudyRange returns the closed range [lo, hi] from which the
// first-study index is drawn. Both NewRandomAssignment and
// BuildRainbowTable use this function; nothing else may hard-code it.
func (p Params) FirstStudyRange() (lo, hi int) {
	return 0, p.StudyCount - 1
}

// ValidLetter reports whether c belongs to the group alphabet.
func (p Params) ValidLetter(c byte) bool {
	for i := 0; i < len(p.GroupLetters); i++ {
		if p.GroupLetters[i] == c {
			return true
		}
	}
	return false
}
