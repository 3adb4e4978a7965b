package experiment

import (
	"fmt"
	"math/rand"

	"binstudy/domain/core"
)

// Assignment fixes everything random about one participant's experiment:
// which study comes first, which group the participant belongs to in each
// study, and the order challenges are presented in. Once generated (or
// recovered, or injected from an external session log) it never changes.
type Assignment struct {
	// FirstStudy is the StudyType index of the study presented first.
	FirstStudy int
	// Groups holds one group per study, indexed by StudyType.
	Groups []Group
	// ChallengeOrder is a permutation of [0, ChallengeCount): slot i of the
	// presented sequence is the canonical challenge at ChallengeOrder[i].
	ChallengeOrder []int
}

// NewRandomAssignment draws a uniform assignment from the space declared by
// p, using the caller-supplied stream so generation stays reproducible
// under a fixed seed.
func NewRandomAssignment(r *rand.Rand, p Params) Assignment {
	lo, hi := p.FirstStudyRange()
	a := Assignment{
		FirstStudy:     lo + r.Intn(hi-lo+1),
		Groups:         make([]Group, p.StudyCount),
		ChallengeOrder: r.Perm(p.ChallengeCount),
	}
	for i := 0; i < p.StudyCount; i++ {
		letter := p.GroupLetters[r.Intn(len(p.GroupLetters))]
		a.Groups[i] = Group{Type: StudyType(i), Letter: letter}
	}
	return a
}

// Digest encodes the assignment into its verification digest.
func (a Assignment) Digest() core.Digest {
	return EncodeDigest(a.FirstStudy, a.GroupLetters(), orderDigits(a.ChallengeOrder))
}

// GroupLetters returns the group letters in study-index order.
func (a Assignment) GroupLetters() string {
	letters := make([]byte, len(a.Groups))
	for i, g := range a.Groups {
		letters[i] = g.Letter
	}
	return string(letters)
}

// GroupFor returns the assigned group for a study type.
func (a Assignment) GroupFor(t StudyType) (Group, bool) {
	if !t.Valid() || int(t) >= len(a.Groups) {
		return Group{}, false
	}
	return a.Groups[t], true
}

// Validate range-checks every field against p. An assignment that fails
// here would encode to a digest outside the rainbow table.
func (a Assignment) Validate(p Params) error {
	lo, hi := p.FirstStudyRange()
	if a.FirstStudy < lo || a.FirstStudy > hi {
		return fmt.Errorf("%w: first study %d outside [%d, %d]", core.ErrInvalidParams, a.FirstStudy, lo, hi)
	}
	if len(a.Groups) != p.StudyCount {
		return NewStudyCountMismatch(len(a.Groups), p.StudyCount)
	}
	for i, g := range a.Groups {
		if g.Type != StudyType(i) {
			return fmt.Errorf("%w: group %d tagged with study %s", core.ErrUnknownStudyType, i, g.Type)
		}
		if !p.ValidLetter(g.Letter) {
			return fmt.Errorf("%w: %q in study %s", core.ErrInvalidGroupLetter, string(g.Letter), g.Type)
		}
	}
	if len(a.ChallengeOrder) != p.ChallengeCount {
		return fmt.Errorf("%w: challenge order has %d slots, want %d", core.ErrInvalidParams, len(a.ChallengeOrder), p.ChallengeCount)
	}
	seen := make([]bool, p.ChallengeCount)
	for _, slot := range a.ChallengeOrder {
		if slot < 0 || slot >= p.ChallengeCount || seen[slot] {
			return fmt.Errorf("%w: challenge order %v is not a permutation of [0, %d)", core.ErrInvalidParams, a.ChallengeOrder, p.ChallengeCount)
		}
		seen[slot] = true
	}
	return nil
}

// NewStudyCountMismatch wraps the structural study-count invariant.
func NewStudyCountMismatch(got, want int) error {
	return core.NewStudyCountError(got, want)
}
