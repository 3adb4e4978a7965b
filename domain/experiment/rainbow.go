package experiment

import (
	"binstudy/domain/core"

	"gonum.org/v1/gonum/stat/combin"
)

// RainbowTable is the precomputed set of every digest reachable under a
// parameter set. Validation of an externally supplied digest is a membership
// test; the hash is never inverted.
//
// Size is (hi-lo+1) * len(alphabet)^StudyCount * ChallengeCount!, so the
// challenge count must stay small (Params.Validate enforces the ceiling).
type RainbowTable struct {
	params  Params
	digests map[core.Digest]struct{}
}

// BuildRainbowTable eagerly enumerates the full assignment space. The
// first-study range comes from the same Params method that random
// generation uses, so a generated digest is always a member.
func BuildRainbowTable(p Params) (*RainbowTable, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	lo, hi := p.FirstStudyRange()
	perms := combin.Permutations(p.ChallengeCount, p.ChallengeCount)

	t := &RainbowTable{
		params:  p,
		digests: make(map[core.Digest]struct{}, (hi-lo+1)*pow(len(p.GroupLetters), p.StudyCount)*len(perms)),
	}

	letters := make([]byte, p.StudyCount)
	for first := lo; first <= hi; first++ {
		for combo := 0; combo < pow(len(p.GroupLetters), p.StudyCount); combo++ {
			// Decode combo as base-len(alphabet) digits, one letter per study.
			c := combo
			for i := 0; i < p.StudyCount; i++ {
				letters[i] = p.GroupLetters[c%len(p.GroupLetters)]
				c /= len(p.GroupLetters)
			}
			groups := string(letters)
			for _, perm := range perms {
				t.digests[EncodeDigest(first, groups, orderDigits(perm))] = struct{}{}
			}
		}
	}
	return t, nil
}

// Contains reports whether d is a legitimately encodable digest.
func (t *RainbowTable) Contains(d core.Digest) bool {
	_, ok := t.digests[d]
	return ok
}

// Size returns the number of distinct valid digests.
func (t *RainbowTable) Size() int {
	return len(t.digests)
}

// Params returns the parameter set the table was built for.
func (t *RainbowTable) Params() Params {
	return t.params
}

func pow(base, exp int) int {
	result := 1
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
