package experiment

import (
	"binstudy/domain/core"
)

// Study is one ordered sequence of challenges with a cursor over the next
// unconsumed one. A Study is owned exclusively by the experiment that
// created it; the cursor only ever moves forward.
type Study struct {
	studyType  StudyType
	group      Group
	challenges []core.ChallengeID
	cursor     int
}

// NewStudy creates a study positioned before its first challenge.
func NewStudy(t StudyType, g Group, challenges []core.ChallengeID) *Study {
	owned := make([]core.ChallengeID, len(challenges))
	copy(owned, challenges)
	return &Study{studyType: t, group: g, challenges: owned}
}

// RestoreStudy rebuilds a study from persisted state, clamping the cursor
// into [0, len] so a corrupt record can never index out of bounds or make
// the cursor move backwards past "not started".
func RestoreStudy(t StudyType, g Group, challenges []core.ChallengeID, cursor int) *Study {
	s := NewStudy(t, g, challenges)
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(s.challenges) {
		cursor = len(s.challenges)
	}
	s.cursor = cursor
	return s
}

// NextChallenge returns the challenge at the cursor and advances it by one.
// Once the sequence is exhausted it reports ok=false and never advances
// further.
func (s *Study) NextChallenge() (core.ChallengeID, bool) {
	if s.IsComplete() {
		return "", false
	}
	chall := s.challenges[s.cursor]
	s.cursor++
	return chall, true
}

// IsComplete reports whether any unconsumed challenges remain. A negative
// cursor is treated as complete; it can only arise from corrupt state and
// completing is the safe degradation.
func (s *Study) IsComplete() bool {
	return s.cursor < 0 || s.cursor >= len(s.challenges)
}

// Type returns the study's type.
func (s *Study) Type() StudyType {
	return s.studyType
}

// Group returns the participant's group within this study.
func (s *Study) Group() Group {
	return s.group
}

// Cursor returns the index of the next unconsumed challenge.
func (s *Study) Cursor() int {
	return s.cursor
}

// Len returns the number of challenges in the study.
func (s *Study) Len() int {
	return len(s.challenges)
}

// Challenges returns a copy of the ordered challenge sequence.
func (s *Study) Challenges() []core.ChallengeID {
	out := make([]core.ChallengeID, len(s.challenges))
	copy(out, s.challenges)
	return out
}
