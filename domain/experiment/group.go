package experiment

import (
	"fmt"
	"strings"

	"binstudy/domain/core"
)

// StudyType enumerates the analysis features the experiment evaluates.
type StudyType int

const (
	// StudyProximity evaluates the proximity graph view.
	StudyProximity StudyType = iota
	// StudyDataDep evaluates the data dependency graph view.
	StudyDataDep
)

// studyTypeNames is indexed by StudyType and doubles as the challenge
// directory name for each study.
var studyTypeNames = [...]string{
	StudyProximity: "proximity",
	StudyDataDep:   "data_dep",
}

// String returns the study type name
func (t StudyType) String() string {
	if t < 0 || int(t) >= len(studyTypeNames) {
		return fmt.Sprintf("study_type(%d)", int(t))
	}
	return studyTypeNames[t]
}

// Valid reports whether t is a declared study type.
func (t StudyType) Valid() bool {
	return t >= 0 && int(t) < len(studyTypeNames)
}

// ParseStudyType parses a study type name (case-insensitive).
func ParseStudyType(s string) (StudyType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range studyTypeNames {
		if n == name {
			return StudyType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", core.ErrUnknownStudyType, s)
}

// StudyTypes returns all declared study types in index order.
func StudyTypes() []StudyType {
	return []StudyType{StudyProximity, StudyDataDep}
}

// Group is a participant's treatment/control assignment within one study.
// It is a tagged value rather than a per-study enum: the letter alone is
// meaningless, the owning study type decides what 'A' and 'B' stand for.
type Group struct {
	Type   StudyType
	Letter byte
}

// groupNames maps (study type, letter) to the human-readable group name.
var groupNames = map[Group]string{
	{StudyProximity, 'A'}: "proximity",
	{StudyProximity, 'B'}: "no_proximity",
	{StudyDataDep, 'A'}:   "data_dep",
	{StudyDataDep, 'B'}:   "no_data_dep",
}

// NewGroup builds a Group, enforcing that the letter is valid for the
// study type under the given parameters.
func NewGroup(p Params, t StudyType, letter byte) (Group, error) {
	if !t.Valid() {
		return Group{}, fmt.Errorf("%w: %d", core.ErrUnknownStudyType, int(t))
	}
	if !p.ValidLetter(letter) {
		return Group{}, fmt.Errorf("%w: %q for study %s", core.ErrInvalidGroupLetter, string(letter), t)
	}
	return Group{Type: t, Letter: letter}, nil
}

// Name returns the group's study-specific name, e.g. "no_proximity".
func (g Group) Name() string {
	if name, ok := groupNames[g]; ok {
		return name
	}
	return fmt.Sprintf("%s/%s", g.Type, string(g.Letter))
}

// IsTreatment reports whether the group sees the study's evaluated feature.
func (g Group) IsTreatment() bool {
	return g.Letter == 'A'
}

// String returns the group name
func (g Group) String() string {
	return g.Name()
}
