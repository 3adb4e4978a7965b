package experiment

import (
	"fmt"
	"sort"

	"binstudy/domain/core"
)

// ViewPolicy is the static table of UI panel categories permitted per
// (study type, group) pair. It is fixed at construction; a missing entry
// for a reachable pair is a configuration error, not a runtime condition.
type ViewPolicy struct {
	allowed map[Group]map[string]struct{}
}

// baseViewCategories are the panels every group sees regardless of
// treatment or control.
var baseViewCategories = []string{
	"functions",
	"disassembly",
	"hex",
	"strings",
	"patches",
	"symexec",
	"states",
	"interaction",
	"console",
	"log",
}

// DefaultViewPolicy builds the production policy: every group gets the base
// panels, and each treatment group additionally gets the panel its study
// evaluates.
func DefaultViewPolicy() *ViewPolicy {
	p := &ViewPolicy{allowed: make(map[Group]map[string]struct{})}

	p.set(Group{StudyProximity, 'A'}, append([]string{"proximity"}, baseViewCategories...))
	p.set(Group{StudyProximity, 'B'}, baseViewCategories)
	p.set(Group{StudyDataDep, 'A'}, append([]string{"data_dependency"}, baseViewCategories...))
	p.set(Group{StudyDataDep, 'B'}, baseViewCategories)

	return p
}

func (p *ViewPolicy) set(g Group, categories []string) {
	entry := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		entry[c] = struct{}{}
	}
	p.allowed[g] = entry
}

// Allows reports whether category is permitted for the group. Unknown
// groups allow nothing.
func (p *ViewPolicy) Allows(g Group, category string) bool {
	entry, ok := p.allowed[g]
	if !ok {
		return false
	}
	_, ok = entry[category]
	return ok
}

// Categories returns the sorted permitted category names for a group.
func (p *ViewPolicy) Categories(g Group) []string {
	entry, ok := p.allowed[g]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(entry))
	for c := range entry {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Validate confirms every (study type, letter) pair reachable under params
// has a policy entry.
func (p *ViewPolicy) Validate(params Params) error {
	for _, t := range StudyTypes() {
		for i := 0; i < len(params.GroupLetters); i++ {
			g := Group{Type: t, Letter: params.GroupLetters[i]}
			if _, ok := p.allowed[g]; !ok {
				return fmt.Errorf("%w: (%s, %s)", core.ErrPolicyEntryMissing, t, string(g.Letter))
			}
		}
	}
	return nil
}
