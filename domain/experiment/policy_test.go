package experiment

import (
	"testing"
)

// TestDefaultViewPolicyCoversAllPairs tests every reachable (type, group)
// pair has an entry under the default parameters.
func TestDefaultViewPolicyCoversAllPairs(t *testing.T) {
	if err := DefaultViewPolicy().Validate(DefaultParams()); err != nil {
		t.Fatalf("policy incomplete: %v", err)
	}
}

// TestViewPolicyGatesTreatmentPanels tests the evaluated panel is only
// visible to the treatment group of its study.
func TestViewPolicyGatesTreatmentPanels(t *testing.T) {
	policy := DefaultViewPolicy()

	tests := []struct {
		group    Group
		category string
		allowed  bool
	}{
		{Group{StudyProximity, 'A'}, "proximity", true},
		{Group{StudyProximity, 'B'}, "proximity", false},
		{Group{StudyDataDep, 'A'}, "data_dependency", true},
		{Group{StudyDataDep, 'B'}, "data_dependency", false},
		// Treatment panels never leak across studies.
		{Group{StudyProximity, 'A'}, "data_dependency", false},
		{Group{StudyDataDep, 'A'}, "proximity", false},
	}
	for _, test := range tests {
		if got := policy.Allows(test.group, test.category); got != test.allowed {
			t.Errorf("Allows(%s, %s) = %v, want %v", test.group, test.category, got, test.allowed)
		}
	}
}

// TestViewPolicyBaseCategories tests base panels are allowed for every group
func TestViewPolicyBaseCategories(t *testing.T) {
	policy := DefaultViewPolicy()
	groups := []Group{
		{StudyProximity, 'A'},
		{StudyProximity, 'B'},
		{StudyDataDep, 'A'},
		{StudyDataDep, 'B'},
	}
	for _, g := range groups {
		for _, category := range baseViewCategories {
			if !policy.Allows(g, category) {
				t.Errorf("base category %s denied for %s", category, g)
			}
		}
		if policy.Allows(g, "nonexistent_panel") {
			t.Errorf("unknown category allowed for %s", g)
		}
	}
}

// TestViewPolicyUnknownGroup tests lookups outside the table allow nothing
func TestViewPolicyUnknownGroup(t *testing.T) {
	policy := DefaultViewPolicy()
	if policy.Allows(Group{StudyProximity, 'Z'}, "functions") {
		t.Error("unknown group allowed a category")
	}
	if cats := policy.Categories(Group{StudyProximity, 'Z'}); cats != nil {
		t.Errorf("unknown group has categories: %v", cats)
	}
}
