package orgtree

import (
	"testing"
)

type row struct {
	id       int64
	parentID *int64
}

func ptr(v int64) *int64 { return &v }

func rowID(r row) int64      { return r.id }
func rowParent(r row) *int64 { return r.parentID }

func TestBuildFlatManagerWithThreeReports(t *testing.T) {
	rows := []row{
		{id: 1},
		{id: 2, parentID: ptr(1)},
		{id: 3, parentID: ptr(1)},
		{id: 4, parentID: ptr(1)},
	}

	roots := Build(rows, rowID, rowParent)

	if len(roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(roots))
	}
	if roots[0].DescendantCount != 3 {
		t.Fatalf("expected descendant count 3, got %d", roots[0].DescendantCount)
	}
	if len(roots[0].Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(roots[0].Children))
	}
	for _, child := range roots[0].Children {
		if child.DescendantCount != 0 {
			t.Fatalf("leaf %d should report 0 descendants, got %d", child.ID, child.DescendantCount)
		}
	}
}

func TestBuildThreeLevelChain(t *testing.T) {
	rows := []row{
		{id: 10},
		{id: 11, parentID: ptr(10)},
		{id: 12, parentID: ptr(11)},
	}

	roots := Build(rows, rowID, rowParent)

	if len(roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(roots))
	}
	root := roots[0]
	if root.DescendantCount != 2 {
		t.Fatalf("expected root count 2, got %d", root.DescendantCount)
	}
	if len(root.Children) != 1 || root.Children[0].DescendantCount != 1 {
		t.Fatalf("expected middle node count 1, got %+v", root.Children)
	}
}

func TestBuildTreatsDanglingParentAsRoot(t *testing.T) {
	rows := []row{
		{id: 1, parentID: ptr(99)},
		{id: 2, parentID: ptr(1)},
	}

	roots := Build(rows, rowID, rowParent)

	if len(roots) != 1 || roots[0].ID != 1 {
		t.Fatalf("node with parent outside the set should be a root, got %+v", roots)
	}
	if roots[0].DescendantCount != 1 {
		t.Fatalf("expected descendant count 1, got %d", roots[0].DescendantCount)
	}
}

func TestBuildMultipleRoots(t *testing.T) {
	rows := []row{
		{id: 1},
		{id: 2},
		{id: 3, parentID: ptr(2)},
	}

	roots := Build(rows, rowID, rowParent)

	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
}

func TestDescendantIDs(t *testing.T) {
	rows := []row{
		{id: 1},
		{id: 2, parentID: ptr(1)},
		{id: 3, parentID: ptr(2)},
		{id: 4, parentID: ptr(2)},
		{id: 5},
	}

	ids := DescendantIDs(rows, rowID, rowParent, 1)

	seen := make(map[int64]bool)
	for _, id := range ids {
		seen[id] = true
	}
	if len(ids) != 3 || !seen[2] || !seen[3] || !seen[4] {
		t.Fatalf("expected descendants {2,3,4}, got %v", ids)
	}

	if got := DescendantIDs(rows, rowID, rowParent, 5); len(got) != 0 {
		t.Fatalf("expected no descendants for leaf, got %v", got)
	}
}

// Unvalidated inputs may carry cycles; the walk must visit each key once and
// terminate.
func TestDescendantIDsTerminatesOnCycle(t *testing.T) {
	rows := []row{
		{id: 1, parentID: ptr(3)},
		{id: 2, parentID: ptr(1)},
		{id: 3, parentID: ptr(2)},
	}

	ids := DescendantIDs(rows, rowID, rowParent, 1)

	seen := make(map[int64]bool)
	for _, id := range ids {
		seen[id] = true
	}
	if len(ids) != 2 || !seen[2] || !seen[3] {
		t.Fatalf("expected descendants {2,3}, got %v", ids)
	}
}

type link struct {
	email   string
	manager *string
}

func TestDescendantIDsStringKeys(t *testing.T) {
	boss := "boss@x.test"
	lead := "lead@x.test"
	rows := []link{
		{email: boss},
		{email: lead, manager: &boss},
		{email: "dev@x.test", manager: &lead},
	}

	ids := DescendantIDs(rows,
		func(l link) string { return l.email },
		func(l link) *string { return l.manager },
		boss)

	if len(ids) != 2 {
		t.Fatalf("expected 2 descendants, got %v", ids)
	}
}

func TestMergeTeams(t *testing.T) {
	staffIDs := []int64{1, 2, 3, 5}
	memberships := []Membership{
		{StaffID: 1, TeamID: 100, TeamName: "alpha"},
		{StaffID: 1, TeamID: 101, TeamName: "beta"},
		{StaffID: 3, TeamID: 100, TeamName: "alpha"},
		// staff 4 is not in staffIDs, must be skipped
		{StaffID: 4, TeamID: 102, TeamName: "gamma"},
	}

	result := MergeTeams(staffIDs, memberships)

	if len(result) != 4 {
		t.Fatalf("expected an entry per staff id, got %d", len(result))
	}
	if len(result[1]) != 2 || result[1][0].TeamName != "alpha" || result[1][1].TeamName != "beta" {
		t.Fatalf("unexpected teams for staff 1: %+v", result[1])
	}
	if len(result[2]) != 0 {
		t.Fatalf("staff 2 should have an empty team list, got %+v", result[2])
	}
	if len(result[3]) != 1 || result[3][0].TeamID != 100 {
		t.Fatalf("unexpected teams for staff 3: %+v", result[3])
	}
	if len(result[5]) != 0 {
		t.Fatalf("staff past the last membership row should still get an empty list, got %+v", result[5])
	}
}

func TestMergeTeamsEmptyInputs(t *testing.T) {
	if got := MergeTeams(nil, nil); len(got) != 0 {
		t.Fatalf("expected empty map, got %+v", got)
	}
	result := MergeTeams([]int64{7}, nil)
	if teams, ok := result[7]; !ok || len(teams) != 0 {
		t.Fatalf("expected empty list for staff 7, got %+v", result)
	}
}
