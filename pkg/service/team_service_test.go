package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/staffdir/staffdir/pkg/model"
	"github.com/staffdir/staffdir/pkg/paging"
)

func newTeamService(f *fixture) *TeamService {
	return NewTeamService(f.store, zap.NewNop())
}

func TestTeamNameUniqueCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	svc := newTeamService(f)

	_, err := svc.Create(context.Background(), &TeamCreateRequest{
		Name: "PLATFORM", CompanyID: f.company.ID,
	})
	wantCode(t, err, "160")

	// same name in another company is fine
	if _, err := svc.Create(context.Background(), &TeamCreateRequest{
		Name: "Platform", CompanyID: f.other.ID,
	}); err != nil {
		t.Fatalf("create in other company: %v", err)
	}
}

func TestTeamNameReusableAfterDeactivation(t *testing.T) {
	f := newFixture(t)
	svc := newTeamService(f)

	inactive := false
	if err := svc.Update(context.Background(), f.team.ID, &TeamUpdateRequest{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := svc.Create(context.Background(), &TeamCreateRequest{
		Name: "Platform", CompanyID: f.company.ID,
	}); err != nil {
		t.Fatalf("recreate: %v", err)
	}
}

func TestTeamDeactivateRetiresMemberships(t *testing.T) {
	f := newFixture(t)
	svc := newTeamService(f)
	staffID, err := f.staff.Create(context.Background(), "Bearer test", &StaffCreateRequest{
		FullName: "Member", StaffCode: "S1", Email: "m@acme.test",
		Companies: []CompanyAssociation{{CompanyID: f.company.ID, Email: "m@acme.test"}},
		TeamIDs:   []int64{f.team.ID},
	})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}

	inactive := false
	if err := svc.Update(context.Background(), f.team.ID, &TeamUpdateRequest{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	memberships, err := f.staff.Detail(context.Background(), staffID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(memberships.Staff.Item.Teams) != 0 {
		t.Fatalf("expected no team refs after deactivation, got %v", memberships.Staff.Item.Teams)
	}
}

func TestTeamUpdateNotFound(t *testing.T) {
	f := newFixture(t)
	svc := newTeamService(f)
	err := svc.Update(context.Background(), 9999, &TeamUpdateRequest{Name: "X"})
	wantCode(t, err, "161")
}

func TestTeamDetailCountsMembers(t *testing.T) {
	f := newFixture(t)
	svc := newTeamService(f)

	for i, email := range []string{"a@acme.test", "b@acme.test"} {
		_, err := f.staff.Create(context.Background(), "Bearer test", &StaffCreateRequest{
			FullName: "Member", StaffCode: "M" + string(rune('1'+i)), Email: email,
			Companies: []CompanyAssociation{{CompanyID: f.company.ID, Email: email}},
			TeamIDs:   []int64{f.team.ID},
		})
		if err != nil {
			t.Fatalf("create staff: %v", err)
		}
	}

	team, err := svc.Get(context.Background(), f.team.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if team.MemberCount != 2 {
		t.Fatalf("expected 2 members, got %d", team.MemberCount)
	}

	items, _, err := svc.List(context.Background(), &TeamListFilter{CompanyID: f.company.ID}, &paging.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].MemberCount != 2 {
		t.Fatalf("expected the listed team to carry its member count, got %+v", items)
	}
}

func TestTeamUpdateStaffsReplacesMembership(t *testing.T) {
	f := newFixture(t)
	svc := newTeamService(f)

	var ids []int64
	for i, email := range []string{"a@acme.test", "b@acme.test"} {
		id, err := f.staff.Create(context.Background(), "Bearer test", &StaffCreateRequest{
			FullName: "Member", StaffCode: "M" + string(rune('1'+i)), Email: email,
			Companies: []CompanyAssociation{{CompanyID: f.company.ID, Email: email}},
		})
		if err != nil {
			t.Fatalf("create staff: %v", err)
		}
		ids = append(ids, id)
	}

	if err := svc.UpdateStaffs(context.Background(), f.team.ID, ids); err != nil {
		t.Fatalf("update staffs: %v", err)
	}
	team, err := svc.Get(context.Background(), f.team.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if team.MemberCount != 2 {
		t.Fatalf("expected 2 members, got %d", team.MemberCount)
	}

	// narrowing the set retires the dropped member and keeps its history row
	if err := svc.UpdateStaffs(context.Background(), f.team.ID, ids[:1]); err != nil {
		t.Fatalf("update staffs: %v", err)
	}
	var rows []model.StaffTeam
	if err := f.store.DB().Where("team_id = ?", f.team.ID).Find(&rows).Error; err != nil {
		t.Fatalf("load memberships: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected both membership rows kept, got %d", len(rows))
	}
	active := 0
	for _, row := range rows {
		if row.IsActive {
			active++
			if row.StaffID != ids[0] {
				t.Fatalf("wrong member left active: %d", row.StaffID)
			}
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active membership, got %d", active)
	}
}

func TestTeamUpdateStaffsRejectsOtherCompany(t *testing.T) {
	f := newFixture(t)
	svc := newTeamService(f)

	outsider, err := f.staff.Create(context.Background(), "Bearer test", &StaffCreateRequest{
		FullName: "Outsider", StaffCode: "O1", Email: "out@globex.test",
		Companies: []CompanyAssociation{{CompanyID: f.other.ID, Email: "out@globex.test"}},
	})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	err = svc.UpdateStaffs(context.Background(), f.team.ID, []int64{outsider})
	wantCode(t, err, "134")
}
