package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/staffdir/staffdir/pkg/model"
)

func newRoleTitleService(f *fixture) *RoleTitleService {
	return NewRoleTitleService(f.store, zap.NewNop())
}

func TestRoleTitleCreateChecks(t *testing.T) {
	f := newFixture(t)
	svc := newRoleTitleService(f)

	_, err := svc.Create(context.Background(), &RoleTitleCreateRequest{
		Name: "X", CompanyID: 9999,
	})
	wantCode(t, err, "061")

	// department owned by another company
	otherDept := model.Department{Name: "Elsewhere", CompanyID: f.other.ID, IsActive: true}
	if err := f.store.DB().Create(&otherDept).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err = svc.Create(context.Background(), &RoleTitleCreateRequest{
		Name: "X", CompanyID: f.company.ID, DepartmentID: &otherDept.ID,
	})
	wantCode(t, err, "192")

	closed := model.Department{Name: "Closed", CompanyID: f.company.ID, IsActive: false}
	if err := f.store.DB().Create(&closed).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err = svc.Create(context.Background(), &RoleTitleCreateRequest{
		Name: "X", CompanyID: f.company.ID, DepartmentID: &closed.ID,
	})
	wantCode(t, err, "197")
}

// Two departments may both carry a "Manager" title.
func TestRoleTitleDuplicateNamesAllowed(t *testing.T) {
	f := newFixture(t)
	svc := newRoleTitleService(f)
	second := model.Department{Name: "Support", CompanyID: f.company.ID, IsActive: true}
	if err := f.store.DB().Create(&second).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	for _, deptID := range []int64{f.dept.ID, second.ID} {
		id := deptID
		if _, err := svc.Create(context.Background(), &RoleTitleCreateRequest{
			Name: "Manager", CompanyID: f.company.ID, DepartmentID: &id,
		}); err != nil {
			t.Fatalf("create in %d: %v", deptID, err)
		}
	}
}

func TestRoleTitleOwnershipImmutable(t *testing.T) {
	f := newFixture(t)
	svc := newRoleTitleService(f)

	err := svc.Update(context.Background(), f.roleTitle.ID, &RoleTitleUpdateRequest{
		CompanyID: &f.other.ID,
	})
	wantCode(t, err, "195")

	other := int64(999)
	err = svc.Update(context.Background(), f.roleTitle.ID, &RoleTitleUpdateRequest{
		DepartmentID: &other,
	})
	wantCode(t, err, "194")
}

func TestRoleTitleDeactivateWithStaff(t *testing.T) {
	f := newFixture(t)
	svc := newRoleTitleService(f)
	_, err := f.staff.Create(context.Background(), "Bearer test", &StaffCreateRequest{
		FullName: "Holder", StaffCode: "S1", Email: "h@acme.test",
		Companies:  []CompanyAssociation{{CompanyID: f.company.ID, Email: "h@acme.test"}},
		Department: &DepartmentAttachment{DepartmentID: f.dept.ID, RoleTitleID: &f.roleTitle.ID},
	})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}

	inactive := false
	err = svc.Update(context.Background(), f.roleTitle.ID, &RoleTitleUpdateRequest{IsActive: &inactive})
	wantCode(t, err, "193")
}

// Reviving a title under a retired department must fail and leave the row
// untouched, name edits included.
func TestRoleTitleReactivationUnderInactiveDepartment(t *testing.T) {
	f := newFixture(t)
	svc := newRoleTitleService(f)

	inactive := false
	if err := svc.Update(context.Background(), f.roleTitle.ID, &RoleTitleUpdateRequest{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate title: %v", err)
	}
	if err := f.store.DB().Model(&model.Department{}).
		Where("id = ?", f.dept.ID).
		Update("is_active", false).Error; err != nil {
		t.Fatalf("retire department: %v", err)
	}

	active := true
	err := svc.Update(context.Background(), f.roleTitle.ID, &RoleTitleUpdateRequest{
		Name: "Renamed", IsActive: &active,
	})
	wantCode(t, err, "197")

	var title model.RoleTitle
	if err := f.store.DB().First(&title, f.roleTitle.ID).Error; err != nil {
		t.Fatalf("load title: %v", err)
	}
	if title.IsActive {
		t.Fatal("title must stay inactive")
	}
	if title.Name != "Engineer" {
		t.Fatalf("title must keep its name, got %q", title.Name)
	}
}
