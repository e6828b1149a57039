package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/staffdir/staffdir/pkg/model"
	"github.com/staffdir/staffdir/pkg/queue"
	"github.com/staffdir/staffdir/pkg/store/postgres"
)

// fakeQueue records enqueued tasks instead of touching redis.
type fakeQueue struct {
	tasks []*queue.Task
}

func (q *fakeQueue) Enqueue(_ context.Context, task *queue.Task) error {
	q.tasks = append(q.tasks, task)
	return nil
}

// fakeTrust approves every caller; tests that exercise the gate swap in
// their own.
type fakeTrust struct {
	denied bool
	calls  int
}

func (t *fakeTrust) ValidateCanCreateUser(context.Context, string) (string, error) {
	t.calls++
	if t.denied {
		return "", errDenied
	}
	return "admin@example.com", nil
}

var errDenied = &deniedError{}

type deniedError struct{}

func (*deniedError) Error() string { return "denied" }

func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	store := postgres.NewStoreWithDB(db)
	if err := store.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store
}

type fixture struct {
	store *postgres.Store
	queue *fakeQueue
	trust *fakeTrust
	staff *StaffService

	company   model.Company
	other     model.Company
	dept      model.Department
	roleTitle model.RoleTitle
	team      model.Team
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: newTestStore(t),
		queue: &fakeQueue{},
		trust: &fakeTrust{},
	}
	f.staff = NewStaffService(f.store, f.trust, f.queue, zap.NewNop())

	db := f.store.DB()
	f.company = model.Company{Code: "ACME", Name: "Acme Corp"}
	f.other = model.Company{Code: "GLOBEX", Name: "Globex"}
	if err := db.Create(&f.company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	if err := db.Create(&f.other).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}

	f.dept = model.Department{Name: "Engineering", CompanyID: f.company.ID, IsActive: true}
	if err := db.Create(&f.dept).Error; err != nil {
		t.Fatalf("seed department: %v", err)
	}
	f.roleTitle = model.RoleTitle{
		Name: "Engineer", CompanyID: f.company.ID,
		DepartmentID: &f.dept.ID, IsActive: true,
	}
	if err := db.Create(&f.roleTitle).Error; err != nil {
		t.Fatalf("seed role title: %v", err)
	}
	f.team = model.Team{Name: "Platform", CompanyID: f.company.ID, IsActive: true}
	if err := db.Create(&f.team).Error; err != nil {
		t.Fatalf("seed team: %v", err)
	}
	return f
}

// createStaff inserts a staff through the service with sensible defaults.
func (f *fixture) createStaff(t *testing.T, code, email string, managerID *int64) int64 {
	t.Helper()
	id, err := f.staff.Create(context.Background(), "Bearer test", &StaffCreateRequest{
		FullName:  "Staff " + code,
		StaffCode: code,
		Email:     email,
		ManagerID: managerID,
		Companies: []CompanyAssociation{{CompanyID: f.company.ID, Email: email}},
	})
	if err != nil {
		t.Fatalf("create staff %s: %v", code, err)
	}
	return id
}
