package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/staffdir/staffdir/pkg/config"
	"github.com/staffdir/staffdir/pkg/iam"
	"github.com/staffdir/staffdir/pkg/model"
	"github.com/staffdir/staffdir/pkg/queue"
	"github.com/staffdir/staffdir/pkg/store/postgres"
)

// iamStub is a scriptable identity provider. It records created users and
// role grants keyed by user id.
type iamStub struct {
	server  *httptest.Server
	users   map[string]string // email -> id
	roles   map[string][]int
	created int
}

func newIAMStub() *iamStub {
	stub := &iamStub{users: map[string]string{}, roles: map[string][]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		email := r.URL.Query().Get("email")
		items := []map[string]any{}
		if id, ok := stub.users[email]; ok {
			items = append(items, map[string]any{"id": id, "email": email})
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	})
	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		stub.created++
		id := "user-" + body["email"]
		stub.users[body["email"]] = id
		json.NewEncoder(w).Encode(map[string]any{"item": map[string]any{"id": id}})
	})
	mux.HandleFunc("GET /users/{id}/roles", func(w http.ResponseWriter, r *http.Request) {
		items := []map[string]any{}
		for _, roleID := range stub.roles[r.PathValue("id")] {
			items = append(items, map[string]any{"id": roleID})
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	})
	mux.HandleFunc("POST /users/{id}/roles", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RoleIDs []int `json:"role_ids"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		stub.roles[r.PathValue("id")] = append(stub.roles[r.PathValue("id")], body.RoleIDs...)
		w.Write([]byte("{}"))
	})
	mux.HandleFunc("DELETE /users/{id}/roles", func(w http.ResponseWriter, r *http.Request) {
		stub.roles[r.PathValue("id")] = nil
		w.Write([]byte("{}"))
	})
	stub.server = httptest.NewServer(mux)
	return stub
}

func newSyncFixture(t *testing.T) (*Syncer, *iamStub, *postgres.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store := postgres.NewStoreWithDB(db)
	if err := store.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	stub := newIAMStub()
	t.Cleanup(stub.server.Close)

	cfg := &config.IAMConfig{
		BaseURL:    stub.server.URL,
		Timeout:    5 * time.Second,
		TenantID:   "1",
		SaleRoleID: 11,
	}
	client := iam.NewClient(cfg, zap.NewNop())
	return NewSyncer(store, client, zap.NewNop()), stub, store
}

func TestHandleTaskSyncsStaff(t *testing.T) {
	syncer, stub, _ := newSyncFixture(t)

	err := syncer.HandleTask(context.Background(), &queue.Task{
		Type:        queue.TaskStaffSync,
		Token:       "Bearer t",
		FullName:    "Sales Person",
		Email:       "sale@acme.test",
		PhoneNumber: "0900000001",
		RoleName:    model.RoleSale,
	})
	if err != nil {
		t.Fatalf("handle task: %v", err)
	}

	userID, ok := stub.users["sale@acme.test"]
	if !ok {
		t.Fatal("expected user to be created")
	}
	if roles := stub.roles[userID]; len(roles) != 1 || roles[0] != 11 {
		t.Fatalf("expected sale role granted, got %v", roles)
	}
}

func TestHandleTaskSkipsNonSalesRole(t *testing.T) {
	syncer, stub, _ := newSyncFixture(t)

	err := syncer.HandleTask(context.Background(), &queue.Task{
		Type:     queue.TaskStaffSync,
		Email:    "eng@acme.test",
		RoleName: "Engineer",
	})
	if err != nil {
		t.Fatalf("handle task: %v", err)
	}
	if stub.created != 0 {
		t.Fatal("non-sales roles must not create IAM users")
	}
}

func TestReconcileCreatesMissingUsers(t *testing.T) {
	syncer, stub, store := newSyncFixture(t)

	db := store.DB()
	company := model.Company{Code: "ACME", Name: "Acme"}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	dept := model.Department{Name: "Sales", CompanyID: company.ID, IsActive: true}
	if err := db.Create(&dept).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	title := model.RoleTitle{
		Name: model.RoleSale, CompanyID: company.ID,
		DepartmentID: &dept.ID, IsActive: true,
	}
	if err := db.Create(&title).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	staff := model.Staff{
		FullName: "Missing", StaffCode: "S1", Email: "missing@acme.test",
		CompanyID: company.ID, IsActive: true,
	}
	if err := db.Create(&staff).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	attachment := model.DepartmentStaff{
		DepartmentID: dept.ID, StaffID: staff.ID, RoleTitleID: &title.ID, IsActive: true,
	}
	if err := db.Create(&attachment).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := syncer.Reconcile(context.Background(), "Bearer t"); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if _, ok := stub.users["missing@acme.test"]; !ok {
		t.Fatal("expected reconcile to create the missing user")
	}
}
