package iam

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/staffdir/staffdir/pkg/config"
)

func newTestClient(baseURL string) *Client {
	cfg := &config.IAMConfig{
		BaseURL:       baseURL,
		UserinfoURL:   baseURL + "/userinfo",
		Timeout:       5 * time.Second,
		TrustedEmails: []string{"hr-admin@example.com"},
		TenantID:      "1",
		SaleRoleID:    11,
	}
	return NewClient(cfg, zap.NewNop())
}

func TestFindUserIDByEmailSkipsRevoked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": "revoked-1", "email": "a@x.test", "revoked": true},
				{"id": "live-2", "email": "a@x.test", "revoked": false},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	id := client.FindUserIDByEmail(context.Background(), "Bearer t", "a@x.test")
	if id != "live-2" {
		t.Fatalf("expected live-2, got %q", id)
	}
}

func TestFindUserIDByEmailLookupFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if id := client.FindUserIDByEmail(context.Background(), "Bearer t", "a@x.test"); id != "" {
		t.Fatalf("expected empty id on failure, got %q", id)
	}
}

func TestCreateUserRetriesDuplicatePhone(t *testing.T) {
	var attempts int
	var phones []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		phones = append(phones, body["phone_number"])
		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 1019}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"item": map[string]any{"id": "user-9"}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	id, err := client.CreateUser(context.Background(), "Bearer t", UserProfile{
		FullName: "A", Email: "a@x.test", PhoneNumber: "0123456789",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if id != "user-9" {
		t.Fatalf("expected user-9, got %q", id)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if phones[1] == phones[0] && phones[2] == phones[0] {
		t.Fatal("expected retries to regenerate the phone number")
	}
}

func TestCreateUserGivesUpAfterRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 1019}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.CreateUser(context.Background(), "Bearer t", UserProfile{
		FullName: "A", Email: "a@x.test", PhoneNumber: "0123456789",
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestValidateCanCreateUser(t *testing.T) {
	email := "hr-admin@example.com"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"email": email})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	got, err := client.ValidateCanCreateUser(context.Background(), "Bearer t")
	if err != nil {
		t.Fatalf("trusted caller rejected: %v", err)
	}
	if got != email {
		t.Fatalf("expected %q, got %q", email, got)
	}

	email = "intruder@example.com"
	if _, err := client.ValidateCanCreateUser(context.Background(), "Bearer t"); err == nil {
		t.Fatal("expected untrusted caller to be rejected")
	}

	if _, err := client.ValidateCanCreateUser(context.Background(), ""); err == nil {
		t.Fatal("expected empty token to be rejected")
	}
}

func TestSetRolesRevokesThenGrants(t *testing.T) {
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.SetRoles(context.Background(), "Bearer t", "user-1", []int{11}); err != nil {
		t.Fatalf("set roles: %v", err)
	}
	if len(methods) != 2 || methods[0] != http.MethodDelete || methods[1] != http.MethodPost {
		t.Fatalf("expected DELETE then POST, got %v", methods)
	}
}
