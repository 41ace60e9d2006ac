package keycloak

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func newTestClient(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	c, err := New(testLogger(t), Config{
		BaseURL:       srv.URL,
		Realm:         "rita",
		AdminClientID: "admin-cli",
		AdminUsername: "admin",
		AdminPassword: "admin",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c.(*client)
}

func TestAdminTokenCachedWithinLeeway(t *testing.T) {
	tokenCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/protocol/openid-connect/token") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		tokenCalls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1",
			"expires_in":   300,
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	tok1, err := c.AdminToken(context.Background())
	if err != nil {
		t.Fatalf("AdminToken: %v", err)
	}
	tok2, err := c.AdminToken(context.Background())
	if err != nil {
		t.Fatalf("AdminToken (cached): %v", err)
	}
	if tok1 != "tok-1" || tok2 != "tok-1" {
		t.Fatalf("unexpected tokens %q %q", tok1, tok2)
	}
	if tokenCalls != 1 {
		t.Fatalf("expected 1 token request, got %d", tokenCalls)
	}
}

func TestAdminTokenRefreshedNearExpiry(t *testing.T) {
	tokenCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"expires_in":   300,
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	now := time.Now()
	c.now = func() time.Time { return now }
	if _, err := c.AdminToken(context.Background()); err != nil {
		t.Fatalf("AdminToken: %v", err)
	}

	// 29s of validity left: inside the 30s leeway, must refresh.
	c.now = func() time.Time { return now.Add(300*time.Second - 29*time.Second) }
	if _, err := c.AdminToken(context.Background()); err != nil {
		t.Fatalf("AdminToken (near expiry): %v", err)
	}
	if tokenCalls != 2 {
		t.Fatalf("expected 2 token requests, got %d", tokenCalls)
	}
}

func TestCreateUserReturnsIDFromLocation(t *testing.T) {
	var gotUser userRepresentation
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/protocol/openid-connect/token"):
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 300})
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/admin/realms/rita/users"):
			if err := json.NewDecoder(r.Body).Decode(&gotUser); err != nil {
				t.Fatalf("decode user: %v", err)
			}
			w.Header().Set("Location", usersURL(r)+"/abc-123")
			w.WriteHeader(http.StatusCreated)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	id, err := c.CreateUser(context.Background(), SignupData{
		Email:             "jo@example.com",
		FirstName:         "Jo",
		LastName:          "Doe",
		HashedPassword:    "hashed",
		Company:           "Acme",
		PendingUserID:     "pend-1",
		VerificationToken: "ver-1",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if id != "abc-123" {
		t.Fatalf("expected id abc-123, got %q", id)
	}
	if !gotUser.Enabled {
		t.Fatalf("user should be enabled")
	}
	if gotUser.Attributes["company"][0] != "Acme" {
		t.Fatalf("company attribute not set: %+v", gotUser.Attributes)
	}
	if len(gotUser.Credentials) != 1 || gotUser.Credentials[0].Type != "password" {
		t.Fatalf("credential not imported: %+v", gotUser.Credentials)
	}
	if strings.Contains(gotUser.Credentials[0].SecretData, "cleartext") {
		t.Fatalf("unexpected secret data %q", gotUser.Credentials[0].SecretData)
	}
}

func usersURL(r *http.Request) string {
	return "http://" + r.Host + r.URL.Path
}

func TestDeleteUserLooksUpByEmail(t *testing.T) {
	deleted := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/protocol/openid-connect/token"):
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 300})
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/admin/realms/rita/users"):
			if r.URL.Query().Get("exact") != "true" {
				t.Fatalf("lookup must use exact match")
			}
			_ = json.NewEncoder(w).Encode([]map[string]any{{"id": "user-9", "email": r.URL.Query().Get("email")}})
		case r.Method == http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	if err := c.DeleteUser(context.Background(), "jo@example.com", ""); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if !strings.HasSuffix(deleted, "/users/user-9") {
		t.Fatalf("deleted wrong path %q", deleted)
	}
}

func TestDeleteUserNotFoundPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/protocol/openid-connect/token"):
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 300})
		default:
			_ = json.NewEncoder(w).Encode([]map[string]any{})
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	if err := c.DeleteUser(context.Background(), "ghost@example.com", ""); err == nil {
		t.Fatalf("expected error for unknown user")
	}
}
