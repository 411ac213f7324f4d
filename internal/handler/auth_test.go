package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"ecoscanner/internal/logger"
	"ecoscanner/internal/middleware"
	"ecoscanner/internal/repository/sqlite"
	"ecoscanner/internal/service/account"
)

// ========================================
// Test Setup Helpers
// ========================================

func setupAccounts(t *testing.T) *account.Service {
	t.Helper()
	accounts, err := account.NewService(sqlite.NewUserRepository(setupTestDB(t)), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to create account service: %v", err)
	}
	return accounts
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// sessionUser replays the cookies set by a response through the auth
// middleware and returns the username it resolves.
func sessionUser(t *testing.T, store sessions.Store, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var got string
	resolve := middleware.AuthMiddleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = currentUser(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	for _, c := range resp.Result().Cookies() {
		req.AddCookie(c)
	}
	resolve.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

// ========================================
// Signup Handler Tests
// ========================================

func TestSignupHandler(t *testing.T) {
	accounts := setupAccounts(t)
	handler := SignupHandler(accounts, logger.Discard())

	tests := []struct {
		name     string
		username string
		password string
		code     int
	}{
		{"created", "alice", "s3cret", http.StatusCreated},
		{"duplicate", "alice", "other", http.StatusConflict},
		{"duplicate after trimming", "  alice ", "other", http.StatusConflict},
		{"missing password", "bob", "", http.StatusBadRequest},
		{"missing username", "   ", "pw", http.StatusBadRequest},
		{"password too long", "carol", strings.Repeat("p", 73), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler(w, formRequest("/auth/signup", url.Values{"username": {tt.username}, "password": {tt.password}}))
			if w.Code != tt.code {
				t.Errorf("Expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
		})
	}
}

func TestSignupHandler_ReturnsStoredUsername(t *testing.T) {
	w := httptest.NewRecorder()
	SignupHandler(setupAccounts(t), logger.Discard())(w, formRequest("/auth/signup", url.Values{"username": {" dave "}, "password": {"pw"}}))

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"username":"dave"`) {
		t.Errorf("Expected trimmed username in response, got %s", w.Body.String())
	}
}

// ========================================
// Login and Logout Handler Tests
// ========================================

func TestLoginHandler(t *testing.T) {
	accounts := setupAccounts(t)
	store := middleware.NewSessionStore("test-secret")
	if _, err := accounts.CreateUser(context.Background(), "alice", "s3cret", ""); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	handler := LoginHandler(accounts, store, logger.Discard())

	w := httptest.NewRecorder()
	handler(w, formRequest("/auth/login", url.Values{"username": {"alice"}, "password": {"wrong"}}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Wrong password: expected 401, got %d", w.Code)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("Failed login must not set a session cookie")
	}

	w = httptest.NewRecorder()
	handler(w, formRequest("/auth/login", url.Values{"username": {"nobody"}, "password": {"s3cret"}}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Unknown user: expected 401, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler(w, formRequest("/auth/login", url.Values{"username": {"alice"}, "password": {"s3cret"}}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if got := sessionUser(t, store, w); got != "alice" {
		t.Errorf("Expected session for alice, got %q", got)
	}
}

func TestLoginHandler_SessionUsesStoredUsername(t *testing.T) {
	accounts := setupAccounts(t)
	store := middleware.NewSessionStore("test-secret")
	if _, err := accounts.CreateUser(context.Background(), "alice", "s3cret", ""); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	w := httptest.NewRecorder()
	LoginHandler(accounts, store, logger.Discard())(w, formRequest("/auth/login", url.Values{"username": {" alice "}, "password": {"s3cret"}}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	if got := sessionUser(t, store, w); got != "alice" {
		t.Errorf("Session username %q does not match account alice", got)
	}
}

func TestLogoutHandler(t *testing.T) {
	store := middleware.NewSessionStore("test-secret")
	handler := LogoutHandler(store, logger.Discard())

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET logout: expected 405, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 || cookies[0].MaxAge >= 0 {
		t.Errorf("Expected an expiring session cookie, got %+v", cookies)
	}
}
