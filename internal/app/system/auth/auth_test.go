package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/eduverse/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		"26127",
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func protected() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("admin content"))
	})
}

func TestNewSessionManager_EmptyAdminKey(t *testing.T) {
	_, err := auth.NewSessionManager("k", "", "", time.Hour, false, "", zap.NewNop())
	if err != auth.ErrEmptyAdminKey {
		t.Errorf("expected ErrEmptyAdminKey, got %v", err)
	}
}

func TestNewSessionManager_RandomKeyWhenEmpty(t *testing.T) {
	if _, err := auth.NewSessionManager("", "", "", time.Hour, false, "k", zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckKey_Verbatim(t *testing.T) {
	sm := newTestSessionManager(t)

	tests := []struct {
		input string
		want  bool
	}{
		{"26127", true},
		{" 26127", false},
		{"26127 ", false},
		{"2612", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := sm.CheckKey(tt.input); got != tt.want {
			t.Errorf("CheckKey(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestRequireAdmin_NoSession_API_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)

	req := httptest.NewRequest("GET", "/admin/api/batches", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	sm.RequireAdmin(protected()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireAdmin_NoSession_HTML_Redirects(t *testing.T) {
	sm := newTestSessionManager(t)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	sm.RequireAdmin(protected()).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}
}

func login(t *testing.T, sm *auth.SessionManager, key string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/admin/login", nil)
	ok, err := sm.Login(rec, req, key)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return rec, ok
}

func TestLogin_WrongKeySetsNoCookie(t *testing.T) {
	sm := newTestSessionManager(t)

	rec, ok := login(t, sm, "wrong")
	if ok {
		t.Fatal("expected wrong key to be rejected")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("expected no session cookie")
	}
}

func TestLogin_ThenRequireAdminPasses(t *testing.T) {
	sm := newTestSessionManager(t)

	rec, ok := login(t, sm, "26127")
	if !ok {
		t.Fatal("expected key to be accepted")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	req := httptest.NewRequest("GET", "/admin/api/batches", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	out := httptest.NewRecorder()
	sm.RequireAdmin(protected()).ServeHTTP(out, req)

	if out.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, out.Code)
	}
}

func TestLoadSession_SetsIsAdmin(t *testing.T) {
	sm := newTestSessionManager(t)
	rec, _ := login(t, sm, "26127")

	req := httptest.NewRequest("GET", "/api/status", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	var seen bool
	sm.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.IsAdmin(r)
	})).ServeHTTP(httptest.NewRecorder(), req)

	if !seen {
		t.Error("expected IsAdmin to be true")
	}
}

func TestLogout_ExpiresCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	rec, _ := login(t, sm, "26127")

	req := httptest.NewRequest("POST", "/admin/logout", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	out := httptest.NewRecorder()
	if err := sm.Logout(out, req); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	cookies := out.Result().Cookies()
	if len(cookies) == 0 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected an expiring cookie, got %+v", cookies)
	}
}
