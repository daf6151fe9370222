// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	DefaultSessionName = "eduverse-session"

	isAdminKey   = "is_admin"
	grantedAtKey = "granted_at"
)

// ErrEmptyAdminKey is returned when no access key is configured.
var ErrEmptyAdminKey = errors.New("auth: admin key is empty")

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager guards the admin surface with one shared access key. A
// request that presents the key verbatim gets a cookie session marking it as
// admin; there is no per-user identity.
type SessionManager struct {
	store    *sessions.CookieStore
	name     string
	adminKey string
	log      *zap.Logger
}

// NewSessionManager builds the cookie store. An empty sessionKey gets a
// random one, which invalidates sessions on every restart.
//
// In production (secure=true) cookies are Secure + SameSite=None. For local
// development over http://localhost use secure=false.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, adminKey string, logger *zap.Logger) (*SessionManager, error) {
	if adminKey == "" {
		return nil, ErrEmptyAdminKey
	}
	if name == "" {
		name = DefaultSessionName
	}

	key := []byte(sessionKey)
	switch {
	case len(key) == 0:
		key = securecookie.GenerateRandomKey(32)
		logger.Warn("session key not set; using a random key for this process")
	case len(key) < 32:
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(key)))
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, adminKey: adminKey, log: logger}, nil
}

// CheckKey compares input with the access key exactly as typed.
func (m *SessionManager) CheckKey(input string) bool {
	return subtle.ConstantTimeCompare([]byte(input), []byte(m.adminKey)) == 1
}

// Login marks the request's session as admin when input matches the key.
// It reports whether the key matched.
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, input string) (bool, error) {
	if !m.CheckKey(input) {
		m.log.Info("admin key rejected", zap.String("remote_addr", r.RemoteAddr))
		return false, nil
	}
	sess, _ := m.store.Get(r, m.name)
	sess.Values[isAdminKey] = true
	sess.Values[grantedAtKey] = time.Now().UTC().Unix()
	if err := sess.Save(r, w); err != nil {
		return true, err
	}
	m.log.Info("admin session granted", zap.String("remote_addr", r.RemoteAddr))
	return true, nil
}

// Logout clears the admin session.
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, m.name)
	delete(sess.Values, isAdminKey)
	delete(sess.Values, grantedAtKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const adminCtxKey ctxKey = "isAdmin"

// IsAdmin reports whether LoadSession found an admin session.
func IsAdmin(r *http.Request) bool {
	ok, _ := r.Context().Value(adminCtxKey).(bool)
	return ok
}

// LoadSession marks the request context when the session is an admin one.
func (m *SessionManager) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := m.store.Get(r, m.name)
		if ok, _ := sess.Values[isAdminKey].(bool); ok {
			r = r.WithContext(context.WithValue(r.Context(), adminCtxKey, true))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests without an admin session.
//   - HTML: 303 redirect to /
//   - API:  401 Unauthorized with a plain error body.
func (m *SessionManager) RequireAdmin(next http.Handler) http.Handler {
	return m.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsAdmin(r) {
			next.ServeHTTP(w, r)
			return
		}
		if wantsHTML(r) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
