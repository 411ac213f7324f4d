package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	// SessionName is the cookie name.
	SessionName = "ecoscanner_session"
	usernameKey = "username"
	// 30 days
	sessionMaxAge = 2592000
)

// Session is the authenticated identity attached to a request.
type Session struct {
	Username string
}

type sessionKey struct{}

// NewSessionStore creates a signed and encrypted cookie store derived from secret.
func NewSessionStore(secret string) *sessions.CookieStore {
	store := sessions.NewCookieStore(createSessionKey(secret), createSessionKey(secret+"encryption"))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func createSessionKey(seed string) []byte {
	hasher := sha256.New()
	hasher.Write([]byte(seed))
	return hasher.Sum(nil)
}

// StartSession stores username in the session cookie.
func StartSession(w http.ResponseWriter, r *http.Request, store sessions.Store, username string) error {
	session, _ := store.Get(r, SessionName)
	session.Values[usernameKey] = username
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// EndSession expires the session cookie.
func EndSession(w http.ResponseWriter, r *http.Request, store sessions.Store) error {
	session, _ := store.Get(r, SessionName)
	delete(session.Values, usernameKey)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session attached by AuthMiddleware.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok && s.Username != ""
}

func lookupSession(r *http.Request, store sessions.Store) (Session, bool) {
	session, err := store.Get(r, SessionName)
	if err != nil {
		return Session{}, false
	}
	username, ok := session.Values[usernameKey].(string)
	if !ok || username == "" {
		return Session{}, false
	}
	return Session{Username: username}, true
}
