package auth

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName   = "postroom_session"
	userIDKey     = "user_id"
	sessionMaxAge = 14 * 24 * 60 * 60
)

// Sessions stores the logged in user id in a signed cookie.
type Sessions struct {
	store sessions.Store
}

// NewSessions creates a cookie backed session manager. secret signs the
// cookie and must stay stable across restarts.
func NewSessions(secret []byte, secure bool) *Sessions {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store}
}

// UserID returns the id stored in the session, or 0.
func (s *Sessions) UserID(r *http.Request) int {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		return 0
	}
	id, _ := session.Values[userIDKey].(int)
	return id
}

// Login records userID in the session cookie.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, userID int) error {
	session, _ := s.store.Get(r, sessionName)
	session.Values[userIDKey] = userID
	return session.Save(r, w)
}

// Logout expires the session cookie.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, sessionName)
	delete(session.Values, userIDKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
