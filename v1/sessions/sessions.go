// Package sessions binds a checked username to the caller's HTTP session so
// a later attendance submission can be verified against it.
package sessions

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const (
	sessionName    = "attendance_session"
	usernameKey    = "validUsername"
	sessionMaxAge  = time.Hour
	defaultKeySize = 32
)

// IdentityBinding is the narrow view services and handlers need: read the
// bound username, set it after a successful check, and drop it.
type IdentityBinding interface {
	BoundUsername(r *http.Request) (string, bool)
	Bind(w http.ResponseWriter, r *http.Request, username string) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

// CookieBinding implements IdentityBinding on a gorilla cookie store.
// Sessions are HttpOnly, SameSite=Lax and expire after an hour.
type CookieBinding struct {
	store *sessions.CookieStore
}

// NewCookieBinding creates a binding backed by a signed cookie store.
// The secret must be kept stable across restarts or in-flight sessions
// become unreadable.
func NewCookieBinding(secret []byte) *CookieBinding {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieBinding{store: store}
}

// BoundUsername returns the username bound to the request's session, if any
func (b *CookieBinding) BoundUsername(r *http.Request) (string, bool) {
	session, err := b.store.Get(r, sessionName)
	if err != nil {
		// A tampered or stale cookie decodes to no binding
		return "", false
	}
	username, ok := session.Values[usernameKey].(string)
	if !ok || username == "" {
		return "", false
	}
	return username, true
}

// Bind stores the username in the session, replacing any previous binding.
// A stale or forged cookie fails to decode, but the store still hands back a
// fresh session alongside the error, so a valid check always re-binds.
func (b *CookieBinding) Bind(w http.ResponseWriter, r *http.Request, username string) error {
	session, _ := b.store.Get(r, sessionName)
	if session == nil {
		return errors.New("session store returned no session")
	}
	session.Values[usernameKey] = username
	return session.Save(r, w)
}

// Clear removes the binding and expires the session cookie
func (b *CookieBinding) Clear(w http.ResponseWriter, r *http.Request) error {
	session, err := b.store.Get(r, sessionName)
	if err != nil {
		return nil
	}
	delete(session.Values, usernameKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
