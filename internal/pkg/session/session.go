// Package session keeps the shopper's cart id and pending notifications in a
// signed cookie.
package session

import (
	"encoding/gob"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const (
	CookieName = "cc_session"
	keyCartID  = "cart_id"
	maxAge     = 30 * 24 * 60 * 60
)

// Flash is a one-shot notification carried to the next page view.
type Flash struct {
	Message string
	Kind    string
}

func init() {
	gob.Register(Flash{})
}

type Manager struct {
	store *sessions.CookieStore
}

// NewManager signs cookies with secret. An empty secret gets a random key,
// which means sessions do not survive a restart.
func NewManager(secret string, secure bool) *Manager {
	key := []byte(secret)
	if len(key) == 0 {
		slog.Warn("SESSION_SECRET not set, using a random key")
		key = securecookie.GenerateRandomKey(32)
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store}
}

// get never fails: a cookie that does not verify is replaced by a fresh
// session.
func (m *Manager) get(r *http.Request) *sessions.Session {
	s, err := m.store.Get(r, CookieName)
	if err != nil {
		slog.DebugContext(r.Context(), "discarding unreadable session cookie", "error", err)
	}
	return s
}

func (m *Manager) save(w http.ResponseWriter, r *http.Request, s *sessions.Session) {
	if err := s.Save(r, w); err != nil {
		slog.ErrorContext(r.Context(), "error saving session", "error", err)
	}
}

// CartID returns the id that scopes the shopper's cart, issuing one on the
// first visit. It must run before the response body is written.
func (m *Manager) CartID(w http.ResponseWriter, r *http.Request) string {
	s := m.get(r)
	if id, ok := s.Values[keyCartID].(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	s.Values[keyCartID] = id
	m.save(w, r, s)
	return id
}

func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, f Flash) {
	s := m.get(r)
	s.AddFlash(f)
	m.save(w, r, s)
}

// Flashes pops the pending notifications.
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request) []Flash {
	s := m.get(r)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	m.save(w, r, s)

	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}
	return out
}
