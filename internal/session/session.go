package session

import (
	"context"
	"sync"

	"github.com/rosterly/rosterly/internal/model"
)

type contextKey string

const sessionContextKey contextKey = "session"

// Session is the mutable view of one client's session during a request.
// Changes are persisted when the response header is written.
type Session struct {
	mu    sync.Mutex
	id    string
	data  Data
	fresh bool // no record exists in the store yet
	dirty bool
	renew bool
}

func newSession(id string, data *Data) *Session {
	s := &Session{id: id, fresh: data == nil}
	if data != nil {
		s.data = *data
	}
	return s
}

// UserID returns the logged-in user's ID, or "".
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.UserID
}

// SetUserID records a login.
func (s *Session) SetUserID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.UserID = id
	s.dirty = true
}

// ClearUserID records a logout.
func (s *Session) ClearUserID() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.UserID != "" {
		s.data.UserID = ""
		s.dirty = true
	}
}

// SetFlash replaces the pending flash message.
func (s *Session) SetFlash(severity model.Severity, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Flash = &model.Flash{Severity: severity, Message: message}
	s.dirty = true
}

// PopFlash returns the pending flash message and removes it, or nil.
func (s *Session) PopFlash() *model.Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	flash := s.data.Flash
	if flash != nil {
		s.data.Flash = nil
		s.dirty = true
	}
	return flash
}

// Renew issues a new session ID on commit and discards the old record.
// Call it whenever the privilege level changes, e.g. on login.
func (s *Session) Renew() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renew = true
	s.dirty = true
}

// FromContext returns the request's session. It returns a detached session
// when the middleware has not run, so callers never need a nil check.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionContextKey).(*Session); ok {
		return s
	}
	return newSession("", nil)
}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}
