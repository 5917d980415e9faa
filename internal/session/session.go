// Package session implements server-side sessions. The browser only holds a
// signed cookie with the session id; user identity and pending flash messages
// live in a Store (process memory or Redis).
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a Store for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Flash categories used by the templates.
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Session is the per-browser state. UserID 0 means anonymous.
type Session struct {
	ID      string  `json:"id"`
	UserID  int     `json:"user_id"`
	Flashes []Flash `json:"flashes,omitempty"`

	persisted bool
}

// IsAuthenticated reports whether a user is logged in on this session.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != 0
}

// Store persists sessions by id.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, sess *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type contextKey struct{}

// FromContext returns the session attached by Manager.Middleware, or nil.
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(contextKey{}).(*Session)
	return sess
}

// NewContext attaches sess to ctx.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}
