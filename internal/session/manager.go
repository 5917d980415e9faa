package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/catfinder/internal/logger"
)

const (
	defaultCookieName = "catfinder_session"
	defaultTTL        = 24 * time.Hour
)

// Claims is the payload of the session cookie.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// Manager loads sessions for incoming requests and performs the identity
// transitions (login, logout) and flash bookkeeping.
type Manager struct {
	store         Store
	secretKey     []byte
	cookieName    string
	ttl           time.Duration
	secureCookies bool
	now           func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

func WithCookieName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.cookieName = name
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithSecureCookies marks the cookie Secure, for deployments behind TLS.
func WithSecureCookies(secure bool) Option {
	return func(m *Manager) {
		m.secureCookies = secure
	}
}

// NewManager creates a Manager signing cookies with secretKey.
func NewManager(store Store, secretKey []byte, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		secretKey:  secretKey,
		cookieName: defaultCookieName,
		ttl:        defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Middleware attaches the request's session to the context. A missing, forged
// or expired cookie yields a fresh anonymous session that is only stored once
// something is written to it.
func (m *Manager) Middleware(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		sess, err := m.load(request)
		if err != nil {
			logger.Log.Errorw("Error calling the `m.load()`", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}

		h.ServeHTTP(response, request.WithContext(NewContext(request.Context(), sess)))
	}

	return http.HandlerFunc(middleware)
}

func (m *Manager) load(request *http.Request) (*Session, error) {
	cookie, err := request.Cookie(m.cookieName)
	if err != nil {
		return m.newSession(), nil
	}

	sessionID, ok := m.parseCookieValue(cookie.Value)
	if !ok {
		return m.newSession(), nil
	}

	sess, err := m.store.Get(request.Context(), sessionID)
	if errors.Is(err, ErrNotFound) {
		return m.newSession(), nil
	}
	if err != nil {
		return nil, err
	}
	sess.persisted = true

	return sess, nil
}

func (m *Manager) newSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// Login makes sess authenticated as userID. The session id is rotated so an id
// obtained before login cannot be reused.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, sess *Session, userID int) error {
	if sess.persisted {
		if err := m.store.Delete(ctx, sess.ID); err != nil {
			return err
		}
	}

	sess.ID = uuid.NewString()
	sess.UserID = userID
	sess.persisted = false

	return m.save(ctx, w, sess)
}

// Logout makes sess anonymous. Calling it on an anonymous session is a no-op
// apart from id rotation.
func (m *Manager) Logout(ctx context.Context, sess *Session) error {
	if sess.persisted {
		if err := m.store.Delete(ctx, sess.ID); err != nil {
			return err
		}
	}

	sess.ID = uuid.NewString()
	sess.UserID = 0
	sess.Flashes = nil
	sess.persisted = false

	return nil
}

// Flash queues a message for the next rendered page.
func (m *Manager) Flash(ctx context.Context, w http.ResponseWriter, sess *Session, category, message string) error {
	sess.Flashes = append(sess.Flashes, Flash{Category: category, Message: message})

	return m.save(ctx, w, sess)
}

// PopFlashes returns and clears the queued messages.
func (m *Manager) PopFlashes(ctx context.Context, sess *Session) ([]Flash, error) {
	if sess == nil || len(sess.Flashes) == 0 {
		return nil, nil
	}

	flashes := sess.Flashes
	sess.Flashes = nil
	if err := m.store.Save(ctx, sess, m.ttl); err != nil {
		return nil, err
	}

	return flashes, nil
}

func (m *Manager) save(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if err := m.store.Save(ctx, sess, m.ttl); err != nil {
		return err
	}
	if sess.persisted {
		return nil
	}

	value, err := m.buildCookieValue(sess.ID)
	if err != nil {
		return fmt.Errorf("sign session cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	sess.persisted = true

	return nil
}

func (m *Manager) buildCookieValue(sessionID string) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		SessionID: sessionID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(m.secretKey)
}

func (m *Manager) parseCookieValue(value string) (string, bool) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		value,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secretKey, nil
		},
	)
	if err != nil || !token.Valid || claims.SessionID == "" {
		return "", false
	}

	return claims.SessionID, true
}
