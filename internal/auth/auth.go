// Package auth resolves the current user of a request from its session and
// exposes it to handlers through the request context.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/catfinder/internal/logger"
	"github.com/patric-chuzhbe/catfinder/internal/models"
	"github.com/patric-chuzhbe/catfinder/internal/session"
	"github.com/patric-chuzhbe/catfinder/internal/user"
)

type userKeeper interface {
	GetUserByID(ctx context.Context, userID int, transaction *sql.Tx) (*user.User, error)
}

type logouter interface {
	Logout(ctx context.Context, sess *session.Session) error
}

// RequestContext is built once per request. CurrentUser is nil for anonymous visitors.
type RequestContext struct {
	CurrentUser *user.User
}

type contextKey struct{}

// Auth turns session identities into users.
type Auth struct {
	db       userKeeper
	sessions logouter
}

func New(db userKeeper, sessions logouter) *Auth {
	return &Auth{
		db:       db,
		sessions: sessions,
	}
}

// ResolveCurrentUser is an HTTP middleware that loads the session's user and
// stores a RequestContext. It must run after session.Manager.Middleware.
// A session pointing at a user that no longer exists fails the request with
// 500 and is logged out, so the following request is anonymous.
func (a *Auth) ResolveCurrentUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		rc := &RequestContext{}

		sess := session.FromContext(request.Context())
		if sess.IsAuthenticated() {
			usr, err := a.db.GetUserByID(request.Context(), sess.UserID, nil)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					logger.Log.Infow("session refers to a deleted user", "user_id", sess.UserID)
					if err := a.sessions.Logout(request.Context(), sess); err != nil {
						logger.Log.Errorw("Error calling the `a.sessions.Logout()`", zap.Error(err))
					}
				} else {
					logger.Log.Errorw("Error calling the `a.db.GetUserByID()`", zap.Error(err))
				}
				http.Error(response, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			rc.CurrentUser = usr
		}

		ctx := context.WithValue(request.Context(), contextKey{}, rc)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// FromContext returns the RequestContext, or an empty one outside the middleware.
func FromContext(ctx context.Context) *RequestContext {
	rc, ok := ctx.Value(contextKey{}).(*RequestContext)
	if !ok {
		return &RequestContext{}
	}

	return rc
}

// CurrentUser is a shortcut for FromContext(ctx).CurrentUser.
func CurrentUser(ctx context.Context) *user.User {
	return FromContext(ctx).CurrentUser
}

// RequireUser lets only authenticated requests through. Others are handed to
// onAnonymous.
func RequireUser(onAnonymous http.HandlerFunc) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
			if CurrentUser(request.Context()) == nil {
				onAnonymous(response, request)
				return
			}
			h.ServeHTTP(response, request)
		})
	}
}
