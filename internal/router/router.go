// Package router wires the HTTP routes of the application: HTML pages for
// breeds and accounts, the JSON favorite toggle, health and metrics.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/catfinder/internal/auth"
	"github.com/patric-chuzhbe/catfinder/internal/gzippedhttp"
	"github.com/patric-chuzhbe/catfinder/internal/logger"
	"github.com/patric-chuzhbe/catfinder/internal/models"
	"github.com/patric-chuzhbe/catfinder/internal/session"
	"github.com/patric-chuzhbe/catfinder/internal/user"
	"github.com/patric-chuzhbe/catfinder/internal/web"
)

const compressionLevel = 5

type breedsService interface {
	ListBreeds(ctx context.Context) ([]models.Breed, error)

	BreedDetails(ctx context.Context, breedID string, currentUser *user.User) (*models.BreedDetails, error)

	RandomBreedID(ctx context.Context) (string, error)

	ToggleFavorite(ctx context.Context, currentUser *user.User, breedName string) (*models.ToggleResult, error)

	ProfileFavorites(ctx context.Context, userID int) ([]models.Breed, error)
}

type accountsService interface {
	Signup(ctx context.Context, form models.SignupForm) (*user.User, error)

	Authenticate(ctx context.Context, username, password string) (*user.User, error)

	GetUser(ctx context.Context, userID int) (*user.User, error)

	UpdateProfile(ctx context.Context, currentUser *user.User, form models.EditUserForm) (*user.User, error)

	DeleteUser(ctx context.Context, currentUser *user.User) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type catService interface {
	breedsService
	accountsService
	pinger
}

type sessionManager interface {
	Middleware(h http.Handler) http.Handler

	Login(ctx context.Context, w http.ResponseWriter, sess *session.Session, userID int) error

	Logout(ctx context.Context, sess *session.Session) error

	Flash(ctx context.Context, w http.ResponseWriter, sess *session.Session, category, message string) error

	PopFlashes(ctx context.Context, sess *session.Session) ([]session.Flash, error)
}

type authenticator interface {
	ResolveCurrentUser(h http.Handler) http.Handler
}

type pageRenderer interface {
	Render(w http.ResponseWriter, status int, page string, data web.Page) error
}

type subnetGuard interface {
	Guard(h http.Handler) http.Handler
}

// Router holds the dependencies of the handlers.
type Router struct {
	service  catService
	sessions sessionManager
	renderer pageRenderer
}

// New builds the chi router. metricsHandler is exposed on /metrics behind guard.
func New(
	service catService,
	sessions sessionManager,
	authMiddleware authenticator,
	renderer pageRenderer,
	guard subnetGuard,
	metricsHandler http.Handler,
) *chi.Mux {
	rt := &Router{
		service:  service,
		sessions: sessions,
		renderer: renderer,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(logger.WithLoggingHTTPMiddleware)
	router.Use(middleware.NoCache)
	router.Use(middleware.Compress(compressionLevel))

	router.Get(`/ping`, rt.getPing)
	router.Handle(`/metrics`, guard.Guard(metricsHandler))
	router.Handle(`/static/*`, web.StaticHandler())

	router.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)
		r.Use(authMiddleware.ResolveCurrentUser)

		r.Get(`/`, rt.getIndex)
		r.Get(`/oops`, rt.getOops)
		r.Get(`/random`, rt.getRandom)
		r.Get(`/cats/{breedID}`, rt.getBreed)
		r.With(gzippedhttp.UngzipRequest).Post(`/api/togglefav`, rt.postToggleFavorite)

		r.Get(`/signup`, rt.getSignup)
		r.Post(`/signup`, rt.postSignup)
		r.Get(`/login`, rt.getLogin)
		r.Post(`/login`, rt.postLogin)
		r.Post(`/logout`, rt.postLogout)

		r.Get(`/users/{userID}`, rt.getUserProfile)
		r.Get(`/users/{userID}/edit`, rt.getEditUser)
		r.Post(`/users/{userID}/edit`, rt.postEditUser)
		r.Post(`/users/delete`, rt.postDeleteUser)
	})

	return router
}

func (rt *Router) getPing(response http.ResponseWriter, request *http.Request) {
	if err := rt.service.Ping(request.Context()); err != nil {
		logger.Log.Errorw("Error calling the `rt.service.Ping()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// render shows page with the pending flashes of the session.
func (rt *Router) render(response http.ResponseWriter, request *http.Request, status int, page string, data interface{}) {
	ctx := request.Context()

	flashes, err := rt.sessions.PopFlashes(ctx, session.FromContext(ctx))
	if err != nil {
		logger.Log.Errorw("Error calling the `rt.sessions.PopFlashes()`", zap.Error(err))
	}

	err = rt.renderer.Render(response, status, page, web.Page{
		CurrentUser: auth.CurrentUser(ctx),
		Flashes:     flashes,
		Data:        data,
	})
	if err != nil {
		logger.Log.Errorw("Error calling the `rt.renderer.Render()`", "page", page, zap.Error(err))
		http.Error(response, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// renderError maps err onto an error page: 502 for catalog outages, 500 otherwise.
func (rt *Router) renderError(response http.ResponseWriter, request *http.Request, err error) {
	if errors.Is(err, models.ErrUpstreamUnavailable) {
		logger.Log.Warnw("breed catalog unavailable", zap.Error(err))
		rt.render(response, request, http.StatusBadGateway, web.PageError, web.ErrorData{
			Status:  http.StatusBadGateway,
			Message: "The breed catalog is unavailable right now. Please try again later.",
		})
		return
	}

	logger.Log.Errorw("request failed", "uri", request.RequestURI, zap.Error(err))
	rt.render(response, request, http.StatusInternalServerError, web.PageError, web.ErrorData{
		Status:  http.StatusInternalServerError,
		Message: "Something went wrong.",
	})
}

func (rt *Router) renderNotFound(response http.ResponseWriter, request *http.Request) {
	rt.render(response, request, http.StatusNotFound, web.PageError, web.ErrorData{
		Status:  http.StatusNotFound,
		Message: "Page not found.",
	})
}

// flashAndRedirect queues a flash message and redirects with 302.
func (rt *Router) flashAndRedirect(
	response http.ResponseWriter,
	request *http.Request,
	category string,
	message string,
	location string,
) {
	ctx := request.Context()
	if err := rt.sessions.Flash(ctx, response, session.FromContext(ctx), category, message); err != nil {
		logger.Log.Errorw("Error calling the `rt.sessions.Flash()`", zap.Error(err))
	}

	http.Redirect(response, request, location, http.StatusFound)
}

func (rt *Router) unauthorized(response http.ResponseWriter, request *http.Request) {
	rt.flashAndRedirect(response, request, session.FlashDanger, "Access unauthorized.", "/")
}

func writeJSON(response http.ResponseWriter, status int, body interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)

	if err := json.NewEncoder(response).Encode(body); err != nil {
		logger.Log.Debugw("Error calling the `json.NewEncoder().Encode()`", zap.Error(err))
	}
}
