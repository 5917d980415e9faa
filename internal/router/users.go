package router

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/catfinder/internal/auth"
	"github.com/patric-chuzhbe/catfinder/internal/logger"
	"github.com/patric-chuzhbe/catfinder/internal/models"
	"github.com/patric-chuzhbe/catfinder/internal/session"
	"github.com/patric-chuzhbe/catfinder/internal/user"
	"github.com/patric-chuzhbe/catfinder/internal/web"
)

const (
	msgUsernameTaken     = "Username already taken"
	msgAccountTaken      = "Username or email already taken"
	msgInvalidCreds      = "Invalid credentials."
	msgLoggedOut         = "You have successfully been logged out!"
	msgPasswordIncorrect = "Password incorrect! Your details have not been changed."
)

func validationMessage(err error) string {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}

	return "Invalid form data."
}

func (rt *Router) getSignup(response http.ResponseWriter, request *http.Request) {
	rt.render(response, request, http.StatusOK, web.PageSignup, web.FormData{})
}

func (rt *Router) postSignup(response http.ResponseWriter, request *http.Request) {
	form := models.SignupForm{
		Username: request.PostFormValue("username"),
		Email:    request.PostFormValue("email"),
		Password: request.PostFormValue("password"),
		ImageURL: request.PostFormValue("image_url"),
	}
	formData := web.FormData{Username: form.Username, Email: form.Email, ImageURL: form.ImageURL}

	usr, err := rt.service.Signup(request.Context(), form)
	switch {
	case errors.Is(err, models.ErrConstraintViolation):
		formData.Error = msgUsernameTaken
		rt.render(response, request, http.StatusOK, web.PageSignup, formData)
		return
	case errors.Is(err, models.ErrValidation):
		formData.Error = validationMessage(err)
		rt.render(response, request, http.StatusOK, web.PageSignup, formData)
		return
	case err != nil:
		rt.renderError(response, request, err)
		return
	}

	if err := rt.sessions.Login(request.Context(), response, session.FromContext(request.Context()), usr.ID); err != nil {
		rt.renderError(response, request, err)
		return
	}

	http.Redirect(response, request, "/", http.StatusFound)
}

func (rt *Router) getLogin(response http.ResponseWriter, request *http.Request) {
	rt.render(response, request, http.StatusOK, web.PageLogin, web.FormData{})
}

func (rt *Router) postLogin(response http.ResponseWriter, request *http.Request) {
	username := request.PostFormValue("username")

	usr, err := rt.service.Authenticate(request.Context(), username, request.PostFormValue("password"))
	if err != nil {
		rt.renderError(response, request, err)
		return
	}
	if usr == nil {
		rt.render(response, request, http.StatusOK, web.PageLogin, web.FormData{Username: username, Error: msgInvalidCreds})
		return
	}

	ctx := request.Context()
	sess := session.FromContext(ctx)
	if err := rt.sessions.Login(ctx, response, sess, usr.ID); err != nil {
		rt.renderError(response, request, err)
		return
	}

	rt.flashAndRedirect(response, request, session.FlashSuccess, "Hello, "+usr.Username+"!", "/")
}

func (rt *Router) postLogout(response http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	if err := rt.sessions.Logout(ctx, session.FromContext(ctx)); err != nil {
		logger.Log.Errorw("Error calling the `rt.sessions.Logout()`", zap.Error(err))
	}

	rt.flashAndRedirect(response, request, session.FlashSuccess, msgLoggedOut, "/login")
}

func (rt *Router) getUserProfile(response http.ResponseWriter, request *http.Request) {
	currentUser := auth.CurrentUser(request.Context())
	if currentUser == nil {
		rt.unauthorized(response, request)
		return
	}

	userID, err := strconv.Atoi(chi.URLParam(request, "userID"))
	if err != nil {
		rt.renderNotFound(response, request)
		return
	}

	profileUser, err := rt.service.GetUser(request.Context(), userID)
	if errors.Is(err, models.ErrNotFound) {
		rt.renderNotFound(response, request)
		return
	}
	if err != nil {
		rt.renderError(response, request, err)
		return
	}

	favorites, err := rt.service.ProfileFavorites(request.Context(), profileUser.ID)
	if err != nil {
		rt.renderError(response, request, err)
		return
	}

	rt.render(response, request, http.StatusOK, web.PageProfile, web.ProfileData{
		User:      profileUser,
		Favorites: favorites,
		IsOwner:   profileUser.ID == currentUser.ID,
	})
}

// ownerOf returns the current user when it is the one named in the URL.
func ownerOf(request *http.Request) (*user.User, bool) {
	currentUser := auth.CurrentUser(request.Context())
	if currentUser == nil {
		return nil, false
	}

	userID, err := strconv.Atoi(chi.URLParam(request, "userID"))
	if err != nil || userID != currentUser.ID {
		return nil, false
	}

	return currentUser, true
}

func (rt *Router) getEditUser(response http.ResponseWriter, request *http.Request) {
	currentUser, ok := ownerOf(request)
	if !ok {
		rt.unauthorized(response, request)
		return
	}

	rt.render(response, request, http.StatusOK, web.PageEditUser, web.FormData{
		UserID:   currentUser.ID,
		Username: currentUser.Username,
		Email:    currentUser.Email,
		ImageURL: currentUser.ImageURL,
	})
}

func (rt *Router) postEditUser(response http.ResponseWriter, request *http.Request) {
	currentUser, ok := ownerOf(request)
	if !ok {
		rt.unauthorized(response, request)
		return
	}

	form := models.EditUserForm{
		Username: request.PostFormValue("username"),
		Email:    request.PostFormValue("email"),
		ImageURL: request.PostFormValue("image_url"),
		Password: request.PostFormValue("password"),
	}
	formData := web.FormData{
		UserID:   currentUser.ID,
		Username: form.Username,
		Email:    form.Email,
		ImageURL: form.ImageURL,
	}

	_, err := rt.service.UpdateProfile(request.Context(), currentUser, form)
	switch {
	case errors.Is(err, models.ErrIncorrectPassword):
		rt.flashAndRedirect(response, request, session.FlashDanger, msgPasswordIncorrect, "/")
		return
	case errors.Is(err, models.ErrConstraintViolation):
		formData.Error = msgAccountTaken
		rt.render(response, request, http.StatusOK, web.PageEditUser, formData)
		return
	case errors.Is(err, models.ErrValidation):
		formData.Error = validationMessage(err)
		rt.render(response, request, http.StatusOK, web.PageEditUser, formData)
		return
	case err != nil:
		rt.renderError(response, request, err)
		return
	}

	http.Redirect(response, request, "/users/"+strconv.Itoa(currentUser.ID), http.StatusFound)
}

func (rt *Router) postDeleteUser(response http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	currentUser := auth.CurrentUser(ctx)
	if currentUser == nil {
		rt.unauthorized(response, request)
		return
	}

	if err := rt.service.DeleteUser(ctx, currentUser); err != nil {
		rt.renderError(response, request, err)
		return
	}

	if err := rt.sessions.Logout(ctx, session.FromContext(ctx)); err != nil {
		logger.Log.Errorw("Error calling the `rt.sessions.Logout()`", zap.Error(err))
	}

	http.Redirect(response, request, "/signup", http.StatusFound)
}
