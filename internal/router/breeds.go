package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/catfinder/internal/auth"
	"github.com/patric-chuzhbe/catfinder/internal/logger"
	"github.com/patric-chuzhbe/catfinder/internal/models"
	"github.com/patric-chuzhbe/catfinder/internal/web"
)

var validate = validator.New()

func (rt *Router) getIndex(response http.ResponseWriter, request *http.Request) {
	breeds, err := rt.service.ListBreeds(request.Context())
	if err != nil {
		rt.renderError(response, request, err)
		return
	}

	rt.render(response, request, http.StatusOK, web.PageIndex, web.IndexData{Breeds: breeds})
}

func (rt *Router) getOops(response http.ResponseWriter, request *http.Request) {
	rt.render(response, request, http.StatusOK, web.PageSorry, nil)
}

func (rt *Router) getBreed(response http.ResponseWriter, request *http.Request) {
	breedID := chi.URLParam(request, "breedID")

	details, err := rt.service.BreedDetails(request.Context(), breedID, auth.CurrentUser(request.Context()))
	if errors.Is(err, models.ErrNotFound) {
		http.Redirect(response, request, "/oops", http.StatusFound)
		return
	}
	if err != nil {
		rt.renderError(response, request, err)
		return
	}

	rt.render(response, request, http.StatusOK, web.PageCatInfo, web.CatInfoData{Details: details})
}

func (rt *Router) getRandom(response http.ResponseWriter, request *http.Request) {
	breedID, err := rt.service.RandomBreedID(request.Context())
	if errors.Is(err, models.ErrNotFound) {
		http.Redirect(response, request, "/oops", http.StatusFound)
		return
	}
	if err != nil {
		rt.renderError(response, request, err)
		return
	}

	http.Redirect(response, request, "/cats/"+breedID, http.StatusFound)
}

func (rt *Router) postToggleFavorite(response http.ResponseWriter, request *http.Request) {
	currentUser := auth.CurrentUser(request.Context())
	if currentUser == nil {
		writeJSON(response, http.StatusUnauthorized, models.ErrorResponse{Error: "login required"})
		return
	}

	var toggleRequest models.ToggleFavoriteRequest
	if err := json.NewDecoder(request.Body).Decode(&toggleRequest); err != nil {
		logger.Log.Debugw("Error calling the `json.NewDecoder().Decode()`", zap.Error(err))
		writeJSON(response, http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body"})
		return
	}
	if err := validate.Struct(toggleRequest); err != nil {
		writeJSON(response, http.StatusBadRequest, models.ErrorResponse{Error: "breed_name is required"})
		return
	}

	result, err := rt.service.ToggleFavorite(request.Context(), currentUser, toggleRequest.BreedName)
	if errors.Is(err, models.ErrValidation) {
		writeJSON(response, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		logger.Log.Errorw("Error calling the `rt.service.ToggleFavorite()`", zap.Error(err))
		writeJSON(response, http.StatusInternalServerError, models.ErrorResponse{Error: "internal error"})
		return
	}

	if result.Action == models.ToggleAdded {
		writeJSON(response, http.StatusCreated, models.ToggleFavoriteAddedResponse{Fav: result.Favorite})
		return
	}

	writeJSON(response, http.StatusOK, models.ToggleFavoriteRemovedResponse{
		Message: fmt.Sprintf("deleted (%d, %s) from favorites", result.Favorite.UserID, result.Favorite.BreedName),
	})
}
