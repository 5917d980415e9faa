package models

import (
	"errors"
	"fmt"
)

// Breed is a single record of the upstream breed catalog. Only the fields
// rendered by the application are decoded.
type Breed struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Temperament    string      `json:"temperament"`
	Origin         string      `json:"origin"`
	Description    string      `json:"description"`
	LifeSpan       string      `json:"life_span"`
	Weight         BreedWeight `json:"weight"`
	EnergyLevel    int         `json:"energy_level"`
	Intelligence   int         `json:"intelligence"`
	SocialNeeds    int         `json:"social_needs"`
	Hypoallergenic int         `json:"hypoallergenic"`
	WikipediaURL   string      `json:"wikipedia_url"`
	Image          *BreedImage `json:"image,omitempty"`
}

type BreedWeight struct {
	Imperial string `json:"imperial"`
	Metric   string `json:"metric"`
}

type BreedImage struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Favorite is the (user_id, breed_name) association. The pair is its only identity.
type Favorite struct {
	UserID    int    `json:"user_id"`
	BreedName string `json:"breed_name"`
}

func (f Favorite) String() string {
	return fmt.Sprintf("<Favorite %d, %s>", f.UserID, f.BreedName)
}

type ToggleAction int

const (
	ToggleAdded ToggleAction = iota + 1
	ToggleRemoved
)

func (a ToggleAction) String() string {
	switch a {
	case ToggleAdded:
		return "added"
	case ToggleRemoved:
		return "removed"
	}

	return "unknown"
}

// ToggleResult describes what a favorite toggle did to the (user, breed) pair.
type ToggleResult struct {
	Action   ToggleAction
	Favorite Favorite
}

// BreedDetails is everything the breed page needs.
type BreedDetails struct {
	Breed      Breed
	Images     []BreedImage
	IsFavorite bool
}

type ToggleFavoriteRequest struct {
	BreedName string `json:"breed_name" validate:"required"`
}

type ToggleFavoriteAddedResponse struct {
	Fav Favorite `json:"fav"`
}

type ToggleFavoriteRemovedResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SignupForm struct {
	Username string `form:"username" validate:"required"`
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
	ImageURL string `form:"image_url" validate:"omitempty,url"`
}

type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type EditUserForm struct {
	Username string `form:"username" validate:"required"`
	Email    string `form:"email" validate:"required,email"`
	ImageURL string `form:"image_url" validate:"omitempty,url"`
	Password string `form:"password" validate:"required"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

var (
	// ErrConstraintViolation is returned by storages when a uniqueness or key
	// constraint rejects a write.
	ErrConstraintViolation = errors.New("constraint violation")

	ErrValidation = errors.New("validation failed")

	ErrNotFound = errors.New("record not found")

	ErrUnauthorized = errors.New("unauthorized")

	ErrIncorrectPassword = errors.New("incorrect password")

	// ErrUpstreamUnavailable is returned when the breed catalog cannot be reached
	// or answers with a non-success status.
	ErrUpstreamUnavailable = errors.New("breed catalog unavailable")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
