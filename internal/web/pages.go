package web

import (
	"github.com/patric-chuzhbe/catfinder/internal/models"
	"github.com/patric-chuzhbe/catfinder/internal/user"
)

type IndexData struct {
	Breeds []models.Breed
}

type CatInfoData struct {
	Details *models.BreedDetails
}

// FormData carries submitted values back into a re-rendered form.
type FormData struct {
	Username string
	Email    string
	ImageURL string
	Error    string
	UserID   int
}

type ProfileData struct {
	User      *user.User
	Favorites []models.Breed
	IsOwner   bool
}

type ErrorData struct {
	Status  int
	Message string
}
