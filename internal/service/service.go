// Package service holds the application logic behind the HTTP handlers:
// accounts, favorites and breed pages.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/thoas/go-funk"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/catfinder/internal/catalog"
	"github.com/patric-chuzhbe/catfinder/internal/logger"
	"github.com/patric-chuzhbe/catfinder/internal/metrics"
	"github.com/patric-chuzhbe/catfinder/internal/models"
	"github.com/patric-chuzhbe/catfinder/internal/user"
)

const defaultImagesPerBreed = 5

type transactioner interface {
	BeginTransaction(ctx context.Context) (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (int, error)

	GetUserByID(ctx context.Context, userID int, transaction *sql.Tx) (*user.User, error)

	GetUserByUsername(ctx context.Context, username string, transaction *sql.Tx) (*user.User, error)

	UpdateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) error

	DeleteUser(ctx context.Context, userID int, transaction *sql.Tx) error
}

type favoritesKeeper interface {
	AddFavorite(ctx context.Context, userID int, breedName string, transaction *sql.Tx) (*models.Favorite, error)

	RemoveFavorite(ctx context.Context, userID int, breedName string, transaction *sql.Tx) (*models.Favorite, error)

	GetUserFavorites(ctx context.Context, userID int, transaction *sql.Tx) ([]string, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	transactioner
	userKeeper
	favoritesKeeper
	pinger
}

type breedCatalog interface {
	ListBreeds(ctx context.Context) ([]models.Breed, error)

	SearchImages(ctx context.Context, breedID string, limit int) ([]models.BreedImage, error)
}

type Service struct {
	db             storage
	catalog        breedCatalog
	metrics        *metrics.Metrics
	validate       *validator.Validate
	imagesPerBreed int
	bcryptCost     int
	intN           func(n int) int
}

// Option configures a Service.
type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithImagesPerBreed sets how many images the breed page shows.
func WithImagesPerBreed(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.imagesPerBreed = n
		}
	}
}

// WithBcryptCost overrides the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

func New(db storage, breeds breedCatalog, opts ...Option) *Service {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	s := &Service{
		db:             db,
		catalog:        breeds,
		validate:       validate,
		imagesPerBreed: defaultImagesPerBreed,
		bcryptCost:     bcrypt.DefaultCost,
		intN:           rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) validateForm(form interface{}) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		first := fieldErrors[0]
		reason := "is invalid"
		if first.Tag() == "required" {
			reason = "is required"
		}
		return &models.ValidationError{Field: first.Field(), Reason: reason}
	}

	return err
}

// inTransaction runs fn in a new transaction and commits it when fn succeeds.
func (s *Service) inTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTransaction(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return s.db.CommitTransaction(tx)
}

// Signup creates an account. The password is stored as a bcrypt hash only.
// An empty image URL gets the default avatar. A taken username or email yields
// models.ErrConstraintViolation and nothing is stored.
func (s *Service) Signup(ctx context.Context, form models.SignupForm) (*user.User, error) {
	if form.Password == "" {
		return nil, &models.ValidationError{Field: "password", Reason: "is required"}
	}
	if err := s.validateForm(form); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	usr := &user.User{
		Email:        form.Email,
		Username:     form.Username,
		PasswordHash: string(hash),
		ImageURL:     user.ImageURLOrDefault(form.ImageURL),
	}

	err = s.inTransaction(ctx, func(tx *sql.Tx) error {
		_, err := s.db.CreateUser(ctx, usr, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncUsersSignedUp()
	logger.Log.Infow("user signed up", "user_id", usr.ID, "username", usr.Username)

	return usr, nil
}

// Authenticate returns the user when username and password match, and
// (nil, nil) when the username is unknown or the password is wrong.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*user.User, error) {
	usr, err := s.db.GetUserByUsername(ctx, username, nil)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !passwordMatches(usr.PasswordHash, password) {
		return nil, nil
	}

	return usr, nil
}

func passwordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *Service) GetUser(ctx context.Context, userID int) (*user.User, error) {
	return s.db.GetUserByID(ctx, userID, nil)
}

// UpdateProfile changes username, email and image of currentUser after
// validating the form and re-checking its password.
func (s *Service) UpdateProfile(
	ctx context.Context,
	currentUser *user.User,
	form models.EditUserForm,
) (*user.User, error) {
	if currentUser == nil {
		return nil, models.ErrUnauthorized
	}
	if err := s.validateForm(form); err != nil {
		return nil, err
	}
	if !passwordMatches(currentUser.PasswordHash, form.Password) {
		return nil, models.ErrIncorrectPassword
	}

	updated := *currentUser
	updated.Username = form.Username
	updated.Email = form.Email
	updated.ImageURL = user.ImageURLOrDefault(form.ImageURL)

	err := s.inTransaction(ctx, func(tx *sql.Tx) error {
		return s.db.UpdateUser(ctx, &updated, tx)
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// DeleteUser removes currentUser together with its favorites.
func (s *Service) DeleteUser(ctx context.Context, currentUser *user.User) error {
	if currentUser == nil {
		return models.ErrUnauthorized
	}

	err := s.inTransaction(ctx, func(tx *sql.Tx) error {
		return s.db.DeleteUser(ctx, currentUser.ID, tx)
	})
	if err != nil {
		return err
	}

	s.metrics.IncUsersDeleted()
	logger.Log.Infow("user deleted", "user_id", currentUser.ID)

	return nil
}

// ToggleFavorite adds the breed to the user's favorites, or removes it when
// already there. If the add loses a race against a concurrent toggle of the
// same pair, the pair is treated as already favorited and removed. A user
// deleted meanwhile yields models.ErrNotFound.
func (s *Service) ToggleFavorite(
	ctx context.Context,
	currentUser *user.User,
	breedName string,
) (*models.ToggleResult, error) {
	if currentUser == nil {
		return nil, models.ErrUnauthorized
	}
	if breedName == "" {
		return nil, &models.ValidationError{Field: "breed_name", Reason: "is required"}
	}

	result, err := s.toggle(ctx, currentUser.ID, breedName)
	if errors.Is(err, models.ErrConstraintViolation) {
		logger.Log.Debugw("favorite appeared concurrently, removing it", "user_id", currentUser.ID, "breed_name", breedName)
		result, err = s.removeFavorite(ctx, currentUser.ID, breedName)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.IncFavoritesToggled(result.Action.String())

	return result, nil
}

func (s *Service) toggle(ctx context.Context, userID int, breedName string) (*models.ToggleResult, error) {
	var result *models.ToggleResult

	err := s.inTransaction(ctx, func(tx *sql.Tx) error {
		names, err := s.db.GetUserFavorites(ctx, userID, tx)
		if err != nil {
			return err
		}

		if funk.ContainsString(names, breedName) {
			fav, err := s.db.RemoveFavorite(ctx, userID, breedName, tx)
			if err != nil {
				return err
			}
			result = &models.ToggleResult{Action: models.ToggleRemoved, Favorite: *fav}
			return nil
		}

		fav, err := s.db.AddFavorite(ctx, userID, breedName, tx)
		if err != nil {
			return err
		}
		result = &models.ToggleResult{Action: models.ToggleAdded, Favorite: *fav}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Service) removeFavorite(ctx context.Context, userID int, breedName string) (*models.ToggleResult, error) {
	err := s.inTransaction(ctx, func(tx *sql.Tx) error {
		_, err := s.db.RemoveFavorite(ctx, userID, breedName, tx)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return &models.ToggleResult{
		Action:   models.ToggleRemoved,
		Favorite: models.Favorite{UserID: userID, BreedName: breedName},
	}, nil
}

// FavoriteBreedNames lists the breed names the user has favorited.
func (s *Service) FavoriteBreedNames(ctx context.Context, userID int) ([]string, error) {
	return s.db.GetUserFavorites(ctx, userID, nil)
}

func (s *Service) ListBreeds(ctx context.Context) ([]models.Breed, error) {
	return s.catalog.ListBreeds(ctx)
}

// BreedDetails collects the breed record, its images and whether currentUser
// (possibly nil) has favorited it. Unknown ids yield models.ErrNotFound.
func (s *Service) BreedDetails(
	ctx context.Context,
	breedID string,
	currentUser *user.User,
) (*models.BreedDetails, error) {
	breeds, err := s.catalog.ListBreeds(ctx)
	if err != nil {
		return nil, err
	}

	breed, ok := catalog.FindByID(breeds, breedID)
	if !ok {
		return nil, models.ErrNotFound
	}

	images, err := s.catalog.SearchImages(ctx, breed.ID, s.imagesPerBreed)
	if err != nil {
		return nil, err
	}

	details := &models.BreedDetails{
		Breed:  breed,
		Images: images,
	}

	if currentUser != nil {
		names, err := s.db.GetUserFavorites(ctx, currentUser.ID, nil)
		if err != nil {
			return nil, err
		}
		details.IsFavorite = funk.ContainsString(names, breed.Name)
	}

	return details, nil
}

// RandomBreedID picks a breed uniformly. An empty catalog yields models.ErrNotFound.
func (s *Service) RandomBreedID(ctx context.Context) (string, error) {
	breeds, err := s.catalog.ListBreeds(ctx)
	if err != nil {
		return "", err
	}
	if len(breeds) == 0 {
		return "", models.ErrNotFound
	}

	return breeds[s.intN(len(breeds))].ID, nil
}

// ProfileFavorites resolves the user's favorites to catalog records. Names the
// catalog does not know are left out.
func (s *Service) ProfileFavorites(ctx context.Context, userID int) ([]models.Breed, error) {
	names, err := s.db.GetUserFavorites(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return []models.Breed{}, nil
	}

	breeds, err := s.catalog.ListBreeds(ctx)
	if err != nil {
		return nil, err
	}

	return catalog.ResolveFavorites(breeds, names), nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
