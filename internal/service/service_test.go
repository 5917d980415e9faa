package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/catfinder/internal/db/memorystorage"
	"github.com/patric-chuzhbe/catfinder/internal/db/sqlitedb"
	"github.com/patric-chuzhbe/catfinder/internal/mockstorage"
	"github.com/patric-chuzhbe/catfinder/internal/models"
	"github.com/patric-chuzhbe/catfinder/internal/user"
)

type fakeCatalog struct {
	breeds    []models.Breed
	images    []models.BreedImage
	err       error
	lastLimit int
}

func (f *fakeCatalog) ListBreeds(ctx context.Context) ([]models.Breed, error) {
	return f.breeds, f.err
}

func (f *fakeCatalog) SearchImages(ctx context.Context, breedID string, limit int) ([]models.BreedImage, error) {
	f.lastLimit = limit
	return f.images, f.err
}

func newCatalog() *fakeCatalog {
	return &fakeCatalog{
		breeds: []models.Breed{
			{ID: "abys", Name: "Abyssinian"},
			{ID: "beng", Name: "Bengal"},
			{ID: "siam", Name: "Siamese"},
		},
		images: []models.BreedImage{{ID: "i1", URL: "https://example.com/i1.jpg"}},
	}
}

func newMemoryService(t *testing.T) (*Service, *memorystorage.MemoryStorage) {
	t.Helper()
	db, err := memorystorage.New()
	require.NoError(t, err)

	return New(db, newCatalog(), WithBcryptCost(bcrypt.MinCost)), db
}

func signup(t *testing.T, s *Service, username string) *user.User {
	t.Helper()
	usr, err := s.Signup(context.Background(), models.SignupForm{
		Username: username,
		Email:    username + "@test.com",
		Password: "pw-" + username,
	})
	require.NoError(t, err)

	return usr
}

func TestSignupThenAuthenticate(t *testing.T) {
	s, _ := newMemoryService(t)
	ctx := context.Background()

	for _, name := range []string{"anna", "boris", "celine"} {
		created := signup(t, s, name)

		got, err := s.Authenticate(ctx, name, "pw-"+name)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, created.ID, got.ID)
		assert.NotEqual(t, "pw-"+name, got.PasswordHash)
		assert.Equal(t, user.DefaultImageURL, got.ImageURL)
	}
}

func TestAuthenticateNoMatchIsIndistinguishable(t *testing.T) {
	s, _ := newMemoryService(t)
	ctx := context.Background()
	signup(t, s, "dora")

	wrongPassword, err1 := s.Authenticate(ctx, "dora", "nope")
	unknownUser, err2 := s.Authenticate(ctx, "nobody", "nope")

	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Nil(t, wrongPassword)
	assert.Nil(t, unknownUser)
}

func TestAuthenticateStorageFailure(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.On("GetUserByUsername", mock.Anything, "eve", mock.Anything).Return(nil, errors.New("db down"))
	s := New(db, newCatalog())

	_, err := s.Authenticate(context.Background(), "eve", "pw")
	assert.Error(t, err)
}

func TestSignupValidation(t *testing.T) {
	s, _ := newMemoryService(t)

	tests := []struct {
		name      string
		form      models.SignupForm
		wantField string
	}{
		{
			name:      "missing password",
			form:      models.SignupForm{Username: "u", Email: "u@test.com"},
			wantField: "password",
		},
		{
			name:      "missing username",
			form:      models.SignupForm{Email: "u@test.com", Password: "pw"},
			wantField: "username",
		},
		{
			name:      "malformed email",
			form:      models.SignupForm{Username: "u", Email: "not-an-email", Password: "pw"},
			wantField: "email",
		},
		{
			name:      "malformed image url",
			form:      models.SignupForm{Username: "u", Email: "u@test.com", Password: "pw", ImageURL: "nope"},
			wantField: "image_url",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := s.Signup(context.Background(), test.form)
			require.ErrorIs(t, err, models.ErrValidation)

			var validationErr *models.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, test.wantField, validationErr.Field)
		})
	}
}

func TestSignupDuplicateKeepsOriginal(t *testing.T) {
	s, db := newMemoryService(t)
	ctx := context.Background()

	original, err := s.Signup(ctx, models.SignupForm{Username: "testuser1", Email: "test1@test.com", Password: "pw"})
	require.NoError(t, err)

	_, err = s.Signup(ctx, models.SignupForm{Username: "testuser1", Email: "other@test.com", Password: "pw2"})
	assert.ErrorIs(t, err, models.ErrConstraintViolation)

	stored, err := db.GetUserByUsername(ctx, "testuser1", nil)
	require.NoError(t, err)
	assert.Equal(t, original.ID, stored.ID)
	assert.Equal(t, "test1@test.com", stored.Email)

	got, err := s.Authenticate(ctx, "testuser1", "pw")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestSignupCustomImage(t *testing.T) {
	s, _ := newMemoryService(t)

	usr, err := s.Signup(context.Background(), models.SignupForm{
		Username: "fay",
		Email:    "fay@test.com",
		Password: "pw",
		ImageURL: "https://example.com/fay.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/fay.png", usr.ImageURL)
}

func TestDeleteUserCascadesFavorites(t *testing.T) {
	s, db := newMemoryService(t)
	ctx := context.Background()
	usr := signup(t, s, "gus")

	for _, breed := range []string{"Abyssinian", "Bengal"} {
		_, err := s.ToggleFavorite(ctx, usr, breed)
		require.NoError(t, err)
	}

	require.NoError(t, s.DeleteUser(ctx, usr))

	for _, breed := range []string{"Abyssinian", "Bengal"} {
		_, err := db.GetFavorite(ctx, usr.ID, breed, nil)
		assert.ErrorIs(t, err, models.ErrNotFound)
	}
	_, err := s.GetUser(ctx, usr.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.ErrorIs(t, s.DeleteUser(ctx, nil), models.ErrUnauthorized)
}

func TestToggleTwiceRestoresState(t *testing.T) {
	s, _ := newMemoryService(t)
	ctx := context.Background()
	usr := signup(t, s, "hugo")
	_, err := s.ToggleFavorite(ctx, usr, "Siamese")
	require.NoError(t, err)

	before, err := s.FavoriteBreedNames(ctx, usr.ID)
	require.NoError(t, err)

	first, err := s.ToggleFavorite(ctx, usr, "Bengal")
	require.NoError(t, err)
	assert.Equal(t, models.ToggleAdded, first.Action)
	assert.Equal(t, models.Favorite{UserID: usr.ID, BreedName: "Bengal"}, first.Favorite)

	second, err := s.ToggleFavorite(ctx, usr, "Bengal")
	require.NoError(t, err)
	assert.Equal(t, models.ToggleRemoved, second.Action)

	after, err := s.FavoriteBreedNames(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestToggleEndToEnd(t *testing.T) {
	s, _ := newMemoryService(t)
	ctx := context.Background()
	usr := signup(t, s, "iris")
	require.Equal(t, 1, usr.ID)

	_, err := s.ToggleFavorite(ctx, usr, "Abyssinian")
	require.NoError(t, err)

	names, err := s.FavoriteBreedNames(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Abyssinian"}, names)

	_, err = s.ToggleFavorite(ctx, usr, "Abyssinian")
	require.NoError(t, err)

	names, err = s.FavoriteBreedNames(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestToggleRequiresUser(t *testing.T) {
	s, _ := newMemoryService(t)

	_, err := s.ToggleFavorite(context.Background(), nil, "Bengal")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	usr := signup(t, s, "jack")
	_, err = s.ToggleFavorite(context.Background(), usr, "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestToggleLostRaceRemoves(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.On("BeginTransaction", mock.Anything).Return((*sql.Tx)(nil), nil).Twice()
	db.On("RollbackTransaction", mock.Anything).Return(nil)
	db.On("CommitTransaction", mock.Anything).Return(nil).Once()
	db.On("GetUserFavorites", mock.Anything, 1, mock.Anything).Return([]string{}, nil).Once()
	db.On("AddFavorite", mock.Anything, 1, "Bengal", mock.Anything).
		Return(nil, fmt.Errorf("%w: favorites_pkey", models.ErrConstraintViolation)).Once()
	db.On("RemoveFavorite", mock.Anything, 1, "Bengal", mock.Anything).
		Return(&models.Favorite{UserID: 1, BreedName: "Bengal"}, nil).Once()

	s := New(db, newCatalog())
	result, err := s.ToggleFavorite(context.Background(), &user.User{ID: 1}, "Bengal")
	require.NoError(t, err)
	assert.Equal(t, models.ToggleRemoved, result.Action)
	assert.Equal(t, "Bengal", result.Favorite.BreedName)
	db.AssertExpectations(t)
}

func TestToggleForDeletedUser(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.On("BeginTransaction", mock.Anything).Return((*sql.Tx)(nil), nil).Once()
	db.On("RollbackTransaction", mock.Anything).Return(nil)
	db.On("GetUserFavorites", mock.Anything, 1, mock.Anything).Return([]string{}, nil).Once()
	db.On("AddFavorite", mock.Anything, 1, "Bengal", mock.Anything).
		Return(nil, fmt.Errorf("%w: favorites_user_id_fkey", models.ErrNotFound)).Once()

	s := New(db, newCatalog())
	result, err := s.ToggleFavorite(context.Background(), &user.User{ID: 1}, "Bengal")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Nil(t, result)
	db.AssertNotCalled(t, "RemoveFavorite", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	db.AssertExpectations(t)
}

func TestToggleAfterUserDeletedOnSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.New(ctx, filepath.Join(t.TempDir(), "gone.db"), time.Second)
	require.NoError(t, err)
	defer db.Close()

	s := New(db, newCatalog(), WithBcryptCost(bcrypt.MinCost))
	usr := signup(t, s, "lena")
	require.NoError(t, s.DeleteUser(ctx, usr))

	_, err = s.ToggleFavorite(ctx, usr, "Bengal")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestConcurrentTogglesOnSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.New(ctx, filepath.Join(t.TempDir(), "toggle.db"), time.Second)
	require.NoError(t, err)
	defer db.Close()

	s := New(db, newCatalog(), WithBcryptCost(bcrypt.MinCost))
	usr := signup(t, s, "kate")

	const togglers = 8
	var wg sync.WaitGroup
	errs := make(chan error, togglers)
	for i := 0; i < togglers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ToggleFavorite(ctx, usr, "Bengal")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	names, err := s.FavoriteBreedNames(ctx, usr.ID)
	require.NoError(t, err)
	assert.Empty(t, names, "an even number of toggles leaves the breed unfavorited")
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("incorrect password changes nothing", func(t *testing.T) {
		s, db := newMemoryService(t)
		usr := signup(t, s, "liam")

		_, err := s.UpdateProfile(ctx, usr, models.EditUserForm{
			Username: "liam2",
			Email:    "liam2@test.com",
			ImageURL: "https://example.com/l.png",
			Password: "wrong",
		})
		assert.ErrorIs(t, err, models.ErrIncorrectPassword)

		stored, err := db.GetUserByID(ctx, usr.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, "liam", stored.Username)
		assert.Equal(t, "liam@test.com", stored.Email)
		assert.Equal(t, user.DefaultImageURL, stored.ImageURL)
	})

	t.Run("correct password applies exactly the form", func(t *testing.T) {
		s, db := newMemoryService(t)
		usr := signup(t, s, "mia")

		updated, err := s.UpdateProfile(ctx, usr, models.EditUserForm{
			Username: "mia2",
			Email:    "mia2@test.com",
			ImageURL: "https://example.com/m.png",
			Password: "pw-mia",
		})
		require.NoError(t, err)
		assert.Equal(t, "mia2", updated.Username)

		stored, err := db.GetUserByID(ctx, usr.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, "mia2", stored.Username)
		assert.Equal(t, "mia2@test.com", stored.Email)
		assert.Equal(t, "https://example.com/m.png", stored.ImageURL)
		assert.Equal(t, usr.PasswordHash, stored.PasswordHash)
	})

	t.Run("invalid form is reported before the password", func(t *testing.T) {
		s, db := newMemoryService(t)
		usr := signup(t, s, "nina")

		_, err := s.UpdateProfile(ctx, usr, models.EditUserForm{
			Username: "nina2",
			Email:    "not-an-email",
			Password: "wrong",
		})
		assert.ErrorIs(t, err, models.ErrValidation)
		assert.NotErrorIs(t, err, models.ErrIncorrectPassword)

		stored, err := db.GetUserByID(ctx, usr.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, "nina", stored.Username)
	})

	t.Run("taken username", func(t *testing.T) {
		s, _ := newMemoryService(t)
		usr := signup(t, s, "noah")
		signup(t, s, "olga")

		_, err := s.UpdateProfile(ctx, usr, models.EditUserForm{
			Username: "olga",
			Email:    "noah@test.com",
			Password: "pw-noah",
		})
		assert.ErrorIs(t, err, models.ErrConstraintViolation)
	})
}

func TestBreedDetails(t *testing.T) {
	ctx := context.Background()
	db, err := memorystorage.New()
	require.NoError(t, err)
	breeds := newCatalog()
	s := New(db, breeds, WithBcryptCost(bcrypt.MinCost), WithImagesPerBreed(3))
	usr := signup(t, s, "paul")
	_, err = s.ToggleFavorite(ctx, usr, "Bengal")
	require.NoError(t, err)

	details, err := s.BreedDetails(ctx, "beng", usr)
	require.NoError(t, err)
	assert.Equal(t, "Bengal", details.Breed.Name)
	assert.True(t, details.IsFavorite)
	assert.Len(t, details.Images, 1)
	assert.Equal(t, 3, breeds.lastLimit)

	anonymous, err := s.BreedDetails(ctx, "beng", nil)
	require.NoError(t, err)
	assert.False(t, anonymous.IsFavorite)

	other, err := s.BreedDetails(ctx, "siam", usr)
	require.NoError(t, err)
	assert.False(t, other.IsFavorite)

	_, err = s.BreedDetails(ctx, "xxxx", usr)
	assert.ErrorIs(t, err, models.ErrNotFound)

	breeds.err = models.ErrUpstreamUnavailable
	_, err = s.BreedDetails(ctx, "beng", usr)
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestRandomBreedID(t *testing.T) {
	s, _ := newMemoryService(t)
	s.intN = func(n int) int { return n - 1 }

	id, err := s.RandomBreedID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "siam", id)

	s.catalog = &fakeCatalog{breeds: []models.Breed{}}
	_, err = s.RandomBreedID(context.Background())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProfileFavorites(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryService(t)
	usr := signup(t, s, "quinn")

	empty, err := s.ProfileFavorites(ctx, usr.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, name := range []string{"Siamese", "Retired Breed"} {
		_, err := s.ToggleFavorite(ctx, usr, name)
		require.NoError(t, err)
	}

	resolved, err := s.ProfileFavorites(ctx, usr.ID)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "siam", resolved[0].ID)
}
