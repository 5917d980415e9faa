package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/catfinder/internal/models"
	"github.com/patric-chuzhbe/catfinder/internal/session"
	"github.com/patric-chuzhbe/catfinder/internal/user"
)

func render(t *testing.T, page string, data Page) string {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	require.NoError(t, r.Render(recorder, http.StatusOK, page, data))
	assert.Equal(t, "text/html; charset=utf-8", recorder.Header().Get("Content-Type"))

	return recorder.Body.String()
}

func TestRenderPages(t *testing.T) {
	owner := &user.User{ID: 1, Username: "testuser1", ImageURL: user.DefaultImageURL}
	details := &models.BreedDetails{
		Breed: models.Breed{
			ID:          "abys",
			Name:        "Abyssinian",
			Temperament: "Active, Energetic",
		},
		Images: []models.BreedImage{{URL: "https://example.com/a.jpg"}},
	}

	tests := []struct {
		name     string
		page     string
		data     Page
		contains []string
		excludes []string
	}{
		{
			name: "index",
			page: PageIndex,
			data: Page{Data: IndexData{Breeds: []models.Breed{{ID: "abys", Name: "Abyssinian", EnergyLevel: 5}}}},
			contains: []string{
				`href="/cats/abys"`,
				`data-energy-level="5"`,
				`id="filter-cats-form"`,
				"Log in",
			},
			excludes: []string{"Logout"},
		},
		{
			name: "favorited breed",
			page: PageCatInfo,
			data: Page{
				CurrentUser: owner,
				Data:        CatInfoData{Details: &models.BreedDetails{Breed: details.Breed, Images: details.Images, IsFavorite: true}},
			},
			contains: []string{
				`<span class="fa-solid fa-star favorited" data-breed="Abyssinian" data-user="1">`,
				"Temperament:",
				"Logout",
			},
		},
		{
			name: "not favorited breed for anonymous",
			page: PageCatInfo,
			data: Page{Data: CatInfoData{Details: details}},
			contains: []string{
				`<span class="fa-solid fa-star" data-breed="Abyssinian" data-user="None">`,
			},
		},
		{
			name: "flashes",
			page: PageLogin,
			data: Page{
				Flashes: []session.Flash{{Category: session.FlashDanger, Message: "Access unauthorized."}},
				Data:    FormData{Error: "Invalid credentials."},
			},
			contains: []string{`alert-danger">Access unauthorized.`, "Invalid credentials."},
		},
		{
			name:     "signup keeps values",
			page:     PageSignup,
			data:     Page{Data: FormData{Username: "testuser1", Email: "t@test.com", Error: "Username already taken"}},
			contains: []string{`value="testuser1"`, "Username already taken"},
		},
		{
			name:     "edit form",
			page:     PageEditUser,
			data:     Page{CurrentUser: owner, Data: FormData{UserID: 1, Username: "testuser1"}},
			contains: []string{"Edit Account Details", `action="/users/1/edit"`, `value="testuser1"`},
		},
		{
			name: "own profile",
			page: PageProfile,
			data: Page{
				CurrentUser: owner,
				Data: ProfileData{
					User:      owner,
					Favorites: []models.Breed{{ID: "abys", Name: "Abyssinian"}},
					IsOwner:   true,
				},
			},
			contains: []string{"testuser1", "Abyssinian", "Edit", "Delete", user.DefaultImageURL},
		},
		{
			name: "someone else's profile",
			page: PageProfile,
			data: Page{
				CurrentUser: &user.User{ID: 2, Username: "testuser2"},
				Data:        ProfileData{User: owner},
			},
			contains: []string{"testuser1", "No favorite breeds yet."},
			excludes: []string{`action="/users/delete"`},
		},
		{
			name:     "sorry",
			page:     PageSorry,
			data:     Page{},
			contains: []string{"Sorry, but we don't currently have information on that cat breed."},
		},
		{
			name:     "error",
			page:     PageError,
			data:     Page{Data: ErrorData{Status: http.StatusBadGateway, Message: "The breed catalog is unavailable."}},
			contains: []string{"502", "The breed catalog is unavailable."},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			html := render(t, test.page, test.data)
			for _, s := range test.contains {
				assert.Contains(t, html, s)
			}
			for _, s := range test.excludes {
				assert.NotContains(t, html, s)
			}
		})
	}
}

func TestRenderUnknownPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	assert.Error(t, r.Render(recorder, http.StatusOK, "missing.html", Page{}))
	assert.Zero(t, recorder.Body.Len())
}

func TestStaticHandler(t *testing.T) {
	recorder := httptest.NewRecorder()
	StaticHandler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "/api/togglefav")
}
