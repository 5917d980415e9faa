package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/catfinder/internal/metrics"
	"github.com/patric-chuzhbe/catfinder/internal/models"
)

const breedsJSON = `[
	{
		"id": "abys",
		"name": "Abyssinian",
		"temperament": "Active, Energetic, Independent",
		"origin": "Egypt",
		"life_span": "14 - 15",
		"energy_level": 5,
		"hypoallergenic": 0,
		"image": {"id": "0XYvRd7oD", "url": "https://cdn2.thecatapi.com/images/0XYvRd7oD.jpg"}
	},
	{"id": "beng", "name": "Bengal", "origin": "United States", "energy_level": 5}
]`

type upstream struct {
	server   *httptest.Server
	hits     atomic.Int32
	lastKey  atomic.Value
	lastPath atomic.Value
	status   int
	delay    time.Duration
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{status: http.StatusOK}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		u.lastKey.Store(r.Header.Get("x-api-key"))
		u.lastPath.Store(r.URL.RequestURI())
		if u.delay > 0 {
			time.Sleep(u.delay)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(u.status)
		switch r.URL.Path {
		case "/breeds":
			_, _ = w.Write([]byte(breedsJSON))
		case "/images/search":
			_, _ = w.Write([]byte(`[
				{"id": "a1", "url": "https://cdn2.thecatapi.com/images/a1.jpg", "width": 800, "height": 600},
				{"id": "a2", "url": "https://cdn2.thecatapi.com/images/a2.jpg"}
			]`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(u.server.Close)

	return u
}

func TestListBreeds(t *testing.T) {
	u := newUpstream(t)
	client := New(u.server.URL, WithAPIKey("secret-key"))

	breeds, err := client.ListBreeds(context.Background())
	require.NoError(t, err)
	require.Len(t, breeds, 2)

	assert.Equal(t, "abys", breeds[0].ID)
	assert.Equal(t, "Abyssinian", breeds[0].Name)
	assert.Equal(t, "Egypt", breeds[0].Origin)
	assert.Equal(t, 5, breeds[0].EnergyLevel)
	require.NotNil(t, breeds[0].Image)
	assert.Equal(t, "https://cdn2.thecatapi.com/images/0XYvRd7oD.jpg", breeds[0].Image.URL)
	assert.Nil(t, breeds[1].Image)

	assert.Equal(t, "secret-key", u.lastKey.Load())
}

func TestNoAPIKeyHeaderWhenUnset(t *testing.T) {
	u := newUpstream(t)
	client := New(u.server.URL)

	_, err := client.ListBreeds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", u.lastKey.Load())
}

func TestSearchImages(t *testing.T) {
	u := newUpstream(t)
	client := New(u.server.URL)

	images, err := client.SearchImages(context.Background(), "abys", 5)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "https://cdn2.thecatapi.com/images/a1.jpg", images[0].URL)
	assert.Equal(t, 800, images[0].Width)

	path := u.lastPath.Load().(string)
	assert.Contains(t, path, "breed_ids=abys")
	assert.Contains(t, path, "limit=5")
}

func TestUpstreamFailures(t *testing.T) {
	t.Run("error status", func(t *testing.T) {
		u := newUpstream(t)
		u.status = http.StatusInternalServerError
		client := New(u.server.URL)

		_, err := client.ListBreeds(context.Background())
		assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)

		_, err = client.SearchImages(context.Background(), "abys", 5)
		assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	})

	t.Run("unreachable", func(t *testing.T) {
		u := newUpstream(t)
		url := u.server.URL
		u.server.Close()

		_, err := New(url).ListBreeds(context.Background())
		assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		u := newUpstream(t)
		u.delay = 200 * time.Millisecond
		client := New(u.server.URL, WithTimeout(20*time.Millisecond))

		_, err := client.ListBreeds(context.Background())
		assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	})
}

func TestBreedsCache(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		u := newUpstream(t)
		client := New(u.server.URL)

		for i := 0; i < 3; i++ {
			_, err := client.ListBreeds(context.Background())
			require.NoError(t, err)
		}
		assert.Equal(t, int32(3), u.hits.Load())
	})

	t.Run("serves from cache until expiry", func(t *testing.T) {
		u := newUpstream(t)
		now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		client := New(u.server.URL, WithCacheTTL(time.Minute))
		client.now = func() time.Time { return now }

		for i := 0; i < 3; i++ {
			_, err := client.ListBreeds(context.Background())
			require.NoError(t, err)
		}
		assert.Equal(t, int32(1), u.hits.Load())

		now = now.Add(2 * time.Minute)
		_, err := client.ListBreeds(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(2), u.hits.Load())

		client.Invalidate()
		_, err = client.ListBreeds(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(3), u.hits.Load())
	})

	t.Run("callers cannot corrupt the cache", func(t *testing.T) {
		u := newUpstream(t)
		client := New(u.server.URL, WithCacheTTL(time.Hour))

		first, err := client.ListBreeds(context.Background())
		require.NoError(t, err)
		first[0].Name = "changed"

		second, err := client.ListBreeds(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Abyssinian", second[0].Name)
	})
}

func TestListBreedsSharedFetchSurvivesCanceledCaller(t *testing.T) {
	u := newUpstream(t)
	u.delay = 300 * time.Millisecond
	client := New(u.server.URL)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.ListBreeds(firstCtx)
		firstErr <- err
	}()
	time.Sleep(50 * time.Millisecond)

	type listResult struct {
		breeds []models.Breed
		err    error
	}
	second := make(chan listResult, 1)
	go func() {
		breeds, err := client.ListBreeds(context.Background())
		second <- listResult{breeds: breeds, err: err}
	}()
	time.Sleep(50 * time.Millisecond)
	cancelFirst()

	assert.ErrorIs(t, <-firstErr, context.Canceled)

	got := <-second
	require.NoError(t, got.err)
	assert.Len(t, got.breeds, 2)
	assert.Equal(t, int32(1), u.hits.Load())
}

func TestCatalogMetrics(t *testing.T) {
	u := newUpstream(t)
	m := metrics.New(prometheus.NewRegistry())
	client := New(u.server.URL, WithMetrics(m))

	_, err := client.ListBreeds(context.Background())
	require.NoError(t, err)
	u.status = http.StatusBadGateway
	_, err = client.SearchImages(context.Background(), "abys", 1)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogRequests.WithLabelValues(endpointBreeds, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogRequests.WithLabelValues(endpointImages, "error")))
}
