// Package catalog is the gateway to the external cat breed catalog
// (TheCatAPI-compatible). It lists breeds and searches breed images.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"

	"github.com/patric-chuzhbe/catfinder/internal/metrics"
	"github.com/patric-chuzhbe/catfinder/internal/models"
)

const (
	defaultTimeout = 10 * time.Second

	endpointBreeds = "breeds"
	endpointImages = "images"
)

// Client talks to the catalog API. It is safe for concurrent use.
type Client struct {
	http     *resty.Client
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	breeds   []models.Breed
	cachedAt time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key in the x-api-key header. An empty key sends nothing.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.http.SetHeader("x-api-key", key)
		}
	}
}

// WithTimeout bounds every upstream call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.SetTimeout(timeout)
		}
	}
}

// WithCacheTTL keeps the breed list for ttl. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cacheTTL = ttl
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a client for the API rooted at baseURL, e.g. https://api.thecatapi.com/v1.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(defaultTimeout).
			SetHeader("Accept", "application/json"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListBreeds returns all breeds. Concurrent calls share one upstream request,
// which outlives any single caller's context and is bounded by the client
// timeout. A caller whose ctx ends stops waiting and gets ctx.Err().
func (c *Client) ListBreeds(ctx context.Context) ([]models.Breed, error) {
	if breeds, ok := c.cachedBreeds(); ok {
		return breeds, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(endpointBreeds, func() (interface{}, error) {
		if breeds, ok := c.cachedBreeds(); ok {
			return breeds, nil
		}

		var breeds []models.Breed
		if err := c.get(fetchCtx, endpointBreeds, "/breeds", nil, &breeds); err != nil {
			return nil, err
		}
		if breeds == nil {
			breeds = []models.Breed{}
		}

		if c.cacheTTL > 0 {
			c.mu.Lock()
			c.breeds = breeds
			c.cachedAt = c.now()
			c.mu.Unlock()
		}

		return breeds, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.([]models.Breed)), nil
	}
}

// SearchImages returns up to limit images of the breed.
func (c *Client) SearchImages(ctx context.Context, breedID string, limit int) ([]models.BreedImage, error) {
	var images []models.BreedImage
	params := map[string]string{
		"breed_ids": breedID,
		"limit":     strconv.Itoa(limit),
	}
	if err := c.get(ctx, endpointImages, "/images/search", params, &images); err != nil {
		return nil, err
	}
	if images == nil {
		images = []models.BreedImage{}
	}

	return images, nil
}

// Invalidate drops the cached breed list.
func (c *Client) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.breeds = nil
	c.cachedAt = time.Time{}
}

func (c *Client) cachedBreeds() ([]models.Breed, bool) {
	if c.cacheTTL <= 0 {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.breeds == nil || c.now().Sub(c.cachedAt) >= c.cacheTTL {
		return nil, false
	}

	return clone(c.breeds), true
}

func (c *Client) get(
	ctx context.Context,
	endpoint string,
	path string,
	params map[string]string,
	result interface{},
) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveCatalogRequest(endpoint, time.Since(start).Seconds(), err)
	}()

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		Get(path)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", models.ErrUpstreamUnavailable, path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: GET %s: status %d", models.ErrUpstreamUnavailable, path, resp.StatusCode())
	}

	return nil
}

func clone(breeds []models.Breed) []models.Breed {
	return append([]models.Breed{}, breeds...)
}
