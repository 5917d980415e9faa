// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	UsersSignedUp    prometheus.Counter
	UsersDeleted     prometheus.Counter
	FavoritesToggled *prometheus.CounterVec
	CatalogRequests  *prometheus.CounterVec
	CatalogLatency   *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		UsersSignedUp: factory.NewCounter(prometheus.CounterOpts{
			Name: "catfinder_users_signed_up_total",
			Help: "Total number of users created through signup",
		}),
		UsersDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "catfinder_users_deleted_total",
			Help: "Total number of self-deleted users",
		}),
		FavoritesToggled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catfinder_favorites_toggled_total",
			Help: "Favorite toggles by resulting action",
		}, []string{"action"}),
		CatalogRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catfinder_catalog_requests_total",
			Help: "Requests sent to the breed catalog by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		CatalogLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catfinder_catalog_request_duration_seconds",
			Help:    "Latency of breed catalog requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func (m *Metrics) IncUsersSignedUp() {
	if m == nil {
		return
	}
	m.UsersSignedUp.Inc()
}

func (m *Metrics) IncUsersDeleted() {
	if m == nil {
		return
	}
	m.UsersDeleted.Inc()
}

func (m *Metrics) IncFavoritesToggled(action string) {
	if m == nil {
		return
	}
	m.FavoritesToggled.WithLabelValues(action).Inc()
}

// ObserveCatalogRequest records one upstream call.
func (m *Metrics) ObserveCatalogRequest(endpoint string, seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CatalogRequests.WithLabelValues(endpoint, outcome).Inc()
	m.CatalogLatency.WithLabelValues(endpoint).Observe(seconds)
}
