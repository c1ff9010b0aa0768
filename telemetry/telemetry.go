// Package telemetry holds the prometheus collectors for the service.
package telemetry

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors is safe to use through a nil pointer; every method is then a no-op.
type Collectors struct {
	registry     *prometheus.Registry
	httpRequests *prometheus.CounterVec
	storeFlushes *prometheus.CounterVec
	authEvents   *prometheus.CounterVec
}

func New() *Collectors {
	reg := prometheus.NewRegistry()
	c := &Collectors{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "HTTP requests handled, by method, route and status.",
		}, []string{"method", "route", "status"}),
		storeFlushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_store_flushes_total",
			Help: "Data file writes, by result.",
		}, []string{"result"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_auth_events_total",
			Help: "Authentication events, by kind.",
		}, []string{"event"}),
	}
	reg.MustRegister(c.httpRequests, c.storeFlushes, c.authEvents)
	return c
}

func (c *Collectors) ObserveRequest(method, route string, status int) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (c *Collectors) ObserveFlush(err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.storeFlushes.WithLabelValues(result).Inc()
}

func (c *Collectors) AuthEvent(event string) {
	if c == nil {
		return
	}
	c.authEvents.WithLabelValues(event).Inc()
}

func (c *Collectors) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry the collectors are registered on.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}
