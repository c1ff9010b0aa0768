package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors_Count(t *testing.T) {
	c := New()
	c.ObserveRequest("GET", "/api/:resource", 200)
	c.ObserveRequest("GET", "/api/:resource", 200)
	c.ObserveRequest("POST", "", 404)
	c.ObserveFlush(nil)
	c.ObserveFlush(errors.New("disk full"))
	c.AuthEvent("login_ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/:resource", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("POST", "unmatched", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.storeFlushes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.storeFlushes.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.authEvents.WithLabelValues("login_ok")))
}

func TestCollectors_NilIsNoop(t *testing.T) {
	var c *Collectors
	assert.NotPanics(t, func() {
		c.ObserveRequest("GET", "/", 200)
		c.ObserveFlush(nil)
		c.AuthEvent("x")
	})

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCollectors_Handler(t *testing.T) {
	c := New()
	c.AuthEvent("logout")

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `dashboard_auth_events_total{event="logout"} 1`)
}

func TestCollectors_Registry(t *testing.T) {
	c := New()
	c.ObserveFlush(nil)
	c.AuthEvent("login_ok")
	c.AuthEvent("logout")

	n, err := testutil.GatherAndCount(c.Registry(), "dashboard_auth_events_total", "dashboard_store_flushes_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = testutil.GatherAndCount(c.Registry())
	require.NoError(t, err)
	assert.Equal(t, 3, n, "only the service's own collectors are registered")
}
