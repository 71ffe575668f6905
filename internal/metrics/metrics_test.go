package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRouteAndStatus(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/posts/:id", func(c echo.Context) error {
		if c.Param("id") == "0" {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
		}
		return c.NoContent(http.StatusOK)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/posts/:id", "400"))

	for _, id := range []string{"1", "0", "0"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/"+id, nil))
	}

	assert.Equal(t, before+2, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/posts/:id", "400")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/posts/:id", "200")), 1.0)
	assert.Equal(t, 0.0, testutil.ToFloat64(httpInFlight))
}

func TestRecordEvent(t *testing.T) {
	before := testutil.ToFloat64(eventsPublished.WithLabelValues("post-created", "error"))
	RecordEvent("post-created", errors.New("broker down"))
	assert.Equal(t, before+1, testutil.ToFloat64(eventsPublished.WithLabelValues("post-created", "error")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	ChatConnected()
	defer ChatDisconnected()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "mindhaven_chat_connections"))
}
