package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObservePrediction(t *testing.T) {
	m := New()

	m.ObservePrediction("HIGH", 92, []string{"high_engagement", "trending_topic"})
	m.ObservePrediction("HIGH", 81, []string{"trending_topic"})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.predictionsTotal.WithLabelValues("HIGH")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.factorsTotal.WithLabelValues("trending_topic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.factorsTotal.WithLabelValues("high_engagement")))
}

func TestMetrics_CacheAndRescore(t *testing.T) {
	m := New()

	m.IncCacheHit()
	m.IncCacheMiss()
	m.IncCacheMiss()
	m.ObserveRescore("success", 12, 250*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("miss")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.rescoreEvents))
}

func TestMetrics_GinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.GinMiddleware())
	router.GET("/api/events/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events/abc", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/events/:id", "404")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "predictify_http_requests_total"))
}
