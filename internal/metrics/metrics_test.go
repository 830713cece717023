package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordBuild(t *testing.T) {
	before := testutil.ToFloat64(buildsTotal.WithLabelValues("timeout"))
	RecordBuild("timeout", time.Second)
	require.Equal(t, before+1, testutil.ToFloat64(buildsTotal.WithLabelValues("timeout")))

	rejected := testutil.ToFloat64(buildsRejectedTotal)
	RecordBuildRejected()
	require.Equal(t, rejected+1, testutil.ToFloat64(buildsRejectedTotal))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/v1/sessions/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/sessions/abc", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.True(t, strings.Contains(body, `path="/v1/sessions/:id"`), body)
	require.NotContains(t, body, `path="/v1/sessions/abc"`)
}
