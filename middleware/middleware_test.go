package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLoggingMiddleware_TraceID(t *testing.T) {
	r := gin.New()
	r.Use(LoggingMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("trace_id"))
	})

	t.Run("from traceparent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(TraceParentHeader, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", w.Header().Get(TraceIDHeader))
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", w.Body.String())
	})

	t.Run("from header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(TraceIDHeader, "client-trace")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "client-trace", w.Header().Get(TraceIDHeader))
	})

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Len(t, w.Header().Get(TraceIDHeader), 32)
	})
}

func TestBodyLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimitMiddleware(8))
	r.POST("/echo", func(c *gin.Context) {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.String(http.StatusOK, string(b))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("short")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("far too long for the limit")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestPrometheusMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(PrometheusMiddleware())
	r.GET("/profile/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/profile/:id", "404"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/profile/7", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/profile/:id", "404"))

	require.Equal(t, before+1, after)
}

func TestRecordAuthEvent(t *testing.T) {
	before := testutil.ToFloat64(authEventsTotal.WithLabelValues("signin", "ok"))
	RecordAuthEvent("signin", "ok")
	assert.Equal(t, before+1, testutil.ToFloat64(authEventsTotal.WithLabelValues("signin", "ok")))
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://localhost:3000"}))
	r.POST("/signin", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/signin", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
