package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/mediarelay/pkg/configs"
	appctx "github.com/yeisme/mediarelay/pkg/context"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/api/v1/stream", func(c *gin.Context) {
		c.String(http.StatusOK, appctx.GetRequestID(c.Request.Context()))
	})

	return r
}

func TestRequestIDMiddleware(t *testing.T) {
	r := newEngine(RequestIDMiddleware())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stream", nil))

	id := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, id)
	assert.Equal(t, id, w.Body.String())

	// 沿用调用方的请求 ID
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream", nil)
	req.Header.Set(RequestIDHeader, "abc-123")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestRequestIDInjectsLogger(t *testing.T) {
	var got *zerolog.Logger

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		got = zerolog.Ctx(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, got)
}

func TestRedactQuery(t *testing.T) {
	assert.Equal(t, "u=REDACTED", redactQuery("u=aHR0cDovL2E%3D", []string{"u"}))
	assert.Equal(t, "a=1&u=REDACTED", redactQuery("u=x&a=1", []string{"u"}))
	assert.Equal(t, "a=1", redactQuery("a=1", []string{"u"}))
	assert.Equal(t, "u=x", redactQuery("u=x", nil))
	assert.Equal(t, redacted, redactQuery("u=%zz", []string{"u"}))
}

func TestCORSPreflight(t *testing.T) {
	r := newEngine(CORSMiddleware(configs.ServerConfig{}))
	r.OPTIONS("/api/v1/stream", func(c *gin.Context) {})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/stream", nil)
	req.Header.Set("Origin", "https://player.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "range")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Range")
}

func TestCORSExposesRangeHeaders(t *testing.T) {
	r := newEngine(CORSMiddleware(configs.ServerConfig{}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream", nil)
	req.Header.Set("Origin", "https://player.example.com")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Range")
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newEngine(RateLimitMiddleware(configs.RateLimitConfig{
		Enabled: true,
		RPS:     0.001,
		Burst:   2,
		Key:     "ip",
	}))

	codes := make([]int, 0, 3)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stream", nil))
		codes = append(codes, w.Code)

		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitDisabled(t *testing.T) {
	r := newEngine(RateLimitMiddleware(configs.RateLimitConfig{Enabled: false}))

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stream", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestLimiterSetEvict(t *testing.T) {
	s := newLimiterSet(configs.RateLimitConfig{RPS: 1, Burst: 1})
	s.get("a")
	s.get("b")

	s.evict(s.entries["b"].lastSeen.Add(1))
	assert.Empty(t, s.entries)
}
