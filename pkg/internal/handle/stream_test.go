package handle

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/mediarelay/pkg/configs"
	"github.com/yeisme/mediarelay/pkg/internal/relay"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func mediaServer(t *testing.T, size int) (*httptest.Server, []byte) {
	t.Helper()

	content := bytes.Repeat([]byte("0123456789"), size/10)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(content))
	}))
	t.Cleanup(srv.Close)

	return srv, content
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()

	svc, err := relay.NewService(configs.DefaultRelayConfig())
	require.NoError(t, err)

	r := gin.New()
	r.GET("/api/v1/stream", NewStreamHandlers(svc, configs.DefaultTokenParam).Stream())
	r.GET("/api/v1/health", Health)

	return r
}

func streamURL(resource string) string {
	raw := resource + "?t=" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	return "/api/v1/stream?u=" + url.QueryEscape(base64.StdEncoding.EncodeToString([]byte(raw)))
}

func TestStreamPartial(t *testing.T) {
	srv, content := mediaServer(t, 1000)
	r := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, streamURL(srv.URL+"/a.mp4"), nil)
	req.Header.Set("Range", "bytes=10-19")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "bytes 10-19/1000", w.Header().Get("Content-Range"))
	assert.Equal(t, "10", w.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Equal(t, content[10:20], w.Body.Bytes())
}

func TestStreamFull(t *testing.T) {
	srv, content := mediaServer(t, 500)
	r := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, streamURL(srv.URL+"/a.mp4"), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "500", w.Header().Get("Content-Length"))
	assert.Equal(t, content, w.Body.Bytes())
}

func TestStreamErrors(t *testing.T) {
	srv, _ := mediaServer(t, 100)
	r := newRouter(t)

	expired := srv.URL + "/a.mp4?t=" + strconv.FormatInt(time.Now().Add(-2*time.Minute).UnixMilli(), 10)

	cases := []struct {
		name   string
		target string
		rng    string
		status int
		body   string
	}{
		{"missing", "/api/v1/stream", "", http.StatusBadRequest, "Video URL is required"},
		{"empty", "/api/v1/stream?u=", "", http.StatusBadRequest, "Video URL is required"},
		{"malformed", "/api/v1/stream?u=%25%25%25", "", http.StatusBadRequest, "Invalid video token"},
		{
			"expired",
			"/api/v1/stream?u=" + url.QueryEscape(base64.StdEncoding.EncodeToString([]byte(expired))),
			"", http.StatusBadRequest, "Video URL is expired",
		},
		{
			"unsatisfiable", streamURL(srv.URL + "/a.mp4"), "bytes=100-",
			http.StatusRequestedRangeNotSatisfiable, "Requested range not satisfiable",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.rng != "" {
				req.Header.Set("Range", tc.rng)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.body, w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestStreamUnsatisfiableHeader(t *testing.T) {
	srv, _ := mediaServer(t, 100)
	r := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, streamURL(srv.URL+"/a.mp4"), nil)
	req.Header.Set("Range", "bytes=200-300")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
	assert.Equal(t, "bytes */100", w.Header().Get("Content-Range"))
}

func TestStreamUpstreamNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	r := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, streamURL(srv.URL+"/missing.mp4"), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Failed to fetch video metadata", w.Body.String())
}

func TestHealth(t *testing.T) {
	r := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"`+configs.AppVersion+`"}`, w.Body.String())
}

func TestStreamHandlersUseConfiguredParam(t *testing.T) {
	srv, content := mediaServer(t, 100)

	svc, err := relay.NewService(configs.DefaultRelayConfig())
	require.NoError(t, err)

	r := gin.New()
	r.GET("/s", NewStreamHandlers(svc, "token").Stream())

	raw := srv.URL + "/a.mp4?t=" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	target := "/s?token=" + url.QueryEscape(base64.StdEncoding.EncodeToString([]byte(raw)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.Bytes())
}

func TestStreamBreakerIsolatesOrigins(t *testing.T) {
	good, content := mediaServer(t, 300)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(bad.Close)

	svc, err := relay.NewService(configs.DefaultRelayConfig(), relay.WithCircuitBreaker(configs.CircuitBreakerConfig{
		Enabled:           true,
		FailureRate:       0.5,
		MinRequests:       20,
		IntervalSeconds:   60,
		TimeoutSeconds:    60,
		MaxRequestsInHalf: 1,
	}))
	require.NoError(t, err)

	r := gin.New()
	r.GET("/api/v1/stream", NewStreamHandlers(svc, configs.DefaultTokenParam).Stream())

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, streamURL(bad.URL+"/a.mp4"), nil))
		assert.Equal(t, http.StatusBadGateway, w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, streamURL(bad.URL+"/a.mp4"), nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, streamURL(good.URL+"/a.mp4"), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.Bytes())
}

var _ StreamService = (*relay.Service)(nil)
