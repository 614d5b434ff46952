package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingCollector struct {
	route  string
	status int
}

func (r *recordingCollector) ObserveAssignment(string, string, float64, time.Duration) {}
func (r *recordingCollector) ObserveRetry(string) {}
func (r *recordingCollector) ObserveBatch(int, int, time.Duration) {}
func (r *recordingCollector) ObserveHTTP(_ string, route string, status int, _ time.Duration) {
	r.route, r.status = route, status
}

func TestAdminKey(t *testing.T) {
	r := gin.New()
	r.GET("/open", AdminKey(""), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/locked", AdminKey("s3cret"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	cases := []struct {
		path string
		key  string
		want int
	}{
		{"/open", "", http.StatusNoContent},
		{"/locked", "", http.StatusUnauthorized},
		{"/locked", "wrong", http.StatusUnauthorized},
		{"/locked", "s3cret", http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.key != "" {
			req.Header.Set(AdminKeyHeader, tc.key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, "%s with key %q", tc.path, tc.key)
		if tc.want == http.StatusUnauthorized {
			assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
		}
	}
}

func TestRequestIDAndLogger(t *testing.T) {
	var buf strings.Builder
	r := gin.New()
	r.Use(RequestID(), Logger(zerolog.New(&buf)))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/items/7", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"abc-123"`)
	assert.Contains(t, buf.String(), `"path":"/items/:id"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/8", nil))
	assert.True(t, strings.HasPrefix(w.Header().Get(RequestIDHeader), "req_"))
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	rec := &recordingCollector{}
	r := gin.New()
	r.Use(Metrics(rec))
	r.GET("/api/bookings/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/bookings/42", nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "/api/bookings/:id", rec.route)
	assert.Equal(t, http.StatusAccepted, rec.status)
}

func TestTimeoutSetsDeadline(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(time.Second))
	r.GET("/", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
