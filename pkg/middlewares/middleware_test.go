package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"trace": c.GetString(pkg.TraceId), "user": c.GetString(pkg.UserId)})
	})
	return r
}

func get(h http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTraceID_GeneratesAndEchoes(t *testing.T) {
	r := newEngine(TraceID(zap.NewNop()))

	rec := get(r, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Header().Get(pkg.HeaderTraceId), 36)

	rec = get(r, map[string]string{pkg.HeaderTraceId: "abc"})
	assert.Equal(t, "abc", rec.Header().Get(pkg.HeaderTraceId))
	assert.Contains(t, rec.Body.String(), `"trace":"abc"`)
}

func TestPrincipal(t *testing.T) {
	r := newEngine(TraceID(zap.NewNop()), Principal(zap.NewNop(), HeaderPrincipalResolver{}))

	rec := get(r, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), pkg.ErrUnauthorizedCode.Code)

	rec = get(r, map[string]string{pkg.HeaderUserId: "   "})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(r, map[string]string{pkg.HeaderUserId: "alice"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user":"alice"`)
}

type countingLimiter struct {
	budget int
	keys   []string
}

func (l *countingLimiter) Allow(_ context.Context, key string) bool {
	l.keys = append(l.keys, key)
	if l.budget == 0 {
		return false
	}
	l.budget--
	return true
}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{budget: 2}
	r := newEngine(RateLimit(zap.NewNop(), limiter, ClientIPKey))

	assert.Equal(t, http.StatusOK, get(r, nil).Code)
	assert.Equal(t, http.StatusOK, get(r, nil).Code)
	rec := get(r, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), pkg.ErrRateLimitedCode.Code)
	assert.Equal(t, "192.0.2.1", limiter.keys[0])
}

func TestMetrics_PassesThrough(t *testing.T) {
	r := newEngine(Metrics())

	assert.Equal(t, http.StatusOK, get(r, nil).Code)
}
