package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/pkg/circuitbreaker"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_PerUser(t *testing.T) {
	keyed, err := ratelimiter.NewKeyed(func() ratelimiter.RateLimiter {
		return ratelimiter.NewFixedWindowCounter(1, time.Hour)
	}, 100)
	require.NoError(t, err)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserID, uint(len(c.Query("u"))))
		c.Next()
	})
	r.Use(RateLimit(keyed, UserKey))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, "/?u=a").Code)
	assert.Equal(t, http.StatusTooManyRequests, perform(r, "/?u=a").Code)
	assert.Equal(t, http.StatusOK, perform(r, "/?u=bb").Code)
}

func TestCircuitBreak_OpensOnServerErrors(t *testing.T) {
	breaker := circuitbreaker.New(2, 1, time.Minute)
	r := gin.New()
	r.Use(CircuitBreak(breaker))
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	assert.Equal(t, http.StatusInternalServerError, perform(r, "/fail").Code)
	assert.Equal(t, http.StatusInternalServerError, perform(r, "/fail").Code)

	w := perform(r, "/fail")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Circuit Breaker is open")
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(logger.Discard()))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "fine") })

	w := perform(r, "/ok")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fine", w.Body.String())
}
