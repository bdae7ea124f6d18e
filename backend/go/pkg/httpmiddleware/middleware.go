package httpmiddleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/circuitbreaker"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

// ContextUserID is the gin context key the auth middleware stores the user id under.
const ContextUserID = "userID"

// KeyFunc extracts the rate limiting key from a request.
type KeyFunc func(c *gin.Context) string

// ClientIPKey keys requests by client IP.
func ClientIPKey(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// UserKey keys requests by authenticated user, falling back to the client IP.
func UserKey(c *gin.Context) string {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(uint); ok {
			return fmt.Sprintf("user:%d", id)
		}
	}
	return ClientIPKey(c)
}

// RateLimit rejects requests with 429 once the caller's limiter is exhausted.
func RateLimit(limiter *ratelimiter.Keyed, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(key(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too Many Requests"})
			return
		}
		c.Next()
	}
}

// CircuitBreak applies the circuit breaker to the remaining handler chain.
// Responses with status >= 500 count as failures.
func CircuitBreak(breaker *circuitbreaker.Breaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := breaker.Execute(func() error {
			c.Next()
			if status := c.Writer.Status(); status >= http.StatusInternalServerError {
				return fmt.Errorf("server error: status code %d", status)
			}
			return nil
		})
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Service Unavailable: Circuit Breaker is open"})
		}
	}
}

// RequestLogger writes one structured log line per request.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		req := models.RequestInfo{
			Method:     c.Request.Method,
			Path:       c.FullPath(),
			RemoteAddr: c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			Status:     c.Writer.Status(),
			LatencyMS:  time.Since(start).Milliseconds(),
		}
		if req.Path == "" {
			req.Path = c.Request.URL.Path
		}
		entry := log.WithRequest(req)
		if uid, ok := c.Get(ContextUserID); ok {
			entry = entry.WithUser(fmt.Sprint(uid))
		}

		switch {
		case req.Status >= http.StatusInternalServerError:
			entry.WithError(models.ErrorInfo{Message: c.Errors.String(), StatusCode: req.Status}).Error("request failed")
		case req.Status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request completed")
		}
	}
}
