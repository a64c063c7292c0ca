package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"go.uber.org/zap"
)

// Limiter is satisfied by *pkg.DistributedLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// ClientIPKey limits by the caller's address.
func ClientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

// RateLimit aborts with 429 once the limiter denies the request's key.
func RateLimit(logger *zap.Logger, limiter Limiter, keyFn func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.Request.Context(), keyFn(c)) {
			resp := pkg.ToErrorResponse(logger, c.GetString(pkg.TraceId),
				pkg.NewAppError(pkg.ErrRateLimitedCode, "too many requests", pkg.ErrRateLimitExceeded))
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Next()
	}
}
