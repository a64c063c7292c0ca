package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/utils"
	"go.uber.org/zap"
)

// TraceID returns Gin middleware to handle trace IDs for observability.
// It reuses an incoming X-Trace-Id, echoes it on the response and logs the request outcome.
func TraceID(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.Request.Header.Get(pkg.HeaderTraceId)
		if utils.IsEmpty(traceID) {
			traceID = uuid.New().String()
		}
		c.Set(pkg.TraceId, traceID)
		c.Writer.Header().Set(pkg.HeaderTraceId, traceID)
		if requestID := c.Request.Header.Get(pkg.HeaderRequestId); !utils.IsEmpty(requestID) {
			c.Set(pkg.RequestId, requestID)
		}

		start := time.Now()
		c.Next()

		logger.Debug("request handled",
			zap.String(pkg.TraceId, traceID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
