package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/tutor-payouts/pkg/logger"
	"go.uber.org/zap"
)

// RequestLogger logs each API call together with the caller's session.
// Query strings are omitted; admin list filters carry tutor IDs.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if session, ok := GetSession(c); ok {
			fields = append(fields,
				zap.String("user_id", session.UserID.String()),
				zap.String("role", string(session.Role)),
			)
		}

		reqLogger := logger.WithContext(c.Request.Context())
		switch {
		case len(c.Errors) > 0:
			reqLogger.Error("Payout API call failed", append(fields, zap.String("errors", c.Errors.String()))...)
		case status >= 500:
			reqLogger.Error("Payout API call failed", fields...)
		case status >= 400:
			reqLogger.Warn("Payout API call refused", fields...)
		default:
			reqLogger.Info("Payout API call", fields...)
		}
	}
}
