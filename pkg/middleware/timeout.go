package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/richxcame/tutor-payouts/pkg/common"
	"github.com/richxcame/tutor-payouts/pkg/logger"
)

// Timeout answers 503 when a handler runs longer than d. Websocket
// upgrades are long-lived and pass through untouched.
func Timeout(d time.Duration) gin.HandlerFunc {
	bounded := timeout.New(
		timeout.WithTimeout(d),
		timeout.WithResponse(func(c *gin.Context) {
			logger.WithContext(c.Request.Context()).Warn("Request timed out",
				zap.String("path", c.Request.URL.Path),
				zap.Duration("timeout", d),
			)
			common.AppErrorResponse(c, common.NewServiceUnavailableError("request timed out"))
		}),
	)
	return func(c *gin.Context) {
		if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			c.Next()
			return
		}
		bounded(c)
	}
}
