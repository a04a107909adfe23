package middleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/richxcame/tutor-payouts/pkg/common"
	"github.com/richxcame/tutor-payouts/pkg/logger"
	"github.com/richxcame/tutor-payouts/pkg/ratelimit"
)

// Allower is the part of ratelimit.Limiter the middleware needs.
type Allower interface {
	RuleFor(endpoint string, identity ratelimit.IdentityType) ratelimit.Rule
	Allow(ctx context.Context, endpoint, identity string, rule ratelimit.Rule, identityType ratelimit.IdentityType) (*ratelimit.Result, error)
}

// RateLimit throttles requests per caller and route. Authenticated callers are
// keyed by user id, everyone else by client IP. Redis failures let the request through.
func RateLimit(limiter Allower) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		identity, identityType := c.ClientIP(), ratelimit.IdentityAnonymous
		if session, ok := GetSession(c); ok {
			identity, identityType = session.UserID.String(), ratelimit.IdentityAuthenticated
		}

		rule := limiter.RuleFor(endpoint, identityType)
		result, err := limiter.Allow(c.Request.Context(), endpoint, identity, rule, identityType)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("Rate limiter unavailable, allowing request",
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(ceilSeconds(result.RetryAfter)))
			common.AppErrorResponse(c, common.NewRateLimitedError("too many requests, try again later"))
			c.Abort()
			return
		}

		c.Next()
	}
}

func ceilSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
