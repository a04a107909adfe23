// Package errorreport forwards unexpected failures to Sentry.
package errorreport

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/richxcame/tutor-payouts/pkg/config"
)

// Init configures the global Sentry client. It reports false when no DSN is set.
func Init(cfg config.SentryConfig, environment, release string) (bool, error) {
	if cfg.DSN == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      environment,
		Release:          release,
		SampleRate:       cfg.SampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return false, fmt.Errorf("sentry init: %w", err)
	}
	return true, nil
}

// Middleware binds a per-request hub carrying the request details. Mount it
// outside middleware.Recovery so panics are reported once, by Recovery.
func Middleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true})
}

// CaptureRequestError reports err against the request's hub, tagged with the route.
func CaptureRequestError(c *gin.Context, err error) {
	if hub := requestHub(c); hub != nil && err != nil {
		capture(hub, err, map[string]string{"route": c.FullPath()})
	}
}

// CaptureError reports err on the hub bound to ctx, or the global hub.
func CaptureError(ctx context.Context, err error, tags map[string]string) {
	if hub := hubFrom(ctx); hub != nil && err != nil {
		capture(hub, err, tags)
	}
}

// CapturePanic reports a value recovered while serving c.
func CapturePanic(c *gin.Context, recovered interface{}) {
	if hub := requestHub(c); hub != nil {
		hub.RecoverWithContext(c.Request.Context(), recovered)
	}
}

// Flush waits up to timeout for buffered events.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

func capture(hub *sentry.Hub, err error, tags map[string]string) {
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

func requestHub(c *gin.Context) *sentry.Hub {
	if hub := sentrygin.GetHubFromContext(c); hub != nil && hub.Client() != nil {
		return hub
	}
	return hubFrom(c.Request.Context())
}

func hubFrom(ctx context.Context) *sentry.Hub {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return nil
	}
	return hub
}
