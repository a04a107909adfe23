package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/richxcame/tutor-payouts/internal/audit"
	"github.com/richxcame/tutor-payouts/internal/fraud"
	"github.com/richxcame/tutor-payouts/internal/gateway"
	"github.com/richxcame/tutor-payouts/internal/ledger"
	"github.com/richxcame/tutor-payouts/internal/notifications"
	"github.com/richxcame/tutor-payouts/internal/payout"
	"github.com/richxcame/tutor-payouts/internal/receipts"
	"github.com/richxcame/tutor-payouts/internal/scheduler"
	"github.com/richxcame/tutor-payouts/internal/scoring"
	"github.com/richxcame/tutor-payouts/internal/withdrawal"
	"github.com/richxcame/tutor-payouts/pkg/common"
	"github.com/richxcame/tutor-payouts/pkg/config"
	"github.com/richxcame/tutor-payouts/pkg/database"
	"github.com/richxcame/tutor-payouts/pkg/errorreport"
	"github.com/richxcame/tutor-payouts/pkg/eventbus"
	"github.com/richxcame/tutor-payouts/pkg/health"
	"github.com/richxcame/tutor-payouts/pkg/httpclient"
	"github.com/richxcame/tutor-payouts/pkg/logger"
	"github.com/richxcame/tutor-payouts/pkg/middleware"
	"github.com/richxcame/tutor-payouts/pkg/ratelimit"
	redisclient "github.com/richxcame/tutor-payouts/pkg/redis"
	"github.com/richxcame/tutor-payouts/pkg/secrets"
	"github.com/richxcame/tutor-payouts/pkg/storage"
	"github.com/richxcame/tutor-payouts/pkg/tracing"
	"github.com/richxcame/tutor-payouts/pkg/websocket"
)

const (
	serviceName    = "payout-service"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Secrets.Backend != "" {
		store, err := secrets.New(ctx, cfg.Secrets)
		if err != nil {
			logger.Fatal("Failed to open secret store", zap.Error(err))
		}
		if err := secrets.ApplyCredentials(ctx, store, cfg); err != nil {
			logger.Fatal("Failed to load credentials", zap.Error(err))
		}
		_ = store.Close()
	}

	reporting, err := errorreport.Init(cfg.Sentry, cfg.Server.Environment, serviceName+"@"+serviceVersion)
	if err != nil {
		logger.Warn("Error reporting disabled", zap.Error(err))
	}
	if reporting {
		defer errorreport.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, serviceName, serviceVersion)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(pool)
	logger.Info("Connected to PostgreSQL database")

	rdb, err := redisclient.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()
	logger.Info("Connected to Redis")

	checks := map[string]common.HealthCheckFunc{
		"database": health.DatabaseChecker(pool),
		"redis":    health.RedisChecker(rdb),
	}

	// A nil publisher keeps notifications log-only.
	var publisher eventbus.Publisher
	var bus *eventbus.Bus
	if cfg.NATS.Enabled {
		bus, err = eventbus.New(eventbus.Config{URL: cfg.NATS.URL, Name: serviceName})
		if err != nil {
			logger.Warn("Event bus unavailable, notifications disabled", zap.Error(err))
		} else {
			defer bus.Close()
			publisher = bus
			checks["nats"] = health.NATSChecker(bus.Conn())

			events := notifications.NewEventHandler(bus, serviceName, cfg.Notifications.Language)
			if err := events.RegisterSubscriptions(ctx, bus); err != nil {
				logger.Warn("Failed to subscribe notification handler", zap.Error(err))
			}
		}
	}

	feed := websocket.NewHub(logger.Get())
	go feed.Run(ctx)

	trail := audit.NewTrail(audit.NewRepository(pool))
	history := fraud.NewRepository(pool)

	payos := gateway.NewPayOSClient(
		httpclient.NewClient(cfg.Gateway.BaseURL, time.Duration(cfg.Gateway.Timeout)*time.Second).
			Apply(httpclient.WithDefaultRetry()),
		cfg.Gateway.ClientID, cfg.Gateway.APIKey, cfg.Gateway.ChecksumKey,
	)
	store := gateway.NewRedisIdempotencyStore(rdb, cfg.Gateway.IdempotencyTTL, cfg.Gateway.InFlightTTL)

	deps := payout.Deps{
		Tx:       database.NewTransactor(pool),
		Requests: withdrawal.NewRepository(pool),
		Ledger:   ledger.NewManager(ledger.NewRepository(pool), database.NewTransactor(pool)),
		Engine:   fraud.NewEngine(fraud.DefaultRules(history, cfg.Risk)...),
		History:  history,
		Scorer:   scoring.NewCalculator(cfg.Risk),
		Gateway:  gateway.NewAdapter(payos, store, trail, cfg.Gateway),
		Audit:    trail,
		Notifier: notifications.Fanout{
			notifications.NewBusNotifier(publisher, serviceName),
			notifications.NewDashboardNotifier(feed),
		},
	}
	if cfg.Storage.Enabled {
		objects, err := storage.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			logger.Fatal("Failed to create receipt storage", zap.Error(err))
		}
		deps.Receipts = receipts.NewArchiver(objects, cfg.Storage.Prefix, cfg.Storage.PresignTTL)
	}
	settings := payout.SettingsFromConfig(cfg)
	processor := payout.NewProcessor(deps, settings)
	admin := payout.NewAdminService(deps, settings)

	limiter := ratelimit.NewLimiter(rdb, cfg.RateLimit)
	handler := payout.NewHandler(processor, admin).
		WithCreateLimiter(middleware.RateLimit(limiter)).
		WithDashboardFeed(feed, websocket.NewUpgrader(splitOrigins(cfg.Server.CORSOrigins)))

	router := setupRouter(cfg, handler, checks)

	var worker *scheduler.Worker
	if cfg.Scheduler.Enabled {
		worker = scheduler.NewWorker(processor, logger.Get(), cfg.Scheduler.DelayedSweepSpec)
		if err := worker.Start(); err != nil {
			logger.Fatal("Failed to start delayed withdrawal sweep", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Payout service starting", zap.String("port", cfg.Server.Port), zap.String("version", serviceVersion))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down payout service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if worker != nil {
		worker.Stop()
	}
}

// setupRouter builds the HTTP surface: health checks, metrics and the payout API.
func setupRouter(cfg *config.Config, handler *payout.Handler, checks map[string]common.HealthCheckFunc) *gin.Engine {
	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(errorreport.Middleware())
	router.Use(tracing.Middleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics(cfg.Server.ServiceName))
	router.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))
	if cfg.Server.RequestTimeout > 0 {
		router.Use(middleware.Timeout(time.Duration(cfg.Server.RequestTimeout) * time.Second))
	}

	router.GET("/healthz", common.HealthCheck(cfg.Server.ServiceName, serviceVersion))
	router.GET("/health/live", common.HealthCheck(cfg.Server.ServiceName, serviceVersion))
	router.GET("/health/ready", common.HealthCheckWithDeps(cfg.Server.ServiceName, serviceVersion, checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.RegisterRoutes(router, cfg.JWT.Secret)
	return router
}

func corsConfig(origins string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.CorrelationIDHeader}
	c.ExposeHeaders = []string{middleware.CorrelationIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}

	c.AllowOrigins = splitOrigins(origins)
	if len(c.AllowOrigins) == 0 {
		c.AllowAllOrigins = true
	}
	return c
}

func splitOrigins(origins string) []string {
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
