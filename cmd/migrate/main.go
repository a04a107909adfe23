package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/richxcame/tutor-payouts/migrations"
	"github.com/richxcame/tutor-payouts/pkg/config"
	"github.com/richxcame/tutor-payouts/pkg/database"
	"github.com/richxcame/tutor-payouts/pkg/logger"
)

func main() {
	direction := flag.String("direction", "up", "up, down (one step) or version")
	wait := flag.Duration("wait", 30*time.Second, "how long to wait for the database to accept connections")
	flag.Parse()

	cfg, err := config.Load("migrate")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	err = waitForDatabase(db, *wait, time.Second)
	db.Close()
	if err != nil {
		logger.Fatal("Database not reachable", zap.Error(err))
	}

	if err := database.Migrate(cfg.Database.URL(), migrations.FS, *direction); err != nil {
		logger.Fatal("Migration failed", zap.String("direction", *direction), zap.Error(err))
	}
}

// waitForDatabase pings every interval until the server answers or the budget runs out.
func waitForDatabase(db *sql.DB, budget, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	for {
		pingErr := db.PingContext(ctx)
		if pingErr == nil {
			return nil
		}
		logger.Warn("Waiting for database", zap.Error(pingErr))

		select {
		case <-ctx.Done():
			return fmt.Errorf("gave up after %s: %w", budget, pingErr)
		case <-time.After(interval):
		}
	}
}
