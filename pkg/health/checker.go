package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/richxcame/tutor-payouts/pkg/common"
)

// Pinger is anything that can answer a liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker adapts a Pinger to a health check.
func PingChecker(name string, p Pinger) common.HealthCheckFunc {
	return func(ctx context.Context) error {
		if p == nil {
			return fmt.Errorf("%s connection is nil", name)
		}
		return p.Ping(ctx)
	}
}

// DatabaseChecker returns a health check function for the PostgreSQL pool
func DatabaseChecker(pool *pgxpool.Pool) common.HealthCheckFunc {
	if pool == nil {
		return PingChecker("database", nil)
	}
	return PingChecker("database", pool)
}

// RedisChecker returns a health check function for Redis
func RedisChecker(client *redis.Client) common.HealthCheckFunc {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis connection is nil")
		}
		return client.Ping(ctx).Err()
	}
}

// NATSChecker reports the event bus connection state
func NATSChecker(conn *nats.Conn) common.HealthCheckFunc {
	return func(ctx context.Context) error {
		if conn == nil {
			return errors.New("nats connection is nil")
		}
		if !conn.IsConnected() {
			return fmt.Errorf("nats status %s", conn.Status())
		}
		return nil
	}
}
