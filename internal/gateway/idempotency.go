package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	redisclient "github.com/richxcame/tutor-payouts/pkg/redis"
)

const (
	keyPrefix     = "payout:transfer:"
	inFlightValue = "in_flight"
)

// IdempotencyStore remembers transfer outcomes by idempotency key
type IdempotencyStore interface {
	// Get returns the stored result, if any.
	Get(ctx context.Context, key string) (*TransferResult, error)
	// Begin marks key as in flight. It returns false when another call holds the marker.
	Begin(ctx context.Context, key string) (bool, error)
	// Save stores the final result and drops the in-flight marker.
	Save(ctx context.Context, key string, result *TransferResult) error
	// Abort drops the in-flight marker without storing a result.
	Abort(ctx context.Context, key string) error
}

// RedisIdempotencyStore keeps results and in-flight markers in Redis
type RedisIdempotencyStore struct {
	client      redis.Cmdable
	resultTTL   time.Duration
	inFlightTTL time.Duration
}

var _ IdempotencyStore = (*RedisIdempotencyStore)(nil)

// NewRedisIdempotencyStore creates a Redis-backed idempotency store
func NewRedisIdempotencyStore(client redis.Cmdable, resultTTL, inFlightTTL time.Duration) *RedisIdempotencyStore {
	if resultTTL <= 0 {
		resultTTL = 7 * 24 * time.Hour
	}
	if inFlightTTL <= 0 {
		inFlightTTL = 2 * time.Minute
	}
	return &RedisIdempotencyStore{client: client, resultTTL: resultTTL, inFlightTTL: inFlightTTL}
}

func resultKey(key string) string   { return keyPrefix + key }
func inFlightKey(key string) string { return keyPrefix + key + ":inflight" }

// Get returns nil, nil when no result is stored
func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*TransferResult, error) {
	raw, err := redisclient.RetryableOperation(ctx, func(ctx context.Context) ([]byte, error) {
		raw, err := s.client.Get(ctx, resultKey(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return raw, err
	}, "get transfer result")
	if err != nil {
		return nil, fmt.Errorf("read transfer result: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	var result TransferResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode transfer result: %w", err)
	}
	return &result, nil
}

// Begin takes the in-flight marker with SETNX
func (s *RedisIdempotencyStore) Begin(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, inFlightKey(key), inFlightValue, s.inFlightTTL).Result()
	if err != nil {
		return false, fmt.Errorf("mark transfer in flight: %w", err)
	}
	return ok, nil
}

// Save stores the result and clears the marker
func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, result *TransferResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, resultKey(key), raw, s.resultTTL)
	pipe.Del(ctx, inFlightKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store transfer result: %w", err)
	}
	return nil
}

// Abort clears the marker
func (s *RedisIdempotencyStore) Abort(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, inFlightKey(key)).Err(); err != nil {
		return fmt.Errorf("clear in-flight marker: %w", err)
	}
	return nil
}
