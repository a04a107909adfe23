package health

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestPingChecker(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, PingChecker("db", fakePinger{})(ctx))
	assert.EqualError(t, PingChecker("db", fakePinger{err: errors.New("refused")})(ctx), "refused")
	assert.EqualError(t, PingChecker("db", nil)(ctx), "db connection is nil")
}

func TestDatabaseChecker_NilPool(t *testing.T) {
	err := DatabaseChecker(nil)(context.Background())
	assert.EqualError(t, err, "database connection is nil")
}

func TestRedisChecker(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")

	assert.NoError(t, RedisChecker(client)(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisChecker_Failure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetErr(errors.New("connection refused"))

	assert.Error(t, RedisChecker(client)(context.Background()))
}

func TestNATSChecker_Nil(t *testing.T) {
	assert.EqualError(t, NATSChecker(nil)(context.Background()), "nats connection is nil")
}
