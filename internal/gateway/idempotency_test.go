package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisIdempotencyStore_GetMissing(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisIdempotencyStore(client, time.Hour, time.Minute)

	mock.ExpectGet("payout:transfer:w-1").RedisNil()

	result, err := store.Get(context.Background(), "w-1")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisIdempotencyStore_GetStored(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisIdempotencyStore(client, time.Hour, time.Minute)

	raw, _ := json.Marshal(TransferResult{Success: true, TransactionID: "po_123", Status: "COMPLETED"})
	mock.ExpectGet("payout:transfer:w-1").SetVal(string(raw))

	result, err := store.Get(context.Background(), "w-1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "po_123", result.TransactionID)
	assert.True(t, result.Success)
}

func TestRedisIdempotencyStore_GetError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisIdempotencyStore(client, time.Hour, time.Minute)

	for i := 0; i < 3; i++ {
		mock.ExpectGet("payout:transfer:w-1").SetErr(errors.New("connection reset"))
	}

	_, err := store.Get(context.Background(), "w-1")
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisIdempotencyStore_GetRecoversFromTransientError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisIdempotencyStore(client, time.Hour, time.Minute)

	raw, _ := json.Marshal(TransferResult{Success: true, TransactionID: "po_9"})
	mock.ExpectGet("payout:transfer:w-1").SetErr(errors.New("i/o timeout"))
	mock.ExpectGet("payout:transfer:w-1").SetVal(string(raw))

	result, err := store.Get(context.Background(), "w-1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "po_9", result.TransactionID)
}

func TestRedisIdempotencyStore_Begin(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisIdempotencyStore(client, time.Hour, 2*time.Minute)

	mock.ExpectSetNX("payout:transfer:w-1:inflight", "in_flight", 2*time.Minute).SetVal(true)
	mock.ExpectSetNX("payout:transfer:w-1:inflight", "in_flight", 2*time.Minute).SetVal(false)

	ok, err := store.Begin(context.Background(), "w-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Begin(context.Background(), "w-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisIdempotencyStore_SaveClearsMarker(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisIdempotencyStore(client, time.Hour, time.Minute)

	result := &TransferResult{Success: true, TransactionID: "po_9", Status: "COMPLETED"}
	raw, _ := json.Marshal(result)

	mock.ExpectTxPipeline()
	mock.ExpectSet("payout:transfer:w-1", raw, time.Hour).SetVal("OK")
	mock.ExpectDel("payout:transfer:w-1:inflight").SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, store.Save(context.Background(), "w-1", result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisIdempotencyStore_Abort(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisIdempotencyStore(client, time.Hour, time.Minute)

	mock.ExpectDel("payout:transfer:w-1:inflight").SetVal(1)

	require.NoError(t, store.Abort(context.Background(), "w-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
