package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/richxcame/tutor-payouts/pkg/common"
)

// MockSweeper implements DelayedSweeper for testing
type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) ProcessDueDelayed(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func observedWorker(sweeper DelayedSweeper, spec string) (*Worker, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return NewWorker(sweeper, zap.New(core), spec), logs
}

func TestNewWorker(t *testing.T) {
	t.Run("defaults the sweep timeout", func(t *testing.T) {
		w := NewWorker(new(MockSweeper), zap.NewNop(), "@every 1m")
		assert.Equal(t, time.Minute, w.timeout)
		assert.NotNil(t, w.cron)
		assert.NotNil(t, w.done)
	})

	t.Run("accepts a custom timeout", func(t *testing.T) {
		w := NewWorker(new(MockSweeper), zap.NewNop(), "@every 1m", 5*time.Second)
		assert.Equal(t, 5*time.Second, w.timeout)
	})

	t.Run("nil logger falls back to nop", func(t *testing.T) {
		w := NewWorker(new(MockSweeper), nil, "@every 1m")
		assert.NotNil(t, w.logger)
	})
}

func TestWorker_StartRejectsBadSpec(t *testing.T) {
	w := NewWorker(new(MockSweeper), zap.NewNop(), "every now and then")

	err := w.Start()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "every now and then")
}

func TestWorker_RunOnce(t *testing.T) {
	tests := []struct {
		name     string
		paid     int
		err      error
		wantMsg  string
		wantLogs int
	}{
		{name: "nothing due logs nothing", paid: 0, err: nil, wantLogs: 0},
		{name: "paid withdrawals are logged", paid: 3, err: nil, wantMsg: "Delayed sweep paid out withdrawals", wantLogs: 1},
		{name: "platform shortfall", paid: 1, err: common.NewInsufficientPlatformFundsError("low"), wantMsg: "Delayed sweep stopped: platform balance too low", wantLogs: 1},
		{name: "transient database failure", paid: 0, err: errors.New("connection refused"), wantMsg: "Delayed sweep hit a transient database error, next run retries", wantLogs: 1},
		{name: "repository failure", paid: 0, err: errors.New("scan withdrawal: bad column"), wantMsg: "Delayed sweep failed", wantLogs: 1},
		{name: "interrupted", paid: 0, err: context.Canceled, wantMsg: "Delayed sweep interrupted", wantLogs: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sweeper := new(MockSweeper)
			sweeper.On("ProcessDueDelayed", mock.Anything).Return(tt.paid, tt.err).Once()
			w, logs := observedWorker(sweeper, "@every 1m")

			w.RunOnce(context.Background())

			sweeper.AssertExpectations(t)
			require.Equal(t, tt.wantLogs, logs.Len())
			if tt.wantLogs > 0 {
				entry := logs.All()[0]
				assert.Equal(t, tt.wantMsg, entry.Message)
				assert.Equal(t, int64(tt.paid), entry.ContextMap()["paid"])
			}
		})
	}
}

func TestWorker_RunOnceAppliesTimeout(t *testing.T) {
	sweeper := new(MockSweeper)
	sweeper.On("ProcessDueDelayed", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 5*time.Second
	})).Return(0, nil).Once()
	w := NewWorker(sweeper, zap.NewNop(), "@every 1m", 5*time.Second)

	w.RunOnce(context.Background())

	sweeper.AssertExpectations(t)
}

// blockingSweeper holds each sweep until its context is cancelled.
type blockingSweeper struct {
	calls   atomic.Int32
	started chan struct{}
}

func (b *blockingSweeper) ProcessDueDelayed(ctx context.Context) (int, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
	}
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestWorker_StopCancelsRunningSweep(t *testing.T) {
	sweeper := &blockingSweeper{started: make(chan struct{})}
	w, logs := observedWorker(sweeper, "@every 1s")
	require.NoError(t, w.Start())

	select {
	case <-sweeper.started:
	case <-time.After(3 * time.Second):
		t.Fatal("sweep never started")
	}

	w.Stop()
	w.Stop()

	select {
	case <-w.Done():
	default:
		t.Fatal("done channel should be closed")
	}
	assert.Equal(t, int32(1), sweeper.calls.Load(), "overlapping ticks are skipped")
	assert.Equal(t, 1, logs.FilterMessage("Delayed sweep interrupted").Len())
}
