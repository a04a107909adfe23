// Package scheduler runs the periodic payout jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/richxcame/tutor-payouts/pkg/common"
	"github.com/richxcame/tutor-payouts/pkg/database"
)

var (
	sweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_delayed_sweep_runs_total",
		Help: "Delayed-hold sweeps by outcome",
	}, []string{"outcome"})

	sweepPaid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_delayed_sweep_paid_total",
		Help: "Delayed withdrawals paid out by the sweeper",
	})
)

// Worker runs the delayed-hold sweep on a cron schedule. A sweep that is
// still running when the next tick fires is skipped.
type Worker struct {
	sweeper DelayedSweeper
	logger  *zap.Logger
	spec    string
	timeout time.Duration

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// NewWorker creates a scheduler worker. timeout bounds a single sweep and
// defaults to one minute.
func NewWorker(sweeper DelayedSweeper, logger *zap.Logger, spec string, timeout ...time.Duration) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := time.Minute
	if len(timeout) > 0 && timeout[0] > 0 {
		t = timeout[0]
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		sweeper: sweeper,
		logger:  logger,
		spec:    spec,
		timeout: t,
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{logger}),
			cron.SkipIfStillRunning(cronLogger{logger}),
		)),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start schedules the sweep and starts the cron loop.
func (w *Worker) Start() error {
	if _, err := w.cron.AddFunc(w.spec, func() { w.RunOnce(w.ctx) }); err != nil {
		return fmt.Errorf("schedule delayed sweep %q: %w", w.spec, err)
	}
	w.cron.Start()
	w.logger.Info("Scheduler worker started", zap.String("delayed_sweep", w.spec))
	return nil
}

// Stop cancels a running sweep and waits for it to return. Safe to call more than once.
func (w *Worker) Stop() {
	w.once.Do(func() {
		w.cancel()
		<-w.cron.Stop().Done()
		close(w.done)
		w.logger.Info("Scheduler worker stopped")
	})
}

// Done is closed once Stop has finished.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// RunOnce runs one sweep.
func (w *Worker) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	paid, err := w.sweeper.ProcessDueDelayed(ctx)
	sweepPaid.Add(float64(paid))

	fields := []zap.Field{zap.Int("paid", paid), zap.Duration("took", time.Since(start))}
	switch {
	case err == nil:
		sweepRuns.WithLabelValues("ok").Inc()
		if paid > 0 {
			w.logger.Info("Delayed sweep paid out withdrawals", fields...)
		}
	case errors.Is(err, common.ErrInsufficientPlatformFunds):
		sweepRuns.WithLabelValues("platform_funds").Inc()
		w.logger.Warn("Delayed sweep stopped: platform balance too low", append(fields, zap.Error(err))...)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		sweepRuns.WithLabelValues("interrupted").Inc()
		w.logger.Warn("Delayed sweep interrupted", append(fields, zap.Error(err))...)
	case database.IsRetryable(err):
		sweepRuns.WithLabelValues("transient").Inc()
		w.logger.Warn("Delayed sweep hit a transient database error, next run retries", append(fields, zap.Error(err))...)
	default:
		sweepRuns.WithLabelValues("error").Inc()
		w.logger.Error("Delayed sweep failed", append(fields, zap.Error(err))...)
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
