package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/richxcame/tutor-payouts/internal/audit"
	"github.com/richxcame/tutor-payouts/pkg/common"
	"github.com/richxcame/tutor-payouts/pkg/config"
	"github.com/richxcame/tutor-payouts/pkg/httpclient"
	"github.com/richxcame/tutor-payouts/pkg/logger"
	"github.com/richxcame/tutor-payouts/pkg/resilience"
	"github.com/richxcame/tutor-payouts/pkg/tracing"
)

var gatewayCallDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "payout_gateway_call_duration_seconds",
		Help:    "Latency of payment gateway calls",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation", "outcome"},
)

// AlertRaiser records operational alerts
type AlertRaiser interface {
	RaiseAlert(ctx context.Context, alertType string, severity audit.Severity, message string) *audit.SystemAlert
}

// Gateway is the payout rail as seen by the workflow
type Gateway interface {
	Transfer(ctx context.Context, amount decimal.Decimal, account BankAccount, idempotencyKey string) (*TransferResult, error)
	PlatformBalance(ctx context.Context) (*PlatformBalance, error)
}

// Adapter makes PayOS payouts idempotent and breaker-protected
type Adapter struct {
	api      PayOSAPI
	store    IdempotencyStore
	breaker  *resilience.CircuitBreaker
	alerts   AlertRaiser
	currency string
	warning  decimal.Decimal
	critical decimal.Decimal
	now      func() time.Time
}

var _ Gateway = (*Adapter)(nil)

// NewAdapter creates the gateway adapter
func NewAdapter(api PayOSAPI, store IdempotencyStore, alerts AlertRaiser, cfg config.GatewayConfig) *Adapter {
	settings := resilience.GatewaySettings("payos", cfg)

	return &Adapter{
		api:      api,
		store:    store,
		breaker:  resilience.NewCircuitBreaker(settings, resilience.GracefulDegradation("payos")),
		alerts:   alerts,
		currency: cfg.Currency,
		warning:  decimal.NewFromFloat(cfg.BalanceWarningLevel),
		critical: decimal.NewFromFloat(cfg.BalanceCriticalLevel),
		now:      time.Now,
	}
}

// Transfer pays amount to account exactly once per idempotency key.
func (a *Adapter) Transfer(ctx context.Context, amount decimal.Decimal, account BankAccount, idempotencyKey string) (*TransferResult, error) {
	ctx, span := tracing.Tracer("gateway").Start(ctx, "gateway.Transfer",
		trace.WithAttributes(
			attribute.String("payout.idempotency_key", idempotencyKey),
			attribute.String("payout.amount", amount.String()),
		),
	)
	defer span.End()

	result, err := a.transfer(ctx, amount, account, idempotencyKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, common.KindOf(err))
		return nil, err
	}
	span.SetAttributes(attribute.String("payout.transaction_id", result.TransactionID))
	return result, nil
}

func (a *Adapter) transfer(ctx context.Context, amount decimal.Decimal, account BankAccount, idempotencyKey string) (*TransferResult, error) {
	log := logger.WithContext(ctx).With(zap.String("idempotency_key", idempotencyKey))

	if idempotencyKey == "" {
		return nil, common.NewValidationError("idempotency key is required", nil)
	}
	// PayOS moves whole units only.
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(0)) {
		return nil, common.NewValidationError(fmt.Sprintf("payout amount %s %s must be a positive whole number", amount.String(), a.currency), nil)
	}

	stored, err := a.store.Get(ctx, idempotencyKey)
	if err != nil {
		return nil, common.NewGatewayError("idempotency store unavailable", err)
	}
	if stored != nil {
		log.Info("Replaying stored transfer result", zap.String("transaction_id", stored.TransactionID))
		return stored, nil
	}

	acquired, err := a.store.Begin(ctx, idempotencyKey)
	if err != nil {
		return nil, common.NewGatewayError("idempotency store unavailable", err)
	}
	if !acquired {
		return nil, common.NewConcurrencyConflictError("transfer is already in progress", nil)
	}

	saved := false
	defer func() {
		if saved {
			return
		}
		if err := a.store.Abort(context.WithoutCancel(ctx), idempotencyKey); err != nil {
			log.Warn("Failed to clear in-flight marker", zap.Error(err))
		}
	}()

	balance, err := a.balance(ctx)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(amount) {
		msg := fmt.Sprintf("settlement balance %s %s cannot cover payout of %s",
			balance.StringFixed(0), a.currency, amount.StringFixed(0))
		a.alerts.RaiseAlert(ctx, audit.AlertInsufficientPlatformFunds, audit.SeverityCritical, msg)
		return nil, common.NewInsufficientPlatformFundsError("platform settlement balance is too low")
	}

	req := PayoutRequest{
		ReferenceID:     idempotencyKey,
		Amount:          amount.IntPart(),
		Description:     "Tutor payout",
		ToBin:           account.BankBin,
		ToAccountNumber: account.AccountNumber,
		Category:        []string{"tutor_payout"},
	}

	start := a.now()
	res, err := a.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return a.api.CreatePayout(ctx, req, idempotencyKey)
	})
	if err != nil {
		gatewayCallDuration.WithLabelValues("transfer", "error").Observe(time.Since(start).Seconds())
		log.Error("Payout call failed", zap.Error(err))
		return nil, classify(err)
	}
	gatewayCallDuration.WithLabelValues("transfer", "ok").Observe(time.Since(start).Seconds())

	payout := res.(*PayoutResponse)
	result := &TransferResult{
		Success:       true,
		TransactionID: payout.ID,
		Status:        payout.ApprovalState,
		CompletedAt:   a.now(),
	}

	if err := a.store.Save(ctx, idempotencyKey, result); err != nil {
		// The payout went through; PayOS still deduplicates on the key.
		log.Error("Failed to store transfer result", zap.Error(err))
	} else {
		saved = true
	}

	log.Info("Payout transferred",
		zap.String("transaction_id", result.TransactionID),
		zap.String("status", result.Status),
	)
	return result, nil
}

// PlatformBalance reads the settlement balance and classifies it
func (a *Adapter) PlatformBalance(ctx context.Context) (*PlatformBalance, error) {
	balance, err := a.balance(ctx)
	if err != nil {
		return nil, err
	}

	level := BalanceNormal
	switch {
	case balance.LessThan(a.critical):
		level = BalanceCritical
	case balance.LessThan(a.warning):
		level = BalanceWarning
	}

	return &PlatformBalance{
		Balance:   balance,
		Currency:  a.currency,
		Level:     level,
		CheckedAt: a.now(),
	}, nil
}

func (a *Adapter) balance(ctx context.Context) (decimal.Decimal, error) {
	start := a.now()
	res, err := a.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return a.api.Balance(ctx)
	})
	if err != nil {
		gatewayCallDuration.WithLabelValues("balance", "error").Observe(time.Since(start).Seconds())
		return decimal.Zero, classify(err)
	}
	gatewayCallDuration.WithLabelValues("balance", "ok").Observe(time.Since(start).Seconds())
	return res.(decimal.Decimal), nil
}

// classify maps transport failures to GatewayError so callers can retry with the same key.
func classify(err error) error {
	var httpErr *httpclient.HTTPError
	var rejected *RejectedError

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return common.NewGatewayError("payment gateway is unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		return common.NewGatewayError("payment gateway timed out", err)
	case errors.As(err, &rejected):
		return common.NewGatewayError("payment gateway rejected the transfer: "+rejected.Desc, err)
	case errors.As(err, &httpErr):
		if httpErr.StatusCode >= http.StatusInternalServerError {
			return common.NewGatewayError("payment gateway error", err)
		}
		return common.NewGatewayError(fmt.Sprintf("payment gateway returned %d", httpErr.StatusCode), err)
	default:
		return common.NewGatewayError("payment gateway request failed", err)
	}
}
