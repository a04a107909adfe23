package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/richxcame/tutor-payouts/internal/audit"
	"github.com/richxcame/tutor-payouts/internal/fraud"
	"github.com/richxcame/tutor-payouts/internal/gateway"
	"github.com/richxcame/tutor-payouts/internal/notifications"
	"github.com/richxcame/tutor-payouts/internal/scoring"
	"github.com/richxcame/tutor-payouts/internal/withdrawal"
	"github.com/richxcame/tutor-payouts/pkg/common"
	"github.com/richxcame/tutor-payouts/pkg/config"
	"github.com/richxcame/tutor-payouts/pkg/database"
	"github.com/richxcame/tutor-payouts/pkg/logger"
)

// Deps are the collaborators shared by the tutor and admin flows
type Deps struct {
	Tx       database.Transactor
	Requests withdrawal.RepositoryInterface
	Ledger   Ledger
	Engine   Evaluator
	History  fraud.HistorySource
	Scorer   *scoring.Calculator
	Gateway  gateway.Gateway
	Audit    AuditTrail
	Notifier notifications.Notifier
	// Receipts is optional; nil skips receipt archiving.
	Receipts ReceiptArchive
}

// Settings are the workflow knobs taken from configuration
type Settings struct {
	BaseScore      int
	DelayHold      time.Duration
	ClaimLease     time.Duration
	SweepBatchSize int
	MinAmount      decimal.Decimal
	Currency       string
}

// SettingsFromConfig extracts Settings from the service configuration
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		BaseScore:      cfg.Risk.BaseScore,
		DelayHold:      cfg.Risk.DelayHold,
		ClaimLease:     cfg.Payout.ClaimLease,
		SweepBatchSize: cfg.Payout.SweepBatchSize,
		MinAmount:      decimal.NewFromFloat(cfg.Payout.MinAmount),
		Currency:       cfg.Gateway.Currency,
	}
}

// executor holds the steps both flows share: the two-phase payout and
// the single-transaction status changes that release funds.
type executor struct {
	Deps
	settings Settings
	now      func() time.Time
}

func newExecutor(deps Deps, settings Settings) executor {
	if settings.ClaimLease <= 0 {
		settings.ClaimLease = 2 * time.Minute
	}
	if settings.SweepBatchSize <= 0 {
		settings.SweepBatchSize = 50
	}
	if settings.Currency == "" {
		settings.Currency = "VND"
	}
	return executor{Deps: deps, settings: settings, now: time.Now}
}

// payout claims req, transfers with no locks held, then records the outcome.
// On gateway failure the claim is dropped and status and ledger stay untouched.
func (e *executor) payout(ctx context.Context, req *withdrawal.Request, actorID *uuid.UUID, note string) error {
	log := logger.WithContext(ctx).With(zap.String("withdrawal_id", req.ID.String()))

	now := e.now()
	if err := e.Requests.Claim(ctx, req, now.Add(e.settings.ClaimLease), now); err != nil {
		return err
	}

	result, err := e.Gateway.Transfer(ctx, req.Amount, bankAccount(req), req.ID.String())
	if err != nil {
		transfersTotal.WithLabelValues("failed").Inc()
		e.recordPayoutFailure(ctx, req, actorID, err)
		return err
	}
	if !result.Success {
		transfersTotal.WithLabelValues("failed").Inc()
		err := common.NewGatewayError(fmt.Sprintf("transfer finished with status %s", result.Status), nil)
		e.recordPayoutFailure(ctx, req, actorID, err)
		return err
	}
	transfersTotal.WithLabelValues("succeeded").Inc()

	processedAt := e.now()
	txID, gwStatus := result.TransactionID, result.Status
	updated := *req
	err = e.Tx.WithTx(ctx, func(ctx context.Context) error {
		change := withdrawal.Change{
			ProcessedAt:          &processedAt,
			ProcessedByID:        actorID,
			GatewayTransactionID: &txID,
			GatewayStatus:        &gwStatus,
			OwnsClaim:            true,
		}
		if err := e.Requests.Transition(ctx, &updated, withdrawal.StatusApproved, change, processedAt); err != nil {
			return err
		}
		if err := e.Ledger.Commit(ctx, req.HoldID); err != nil {
			return err
		}
		details := map[string]any{"transaction_id": txID, "gateway_status": gwStatus}
		if note != "" {
			details["note"] = note
		}
		return e.Audit.AppendTimeline(ctx, req.ID, audit.EventApproved, actorID, details)
	})
	if err != nil {
		// Money has moved. A retry with the same key replays the stored transfer and records it.
		log.Error("Transfer succeeded but recording failed", zap.String("transaction_id", txID), zap.Error(err))
		e.Audit.RaiseAlert(ctx, audit.AlertPayoutFailed, audit.SeverityCritical,
			fmt.Sprintf("withdrawal %s was paid (transaction %s) but could not be recorded: %v", req.ID, txID, err))
		if relErr := e.Requests.ReleaseClaim(context.WithoutCancel(ctx), req); relErr != nil {
			log.Warn("Failed to release payout claim", zap.Error(relErr))
		}
		return err
	}

	*req = updated
	log.Info("Withdrawal approved", zap.String("transaction_id", txID))
	e.archiveReceipt(ctx, req)
	e.notify(ctx, notifications.EventWithdrawalApproved, req, "")
	return nil
}

// archiveReceipt is best effort: the payout is already recorded.
func (e *executor) archiveReceipt(ctx context.Context, req *withdrawal.Request) {
	if e.Receipts == nil {
		return
	}
	if err := e.Receipts.Archive(context.WithoutCancel(ctx), req, e.settings.Currency); err != nil {
		logger.WithContext(ctx).Warn("Failed to archive payout receipt",
			zap.String("withdrawal_id", req.ID.String()),
			zap.Error(err),
		)
	}
}

func (e *executor) recordPayoutFailure(ctx context.Context, req *withdrawal.Request, actorID *uuid.UUID, cause error) {
	ctx = context.WithoutCancel(ctx)
	log := logger.WithContext(ctx).With(zap.String("withdrawal_id", req.ID.String()))

	if err := e.Requests.ReleaseClaim(ctx, req); err != nil {
		log.Warn("Failed to release payout claim", zap.Error(err))
	}
	details := map[string]any{"error": cause.Error(), "kind": common.KindOf(cause)}
	if err := e.Audit.AppendTimeline(ctx, req.ID, audit.EventPayoutFailed, actorID, details); err != nil {
		log.Error("Failed to append payout_failed event", zap.Error(err))
	}
	log.Warn("Payout failed", zap.Error(cause))
}

// settle moves req to a status that gives the funds back, in one transaction.
func (e *executor) settle(ctx context.Context, req *withdrawal.Request, to withdrawal.Status, event string, actorID *uuid.UUID, details map[string]any) error {
	now := e.now()
	updated := *req
	err := e.Tx.WithTx(ctx, func(ctx context.Context) error {
		change := withdrawal.Change{ProcessedAt: &now, ProcessedByID: actorID}
		if err := e.Requests.Transition(ctx, &updated, to, change, now); err != nil {
			return err
		}
		if err := e.Ledger.Release(ctx, req.HoldID); err != nil {
			return err
		}
		return e.Audit.AppendTimeline(ctx, req.ID, event, actorID, details)
	})
	if err != nil {
		return err
	}
	*req = updated
	return nil
}

func (e *executor) notify(ctx context.Context, eventType string, req *withdrawal.Request, reason string) {
	if e.Notifier == nil {
		return
	}
	data := notifications.WithdrawalEventData{
		WithdrawalID: req.ID,
		TutorID:      req.TutorID,
		Amount:       req.Amount,
		Currency:     e.settings.Currency,
		Status:       string(req.Status),
		Decision:     string(req.Decision),
		BankName:     req.Bank.BankName,
		Reason:       reason,
		DelayUntil:   req.DelayUntil,
	}
	if err := e.Notifier.Notify(ctx, eventType, data); err != nil {
		logger.WithContext(ctx).Warn("Failed to publish withdrawal event",
			zap.String("type", eventType),
			zap.String("withdrawal_id", req.ID.String()),
			zap.Error(err),
		)
	}
}

func bankAccount(req *withdrawal.Request) gateway.BankAccount {
	return gateway.BankAccount{
		HolderName:    req.Bank.HolderName,
		AccountNumber: req.Bank.AccountNumber,
		BankName:      req.Bank.BankName,
		BankBin:       req.Bank.BankBin,
	}
}

func isConflict(err error) bool {
	return errors.Is(err, common.ErrConcurrencyConflict)
}
