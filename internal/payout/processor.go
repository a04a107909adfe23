package payout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/richxcame/tutor-payouts/internal/audit"
	"github.com/richxcame/tutor-payouts/internal/fraud"
	"github.com/richxcame/tutor-payouts/internal/ledger"
	"github.com/richxcame/tutor-payouts/internal/notifications"
	"github.com/richxcame/tutor-payouts/internal/scoring"
	"github.com/richxcame/tutor-payouts/internal/withdrawal"
	"github.com/richxcame/tutor-payouts/pkg/common"
	"github.com/richxcame/tutor-payouts/pkg/i18n"
	"github.com/richxcame/tutor-payouts/pkg/logger"
	"github.com/richxcame/tutor-payouts/pkg/security"
)

// CreateInput is a tutor's withdrawal request
type CreateInput struct {
	TutorID uuid.UUID
	Amount  decimal.Decimal
	Bank    withdrawal.BankDetails
	IP      string
}

// Processor runs the tutor-side withdrawal flow and the delayed-hold sweep
type Processor struct {
	executor
}

// NewProcessor creates a withdrawal processor
func NewProcessor(deps Deps, settings Settings) *Processor {
	return &Processor{executor: newExecutor(deps, settings)}
}

// CreateWithdrawal scores a new request, freezes the funds and applies the automatic decision.
func (p *Processor) CreateWithdrawal(ctx context.Context, in CreateInput) (*withdrawal.Request, error) {
	in.Bank = sanitizeBank(in.Bank)
	if err := p.validate(in); err != nil {
		return nil, err
	}

	tutor, err := p.History.Tutor(ctx, in.TutorID)
	if err != nil {
		return nil, err
	}

	wallet, err := p.Ledger.Wallet(ctx, in.TutorID)
	if err != nil {
		return nil, err
	}
	if wallet.Available().LessThan(in.Amount) {
		return nil, common.NewInsufficientFundsError(fmt.Sprintf(
			"available balance %s is below requested %s", wallet.Available().StringFixed(2), in.Amount.StringFixed(2)))
	}

	now := p.now()
	id := uuid.New()
	results := p.Engine.Evaluate(ctx, *tutor, fraud.Attempt{
		WithdrawalID:   id,
		Amount:         in.Amount,
		BankHolderName: in.Bank.HolderName,
		IP:             in.IP,
		At:             now,
	})

	completed, err := p.History.CompletedWithdrawals(ctx, in.TutorID)
	if err != nil {
		return nil, err
	}
	snapshot := p.Scorer.Score(p.settings.BaseScore, results, scoring.History{
		AccountAge:           now.Sub(tutor.JoinedAt),
		CompletedWithdrawals: completed,
	})

	status, err := withdrawal.InsertStatus(snapshot.Decision)
	if err != nil {
		return nil, err
	}

	req := &withdrawal.Request{
		ID:        id,
		TutorID:   in.TutorID,
		Amount:    in.Amount,
		Bank:      in.Bank,
		Status:    status,
		Decision:  snapshot.Decision,
		RequestIP: in.IP,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if snapshot.Decision == scoring.DecisionDelayed {
		until := now.Add(p.settings.DelayHold)
		req.DelayUntil = &until
	}

	err = p.Tx.WithTx(ctx, func(ctx context.Context) error {
		hold, err := p.Ledger.Reserve(ctx, in.TutorID, id, in.Amount)
		if err != nil {
			return err
		}
		req.HoldID = hold.ID

		if err := p.Requests.Create(ctx, req, &snapshot); err != nil {
			return err
		}
		if err := p.Audit.RecordFraudChecks(ctx, in.TutorID, &id, results); err != nil {
			return err
		}
		return p.Audit.AppendTimeline(ctx, id, audit.EventCreated, &in.TutorID, map[string]any{
			"decision":    snapshot.Decision,
			"trust_score": snapshot.TotalScore,
		})
	})
	if err != nil {
		return nil, err
	}

	decisionsTotal.WithLabelValues(string(snapshot.Decision)).Inc()
	trustScores.Observe(float64(snapshot.TotalScore))
	logger.WithContext(ctx).Info("Withdrawal created",
		zap.String("withdrawal_id", id.String()),
		zap.String("tutor_id", in.TutorID.String()),
		zap.String("amount", in.Amount.String()),
		zap.Int("trust_score", snapshot.TotalScore),
		zap.String("decision", string(snapshot.Decision)),
	)

	p.applyDecision(ctx, req, snapshot)
	return req, nil
}

// applyDecision runs the follow-up a fresh decision calls for. Failures here
// do not fail the request: it stays in a state an admin can act on.
func (p *Processor) applyDecision(ctx context.Context, req *withdrawal.Request, snapshot scoring.TrustScoreSnapshot) {
	log := logger.WithContext(ctx).With(zap.String("withdrawal_id", req.ID.String()))

	switch snapshot.Decision {
	case scoring.DecisionAutoApprove:
		err := p.payout(ctx, req, nil, "automatic approval")
		if err == nil {
			return
		}
		if isConflict(err) {
			log.Warn("Automatic payout lost a race", zap.Error(err))
		}
		p.escalate(ctx, req, err)

	case scoring.DecisionRejected:
		reason := fmt.Sprintf("trust score %d is below the rejection threshold", snapshot.TotalScore)
		if err := p.settle(ctx, req, withdrawal.StatusRejected, audit.EventRejected, nil, map[string]any{"reason": reason}); err != nil {
			log.Error("Failed to auto-reject withdrawal", zap.Error(err))
			return
		}
		p.notify(ctx, notifications.EventWithdrawalRejected, req, reason)

	case scoring.DecisionDelayed:
		p.notify(ctx, notifications.EventWithdrawalDelayed, req, "")

	case scoring.DecisionManualReview:
		p.notify(ctx, notifications.EventWithdrawalReview, req, "")
	}
}

// escalate hands a failed automatic payout to an admin: pending → pending_review.
// It does nothing when the request already left pending or another payout holds it.
func (p *Processor) escalate(ctx context.Context, req *withdrawal.Request, cause error) {
	ctx = context.WithoutCancel(ctx)
	log := logger.WithContext(ctx).With(zap.String("withdrawal_id", req.ID.String()))

	current, err := p.Requests.Get(ctx, req.ID)
	if err != nil {
		log.Error("Failed to reload withdrawal for escalation", zap.Error(err))
		return
	}
	if current.Status != withdrawal.StatusPending || current.ClaimActive(p.now()) {
		*req = *current
		return
	}

	details := map[string]any{"reason": cause.Error(), "kind": common.KindOf(cause)}
	if err := p.toReview(ctx, current, details, nil); err != nil {
		log.Error("Failed to escalate withdrawal", zap.Error(err))
		return
	}
	*req = *current
	log.Info("Automatic payout failed, withdrawal escalated to review", zap.Error(cause))
}

// toReview moves req to pending_review and appends an escalated event in one
// transaction; also runs inside it when set. The tutor is told afterwards.
func (p *Processor) toReview(ctx context.Context, req *withdrawal.Request, details map[string]any, also func(ctx context.Context) error) error {
	now := p.now()
	updated := *req
	err := p.Tx.WithTx(ctx, func(ctx context.Context) error {
		if also != nil {
			if err := also(ctx); err != nil {
				return err
			}
		}
		if err := p.Requests.Transition(ctx, &updated, withdrawal.StatusPendingReview, withdrawal.Change{}, now); err != nil {
			return err
		}
		return p.Audit.AppendTimeline(ctx, req.ID, audit.EventEscalated, nil, details)
	})
	if err != nil {
		return err
	}
	*req = updated
	p.notify(ctx, notifications.EventWithdrawalReview, req, "")
	return nil
}

// reevaluate reruns the fraud rules for a delayed request whose hold elapsed.
// A rule failing now that has not failed for this request before sends it
// to review and reports true. Otherwise the new results are recorded and the
// request may be paid.
func (p *Processor) reevaluate(ctx context.Context, req *withdrawal.Request) (bool, error) {
	prior, err := p.Audit.RequestFraudLogs(ctx, req.ID)
	if err != nil {
		return false, err
	}
	tutor, err := p.History.Tutor(ctx, req.TutorID)
	if err != nil {
		return false, err
	}

	results := p.Engine.Evaluate(ctx, *tutor, fraud.Attempt{
		WithdrawalID:   req.ID,
		Amount:         req.Amount,
		BankHolderName: req.Bank.HolderName,
		IP:             req.RequestIP,
		At:             p.now(),
	})

	flagged := make(map[fraud.RuleName]bool, len(prior))
	for _, l := range prior {
		if !l.Passed {
			flagged[fraud.RuleName(l.RuleName)] = true
		}
	}
	var fresh []string
	for rule := range fraud.FailedRules(results) {
		if !flagged[rule] {
			fresh = append(fresh, string(rule))
		}
	}

	record := func(ctx context.Context) error {
		return p.Audit.RecordFraudChecks(ctx, req.TutorID, &req.ID, results)
	}
	if len(fresh) == 0 {
		return false, record(ctx)
	}

	sort.Strings(fresh)
	details := map[string]any{"reason": "new fraud flags during delay", "rules": fresh}
	if err := p.toReview(ctx, req, details, record); err != nil {
		return false, err
	}
	logger.WithContext(ctx).Info("Delayed withdrawal escalated to review",
		zap.String("withdrawal_id", req.ID.String()),
		zap.Strings("rules", fresh),
	)
	return true, nil
}

// CancelWithdrawal lets a tutor withdraw their own open request.
func (p *Processor) CancelWithdrawal(ctx context.Context, tutorID, requestID uuid.UUID) (*withdrawal.Request, error) {
	req, err := p.Requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.TutorID != tutorID {
		return nil, common.NewForbiddenError("withdrawal belongs to another tutor")
	}
	if err := withdrawal.ValidateTransition(req.Status, withdrawal.StatusCancelled); err != nil {
		return nil, err
	}
	if req.ClaimActive(p.now()) {
		return nil, common.NewConcurrencyConflictError("withdrawal is being paid out", nil)
	}

	if err := p.settle(ctx, req, withdrawal.StatusCancelled, audit.EventCancelled, &tutorID, nil); err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("Withdrawal cancelled", zap.String("withdrawal_id", requestID.String()))
	p.notify(ctx, notifications.EventWithdrawalCancelled, req, "")
	return req, nil
}

// ProcessDueDelayed re-checks delayed requests whose hold has elapsed and pays
// out those with no new fraud flags. A failed payout leaves the request
// delayed for the next sweep.
func (p *Processor) ProcessDueDelayed(ctx context.Context) (int, error) {
	due, err := p.Requests.DueDelayed(ctx, p.now(), p.settings.SweepBatchSize)
	if err != nil {
		return 0, err
	}

	paid := 0
	for _, req := range due {
		if ctx.Err() != nil {
			return paid, ctx.Err()
		}

		escalated, err := p.reevaluate(ctx, req)
		if err != nil {
			if isConflict(err) {
				logger.WithContext(ctx).Debug("Skipping withdrawal claimed elsewhere", zap.String("withdrawal_id", req.ID.String()))
			} else {
				logger.WithContext(ctx).Warn("Delayed re-evaluation failed", zap.String("withdrawal_id", req.ID.String()), zap.Error(err))
			}
			continue
		}
		if escalated {
			continue
		}

		err = p.payout(ctx, req, nil, "delay elapsed")
		switch {
		case err == nil:
			paid++
		case isConflict(err):
			logger.WithContext(ctx).Debug("Skipping withdrawal claimed elsewhere", zap.String("withdrawal_id", req.ID.String()))
		case errors.Is(err, common.ErrInsufficientPlatformFunds):
			return paid, err
		default:
			logger.WithContext(ctx).Warn("Delayed payout failed", zap.String("withdrawal_id", req.ID.String()), zap.Error(err))
		}
	}
	return paid, nil
}

// ListTutorWithdrawals returns a tutor's requests, newest first
func (p *Processor) ListTutorWithdrawals(ctx context.Context, tutorID uuid.UUID, limit, offset int) ([]*withdrawal.Request, int64, error) {
	return p.Requests.List(ctx, withdrawal.ListFilter{TutorID: &tutorID, Limit: limit, Offset: offset})
}

// TutorWallet returns a tutor's balances
func (p *Processor) TutorWallet(ctx context.Context, tutorID uuid.UUID) (*ledger.Wallet, error) {
	return p.Ledger.Wallet(ctx, tutorID)
}

func sanitizeBank(b withdrawal.BankDetails) withdrawal.BankDetails {
	return withdrawal.BankDetails{
		HolderName:    security.SanitizeName(b.HolderName),
		AccountNumber: security.NormalizeWhitespace(b.AccountNumber),
		BankName:      security.SanitizeName(b.BankName),
		BankBin:       security.NormalizeWhitespace(b.BankBin),
	}
}

func (p *Processor) validate(in CreateInput) error {
	fields := map[string]string{}
	if !in.Amount.IsPositive() {
		fields["amount"] = "must be positive"
	} else if places := i18n.MinorUnits(p.settings.Currency); !in.Amount.Equal(in.Amount.Truncate(places)) {
		fields["amount"] = fmt.Sprintf("must have at most %d decimal places for %s", places, p.settings.Currency)
	} else if in.Amount.LessThan(p.settings.MinAmount) {
		fields["amount"] = "must be at least " + p.settings.MinAmount.String()
	}
	if strings.TrimSpace(in.Bank.HolderName) == "" {
		fields["bank_account.holder_name"] = "is required"
	}
	if strings.TrimSpace(in.Bank.AccountNumber) == "" {
		fields["bank_account.account_number"] = "is required"
	}
	if strings.TrimSpace(in.Bank.BankBin) == "" {
		fields["bank_account.bank_bin"] = "is required"
	}
	if len(fields) == 0 {
		return nil
	}

	parts := make([]string, 0, len(fields))
	for _, k := range []string{"amount", "bank_account.holder_name", "bank_account.account_number", "bank_account.bank_bin"} {
		if msg, ok := fields[k]; ok {
			parts = append(parts, k+" "+msg)
		}
	}
	return common.NewValidationError(strings.Join(parts, "; "), nil)
}
