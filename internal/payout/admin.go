package payout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/richxcame/tutor-payouts/internal/audit"
	"github.com/richxcame/tutor-payouts/internal/gateway"
	"github.com/richxcame/tutor-payouts/internal/ledger"
	"github.com/richxcame/tutor-payouts/internal/notifications"
	"github.com/richxcame/tutor-payouts/internal/scoring"
	"github.com/richxcame/tutor-payouts/internal/withdrawal"
	"github.com/richxcame/tutor-payouts/pkg/common"
	"github.com/richxcame/tutor-payouts/pkg/logger"
	"github.com/richxcame/tutor-payouts/pkg/security"
	"github.com/richxcame/tutor-payouts/pkg/storage"
)

// DashboardOverview is the admin payout dashboard
type DashboardOverview struct {
	*withdrawal.Overview
	OpenAlerts  int64           `json:"open_alerts"`
	TotalFrozen decimal.Decimal `json:"total_frozen"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// RequestDetail is everything an admin sees for one request
type RequestDetail struct {
	Request     *withdrawal.Request         `json:"request"`
	TrustScore  *scoring.TrustScoreSnapshot `json:"trust_score"`
	FraudChecks []*audit.FraudCheckLog      `json:"fraud_checks"`
	Wallet      *ledger.Wallet              `json:"wallet,omitempty"`
	Timeline    []*audit.TimelineEvent      `json:"timeline"`
}

// AdminService carries out admin decisions on withdrawal requests
type AdminService struct {
	executor
}

// NewAdminService creates the admin decision service
func NewAdminService(deps Deps, settings Settings) *AdminService {
	return &AdminService{executor: newExecutor(deps, settings)}
}

// Approve pays out a request waiting for review or delay. Only one transfer
// is ever made per request, however many times this is called.
func (s *AdminService) Approve(ctx context.Context, requestID, adminID uuid.UUID, note string) (*withdrawal.Request, error) {
	req, err := s.Requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case withdrawal.StatusPendingReview, withdrawal.StatusDelayed:
	case withdrawal.StatusPending:
		return nil, common.NewInvalidStateError("withdrawal is still being processed automatically")
	default:
		return nil, withdrawal.ValidateTransition(req.Status, withdrawal.StatusApproved)
	}
	if req.ClaimActive(s.now()) {
		return nil, common.NewConcurrencyConflictError("withdrawal is already being paid out", nil)
	}

	if err := s.payout(ctx, req, &adminID, security.SanitizeNote(note)); err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("Withdrawal approved by admin",
		zap.String("withdrawal_id", requestID.String()),
		zap.String("admin_id", adminID.String()),
	)
	return req, nil
}

// Reject refuses a request and gives the funds back to the tutor.
func (s *AdminService) Reject(ctx context.Context, requestID, adminID uuid.UUID, reason string) (*withdrawal.Request, error) {
	reason = security.SanitizeNote(reason)
	if reason == "" {
		return nil, common.NewValidationError("reason is required", nil)
	}

	req, err := s.Requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := withdrawal.ValidateTransition(req.Status, withdrawal.StatusRejected); err != nil {
		return nil, err
	}
	if req.ClaimActive(s.now()) {
		return nil, common.NewConcurrencyConflictError("withdrawal is being paid out", nil)
	}

	if err := s.settle(ctx, req, withdrawal.StatusRejected, audit.EventRejected, &adminID, map[string]any{"reason": reason}); err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("Withdrawal rejected by admin",
		zap.String("withdrawal_id", requestID.String()),
		zap.String("admin_id", adminID.String()),
	)
	s.notify(ctx, notifications.EventWithdrawalRejected, req, reason)
	return req, nil
}

// Overview aggregates the dashboard figures
func (s *AdminService) Overview(ctx context.Context) (*DashboardOverview, error) {
	now := s.now()
	ov, err := s.Requests.Overview(ctx, now)
	if err != nil {
		return nil, err
	}
	frozen, err := s.Ledger.TotalFrozen(ctx)
	if err != nil {
		return nil, err
	}
	open, err := s.Audit.OpenAlerts(ctx)
	if err != nil {
		return nil, err
	}
	return &DashboardOverview{Overview: ov, OpenAlerts: open, TotalFrozen: frozen, GeneratedAt: now}, nil
}

// List returns a filtered page of requests
func (s *AdminService) List(ctx context.Context, filter withdrawal.ListFilter) ([]*withdrawal.Request, int64, error) {
	return s.Requests.List(ctx, filter)
}

// Detail loads a request with its score, fraud flags, wallet and timeline
func (s *AdminService) Detail(ctx context.Context, requestID uuid.UUID) (*RequestDetail, error) {
	req, err := s.Requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.Requests.GetSnapshot(ctx, requestID)
	if err != nil {
		return nil, err
	}
	checks, err := s.Audit.RequestFraudLogs(ctx, requestID)
	if err != nil {
		return nil, err
	}
	timeline, err := s.Audit.Timeline(ctx, requestID)
	if err != nil {
		return nil, err
	}

	wallet, err := s.Ledger.Wallet(ctx, req.TutorID)
	if err != nil {
		logger.WithContext(ctx).Warn("Wallet unavailable for request detail",
			zap.String("withdrawal_id", requestID.String()), zap.Error(err))
		wallet = nil
	}

	return &RequestDetail{
		Request:     req,
		TrustScore:  snapshot,
		FraudChecks: checks,
		Wallet:      wallet,
		Timeline:    timeline,
	}, nil
}

// FraudLogs lists rule results
func (s *AdminService) FraudLogs(ctx context.Context, filter audit.FraudLogFilter) ([]*audit.FraudCheckLog, int64, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, common.NewValidationError(fmt.Sprintf("to (%s) is before from (%s)",
			filter.To.Format(time.RFC3339), filter.From.Format(time.RFC3339)), nil)
	}
	return s.Audit.FraudLogs(ctx, filter)
}

// Alerts lists system alerts
func (s *AdminService) Alerts(ctx context.Context, resolved *bool, limit, offset int) ([]*audit.SystemAlert, int64, error) {
	return s.Audit.Alerts(ctx, resolved, limit, offset)
}

// ResolveAlert closes a system alert
func (s *AdminService) ResolveAlert(ctx context.Context, alertID, adminID uuid.UUID) (*audit.SystemAlert, error) {
	return s.Audit.ResolveAlert(ctx, alertID, adminID)
}

// ReceiptURL returns a download link for a paid request's receipt
func (s *AdminService) ReceiptURL(ctx context.Context, requestID uuid.UUID) (*storage.PresignedURL, error) {
	if s.Receipts == nil {
		return nil, common.NewServiceUnavailableError("receipt archive is not configured")
	}
	req, err := s.Requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return s.Receipts.DownloadURL(ctx, req)
}

// PlatformBalance reads the settlement account balance
func (s *AdminService) PlatformBalance(ctx context.Context) (*gateway.PlatformBalance, error) {
	return s.Gateway.PlatformBalance(ctx)
}
