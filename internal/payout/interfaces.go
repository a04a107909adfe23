package payout

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/richxcame/tutor-payouts/internal/audit"
	"github.com/richxcame/tutor-payouts/internal/fraud"
	"github.com/richxcame/tutor-payouts/internal/ledger"
	"github.com/richxcame/tutor-payouts/internal/withdrawal"
	"github.com/richxcame/tutor-payouts/pkg/storage"
)

// Ledger reserves, spends and releases tutor funds
type Ledger interface {
	Reserve(ctx context.Context, tutorID, withdrawalID uuid.UUID, amount decimal.Decimal) (*ledger.Hold, error)
	Commit(ctx context.Context, holdID uuid.UUID) error
	Release(ctx context.Context, holdID uuid.UUID) error
	Wallet(ctx context.Context, tutorID uuid.UUID) (*ledger.Wallet, error)
	TotalFrozen(ctx context.Context) (decimal.Decimal, error)
}

// Evaluator runs the fraud rules for an attempt
type Evaluator interface {
	Evaluate(ctx context.Context, tutor fraud.TutorContext, attempt fraud.Attempt) []fraud.RuleResult
}

// AuditTrail records fraud checks, timeline events and system alerts
type AuditTrail interface {
	RecordFraudChecks(ctx context.Context, tutorID uuid.UUID, requestID *uuid.UUID, results []fraud.RuleResult) error
	AppendTimeline(ctx context.Context, requestID uuid.UUID, event string, actorID *uuid.UUID, details map[string]any) error
	Timeline(ctx context.Context, requestID uuid.UUID) ([]*audit.TimelineEvent, error)
	FraudLogs(ctx context.Context, filter audit.FraudLogFilter) ([]*audit.FraudCheckLog, int64, error)
	RequestFraudLogs(ctx context.Context, requestID uuid.UUID) ([]*audit.FraudCheckLog, error)
	RaiseAlert(ctx context.Context, alertType string, severity audit.Severity, message string) *audit.SystemAlert
	ResolveAlert(ctx context.Context, alertID, adminID uuid.UUID) (*audit.SystemAlert, error)
	Alerts(ctx context.Context, resolved *bool, limit, offset int) ([]*audit.SystemAlert, int64, error)
	OpenAlerts(ctx context.Context) (int64, error)
}

// ReceiptArchive stores payout receipts and signs download links
type ReceiptArchive interface {
	Archive(ctx context.Context, req *withdrawal.Request, currency string) error
	DownloadURL(ctx context.Context, req *withdrawal.Request) (*storage.PresignedURL, error)
}
