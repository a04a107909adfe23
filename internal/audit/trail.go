package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/tutor-payouts/internal/fraud"
	"github.com/richxcame/tutor-payouts/pkg/errorreport"
	"github.com/richxcame/tutor-payouts/pkg/logger"
)

// Trail records the audit history of the payout workflow
type Trail struct {
	repo RepositoryInterface
	now  func() time.Time
	// report forwards alerts that could not be stored.
	report func(ctx context.Context, err error, tags map[string]string)
}

// NewTrail creates an audit trail
func NewTrail(repo RepositoryInterface) *Trail {
	return &Trail{repo: repo, now: time.Now, report: errorreport.CaptureError}
}

// RecordFraudChecks stores one log row per rule result
func (t *Trail) RecordFraudChecks(ctx context.Context, tutorID uuid.UUID, requestID *uuid.UUID, results []fraud.RuleResult) error {
	at := t.now()
	logs := make([]*FraudCheckLog, 0, len(results))
	for _, r := range results {
		logs = append(logs, &FraudCheckLog{
			ID:                  uuid.New(),
			TutorID:             tutorID,
			WithdrawalRequestID: requestID,
			RuleName:            string(r.RuleName),
			Passed:              r.Passed,
			Message:             r.Message,
			CheckedAt:           at,
		})
	}
	return t.repo.InsertFraudLogs(ctx, logs)
}

// AppendTimeline adds an event to a request's timeline. details may be nil.
func (t *Trail) AppendTimeline(ctx context.Context, requestID uuid.UUID, event string, actorID *uuid.UUID, details map[string]any) error {
	e := &TimelineEvent{
		ID:                  uuid.New(),
		WithdrawalRequestID: requestID,
		Event:               event,
		ActorID:             actorID,
		Timestamp:           t.now(),
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return err
		}
		e.Details = raw
	}
	return t.repo.InsertTimeline(ctx, e)
}

// Timeline returns a request's events in order
func (t *Trail) Timeline(ctx context.Context, requestID uuid.UUID) ([]*TimelineEvent, error) {
	return t.repo.Timeline(ctx, requestID)
}

// FraudLogs lists rule results for the admin fraud log screen
func (t *Trail) FraudLogs(ctx context.Context, filter FraudLogFilter) ([]*FraudCheckLog, int64, error) {
	return t.repo.ListFraudLogs(ctx, filter)
}

// RequestFraudLogs lists the rule results of one withdrawal
func (t *Trail) RequestFraudLogs(ctx context.Context, requestID uuid.UUID) ([]*FraudCheckLog, error) {
	return t.repo.FraudLogsForRequest(ctx, requestID)
}

// RaiseAlert stores a system alert. Failures are not returned, so an alert
// never masks the error that triggered it; the alert goes to error reporting
// instead.
func (t *Trail) RaiseAlert(ctx context.Context, alertType string, severity Severity, message string) *SystemAlert {
	alert := &SystemAlert{
		ID:        uuid.New(),
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		CreatedAt: t.now(),
	}
	if err := t.repo.InsertAlert(ctx, alert); err != nil {
		logger.WithContext(ctx).Error("Failed to store system alert",
			zap.String("type", alertType),
			zap.String("severity", string(severity)),
			zap.String("message", message),
			zap.Error(err),
		)
		t.report(ctx, fmt.Errorf("system alert %s not stored: %s: %w", alertType, message, err), map[string]string{
			"alert_type": alertType,
			"severity":   string(severity),
		})
		return nil
	}

	logger.WithContext(ctx).Warn("System alert raised",
		zap.String("alert_id", alert.ID.String()),
		zap.String("type", alertType),
		zap.String("severity", string(severity)),
		zap.String("message", message),
	)
	return alert
}

// ResolveAlert closes an open alert
func (t *Trail) ResolveAlert(ctx context.Context, alertID, adminID uuid.UUID) (*SystemAlert, error) {
	return t.repo.ResolveAlert(ctx, alertID, adminID, t.now())
}

// Alerts lists system alerts; resolved nil means all
func (t *Trail) Alerts(ctx context.Context, resolved *bool, limit, offset int) ([]*SystemAlert, int64, error) {
	return t.repo.ListAlerts(ctx, resolved, limit, offset)
}

// OpenAlerts counts unresolved alerts
func (t *Trail) OpenAlerts(ctx context.Context) (int64, error) {
	return t.repo.CountOpenAlerts(ctx)
}
