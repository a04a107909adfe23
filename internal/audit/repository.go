package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/richxcame/tutor-payouts/pkg/common"
	"github.com/richxcame/tutor-payouts/pkg/database"
)

// RepositoryInterface exposes inserts and reads only. Logs and timeline
// rows are never updated or deleted; alerts only record their resolution.
type RepositoryInterface interface {
	InsertFraudLogs(ctx context.Context, logs []*FraudCheckLog) error
	ListFraudLogs(ctx context.Context, filter FraudLogFilter) ([]*FraudCheckLog, int64, error)
	FraudLogsForRequest(ctx context.Context, requestID uuid.UUID) ([]*FraudCheckLog, error)
	InsertTimeline(ctx context.Context, event *TimelineEvent) error
	Timeline(ctx context.Context, requestID uuid.UUID) ([]*TimelineEvent, error)
	InsertAlert(ctx context.Context, alert *SystemAlert) error
	ResolveAlert(ctx context.Context, id, resolvedBy uuid.UUID, at time.Time) (*SystemAlert, error)
	ListAlerts(ctx context.Context, resolved *bool, limit, offset int) ([]*SystemAlert, int64, error)
	CountOpenAlerts(ctx context.Context) (int64, error)
}

// Repository is the PostgreSQL audit store
type Repository struct {
	db *pgxpool.Pool
}

var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new audit repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// InsertFraudLogs writes a batch of rule results
func (r *Repository) InsertFraudLogs(ctx context.Context, logs []*FraudCheckLog) error {
	if len(logs) == 0 {
		return nil
	}

	q := database.Conn(ctx, r.db)
	for _, l := range logs {
		_, err := q.Exec(ctx, `
			INSERT INTO fraud_check_logs (id, tutor_id, withdrawal_request_id, rule_name, passed, message, checked_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			l.ID, l.TutorID, l.WithdrawalRequestID, l.RuleName, l.Passed, l.Message, l.CheckedAt,
		)
		if err != nil {
			return fmt.Errorf("insert fraud log: %w", err)
		}
	}
	return nil
}

// ListFraudLogs returns a filtered page of rule results, newest first
func (r *Repository) ListFraudLogs(ctx context.Context, f FraudLogFilter) ([]*FraudCheckLog, int64, error) {
	q := database.Conn(ctx, r.db)
	where := `
		WHERE ($1::uuid IS NULL OR tutor_id = $1)
		  AND ($2::text IS NULL OR rule_name = $2)
		  AND ($3::boolean IS NULL OR passed = $3)
		  AND ($4::timestamptz IS NULL OR checked_at >= $4)
		  AND ($5::timestamptz IS NULL OR checked_at < $5)`
	args := []any{f.TutorID, f.RuleName, f.Passed, f.From, f.To}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM fraud_check_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count fraud logs: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT id, tutor_id, withdrawal_request_id, rule_name, passed, message, checked_at
		FROM fraud_check_logs`+where+`
		ORDER BY checked_at DESC, id
		LIMIT $6 OFFSET $7`,
		append(args, f.Limit, f.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list fraud logs: %w", err)
	}
	defer rows.Close()

	logs, err := scanFraudLogs(rows)
	return logs, total, err
}

// FraudLogsForRequest returns the rule results recorded for one withdrawal
func (r *Repository) FraudLogsForRequest(ctx context.Context, requestID uuid.UUID) ([]*FraudCheckLog, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, `
		SELECT id, tutor_id, withdrawal_request_id, rule_name, passed, message, checked_at
		FROM fraud_check_logs
		WHERE withdrawal_request_id = $1
		ORDER BY checked_at, rule_name`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list request fraud logs: %w", err)
	}
	defer rows.Close()
	return scanFraudLogs(rows)
}

func scanFraudLogs(rows pgx.Rows) ([]*FraudCheckLog, error) {
	logs := []*FraudCheckLog{}
	for rows.Next() {
		var l FraudCheckLog
		if err := rows.Scan(&l.ID, &l.TutorID, &l.WithdrawalRequestID, &l.RuleName, &l.Passed, &l.Message, &l.CheckedAt); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

// InsertTimeline appends a timeline event
func (r *Repository) InsertTimeline(ctx context.Context, e *TimelineEvent) error {
	_, err := database.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO withdrawal_timeline (id, withdrawal_request_id, event, actor_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.WithdrawalRequestID, e.Event, e.ActorID, e.Details, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert timeline event: %w", err)
	}
	return nil
}

// Timeline returns a request's events oldest first
func (r *Repository) Timeline(ctx context.Context, requestID uuid.UUID) ([]*TimelineEvent, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, `
		SELECT id, withdrawal_request_id, event, actor_id, details, created_at
		FROM withdrawal_timeline
		WHERE withdrawal_request_id = $1
		ORDER BY created_at, seq`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list timeline: %w", err)
	}
	defer rows.Close()

	events := []*TimelineEvent{}
	for rows.Next() {
		var e TimelineEvent
		var details []byte
		if err := rows.Scan(&e.ID, &e.WithdrawalRequestID, &e.Event, &e.ActorID, &details, &e.Timestamp); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			e.Details = details
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// InsertAlert stores a new system alert
func (r *Repository) InsertAlert(ctx context.Context, a *SystemAlert) error {
	_, err := database.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO system_alerts (id, type, severity, message, resolved, created_at)
		VALUES ($1, $2, $3, $4, false, $5)`,
		a.ID, a.Type, a.Severity, a.Message, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert system alert: %w", err)
	}
	return nil
}

// ResolveAlert marks an open alert resolved. An already resolved alert is an InvalidStateError.
func (r *Repository) ResolveAlert(ctx context.Context, id, resolvedBy uuid.UUID, at time.Time) (*SystemAlert, error) {
	q := database.Conn(ctx, r.db)

	var a SystemAlert
	err := q.QueryRow(ctx, `
		UPDATE system_alerts
		SET resolved = true, resolved_by = $2, resolved_at = $3
		WHERE id = $1 AND resolved = false
		RETURNING id, type, severity, message, resolved, resolved_by, resolved_at, created_at`,
		id, resolvedBy, at,
	).Scan(&a.ID, &a.Type, &a.Severity, &a.Message, &a.Resolved, &a.ResolvedBy, &a.ResolvedAt, &a.CreatedAt)
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("resolve alert: %w", err)
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM system_alerts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check alert: %w", err)
	}
	if !exists {
		return nil, common.NewNotFoundError("system alert not found", nil)
	}
	return nil, common.NewInvalidStateError("system alert is already resolved")
}

// ListAlerts returns alerts newest first, optionally filtered by resolution
func (r *Repository) ListAlerts(ctx context.Context, resolved *bool, limit, offset int) ([]*SystemAlert, int64, error) {
	q := database.Conn(ctx, r.db)

	var total int64
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM system_alerts WHERE ($1::boolean IS NULL OR resolved = $1)`, resolved,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT id, type, severity, message, resolved, resolved_by, resolved_at, created_at
		FROM system_alerts
		WHERE ($1::boolean IS NULL OR resolved = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		resolved, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*SystemAlert{}
	for rows.Next() {
		var a SystemAlert
		if err := rows.Scan(&a.ID, &a.Type, &a.Severity, &a.Message, &a.Resolved, &a.ResolvedBy, &a.ResolvedAt, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		alerts = append(alerts, &a)
	}
	return alerts, total, rows.Err()
}

// CountOpenAlerts counts unresolved alerts
func (r *Repository) CountOpenAlerts(ctx context.Context) (int64, error) {
	var n int64
	err := database.Conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM system_alerts WHERE resolved = false`).Scan(&n)
	return n, err
}
