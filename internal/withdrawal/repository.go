package withdrawal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/richxcame/tutor-payouts/internal/scoring"
	"github.com/richxcame/tutor-payouts/pkg/common"
	"github.com/richxcame/tutor-payouts/pkg/database"
)

// RepositoryInterface is the storage contract of the state machine.
type RepositoryInterface interface {
	Create(ctx context.Context, req *Request, snapshot *scoring.TrustScoreSnapshot) error
	Get(ctx context.Context, id uuid.UUID) (*Request, error)
	GetSnapshot(ctx context.Context, id uuid.UUID) (*scoring.TrustScoreSnapshot, error)
	List(ctx context.Context, filter ListFilter) ([]*Request, int64, error)
	DueDelayed(ctx context.Context, now time.Time, limit int) ([]*Request, error)
	Overview(ctx context.Context, now time.Time) (*Overview, error)
	Claim(ctx context.Context, req *Request, until, now time.Time) error
	ReleaseClaim(ctx context.Context, req *Request) error
	Transition(ctx context.Context, req *Request, to Status, change Change, now time.Time) error
}

// Repository stores withdrawal requests in PostgreSQL
type Repository struct {
	db *pgxpool.Pool
}

var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new withdrawal repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const requestColumns = `
	id, tutor_id, amount, bank_holder_name, bank_account_number, bank_name, bank_bin,
	status, decision, hold_id, request_ip, delay_until, payout_claim_until,
	processed_at, processed_by_id, gateway_transaction_id, gateway_status,
	version, created_at, updated_at`

// Create inserts the request and its trust score snapshot. Call inside a transaction.
func (r *Repository) Create(ctx context.Context, req *Request, snapshot *scoring.TrustScoreSnapshot) error {
	q := database.Conn(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO withdrawal_requests (
			id, tutor_id, amount, bank_holder_name, bank_account_number, bank_name, bank_bin,
			status, decision, hold_id, request_ip, delay_until, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)`,
		req.ID, req.TutorID, req.Amount, req.Bank.HolderName, req.Bank.AccountNumber,
		req.Bank.BankName, req.Bank.BankBin, req.Status, req.Decision, req.HoldID,
		req.RequestIP, req.DelayUntil, req.Version, req.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return common.NewConcurrencyConflictError("withdrawal already exists", err)
		}
		return fmt.Errorf("insert withdrawal: %w", err)
	}

	positive, err := json.Marshal(snapshot.PositiveFactors)
	if err != nil {
		return err
	}
	negative, err := json.Marshal(snapshot.NegativeFactors)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO trust_score_snapshots (
			withdrawal_request_id, base_score, positive_factors, negative_factors,
			total_score, decision, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		req.ID, snapshot.BaseScore, positive, negative, snapshot.TotalScore, snapshot.Decision, req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trust score snapshot: %w", err)
	}
	return nil
}

// Get loads one request
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Request, error) {
	row := database.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+requestColumns+` FROM withdrawal_requests WHERE id = $1`, id)

	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("withdrawal request not found", err)
	}
	return req, err
}

// GetSnapshot loads the trust score snapshot of a request
func (r *Repository) GetSnapshot(ctx context.Context, id uuid.UUID) (*scoring.TrustScoreSnapshot, error) {
	var snap scoring.TrustScoreSnapshot
	var positive, negative []byte

	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT base_score, positive_factors, negative_factors, total_score, decision
		FROM trust_score_snapshots
		WHERE withdrawal_request_id = $1`, id,
	).Scan(&snap.BaseScore, &positive, &negative, &snap.TotalScore, &snap.Decision)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("trust score snapshot not found", err)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(positive, &snap.PositiveFactors); err != nil {
		return nil, fmt.Errorf("decode positive factors: %w", err)
	}
	if err := json.Unmarshal(negative, &snap.NegativeFactors); err != nil {
		return nil, fmt.Errorf("decode negative factors: %w", err)
	}
	return &snap, nil
}

// List returns a filtered page of requests, newest first, with the total count
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]*Request, int64, error) {
	q := database.Conn(ctx, r.db)

	where := `WHERE ($1::text IS NULL OR status = $1) AND ($2::uuid IS NULL OR tutor_id = $2)`
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM withdrawal_requests `+where, status, filter.TutorID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count withdrawals: %w", err)
	}

	rows, err := q.Query(ctx,
		`SELECT `+requestColumns+` FROM withdrawal_requests `+where+`
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`,
		status, filter.TutorID, filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list withdrawals: %w", err)
	}
	defer rows.Close()

	requests, err := scanRequests(rows)
	return requests, total, err
}

// DueDelayed returns delayed requests whose hold has elapsed and that no payout has claimed
func (r *Repository) DueDelayed(ctx context.Context, now time.Time, limit int) ([]*Request, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx,
		`SELECT `+requestColumns+` FROM withdrawal_requests
		WHERE status = 'delayed'
		  AND delay_until <= $1
		  AND (payout_claim_until IS NULL OR payout_claim_until < $1)
		ORDER BY delay_until
		LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list due delayed withdrawals: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

// Overview computes dashboard aggregates
func (r *Repository) Overview(ctx context.Context, now time.Time) (*Overview, error) {
	q := database.Conn(ctx, r.db)
	ov := &Overview{ByStatus: make(map[Status]StatusSummary)}

	rows, err := q.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(amount), 0)
		FROM withdrawal_requests
		GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("aggregate withdrawals: %w", err)
	}
	for rows.Next() {
		var status Status
		var summary StatusSummary
		if err := rows.Scan(&status, &summary.Count, &summary.Amount); err != nil {
			rows.Close()
			return nil, err
		}
		ov.ByStatus[status] = summary
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	err = q.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM withdrawal_requests
		WHERE status = 'approved' AND processed_at >= $1`, startOfDay,
	).Scan(&ov.ApprovedToday.Count, &ov.ApprovedToday.Amount)
	if err != nil {
		return nil, fmt.Errorf("aggregate approvals: %w", err)
	}

	err = q.QueryRow(ctx, `
		SELECT COUNT(*) FROM withdrawal_requests
		WHERE status = 'delayed' AND delay_until <= $1`, now,
	).Scan(&ov.DueDelayed)
	if err != nil {
		return nil, fmt.Errorf("count due delayed: %w", err)
	}

	err = q.QueryRow(ctx, `
		SELECT COALESCE(AVG(total_score), 0)::float8
		FROM trust_score_snapshots
		WHERE created_at >= $1`, now.AddDate(0, 0, -30),
	).Scan(&ov.AverageScore)
	if err != nil {
		return nil, fmt.Errorf("average score: %w", err)
	}

	return ov, nil
}

// Claim takes the payout lease on req. The status must be unchanged and no live lease may exist.
func (r *Repository) Claim(ctx context.Context, req *Request, until, now time.Time) error {
	var version int
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		UPDATE withdrawal_requests
		SET payout_claim_until = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4 AND status = $5
		  AND (payout_claim_until IS NULL OR payout_claim_until < $2)
		RETURNING version`,
		until, now, req.ID, req.Version, req.Status,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.NewConcurrencyConflictError("withdrawal was modified or is being paid out", nil)
	}
	if err != nil {
		return fmt.Errorf("claim withdrawal: %w", err)
	}

	req.PayoutClaimUntil = &until
	req.Version = version
	req.UpdatedAt = now
	return nil
}

// ReleaseClaim drops the payout lease without changing status
func (r *Repository) ReleaseClaim(ctx context.Context, req *Request) error {
	var version int
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		UPDATE withdrawal_requests
		SET payout_claim_until = NULL, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version`,
		req.ID, req.Version,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.NewConcurrencyConflictError("withdrawal was modified while paying out", nil)
	}
	if err != nil {
		return fmt.Errorf("release withdrawal claim: %w", err)
	}

	req.PayoutClaimUntil = nil
	req.Version = version
	return nil
}

// Transition moves req to status to with a compare-and-swap on (id, version, status).
// The transition table is checked first so an invalid move has no side effect.
func (r *Repository) Transition(ctx context.Context, req *Request, to Status, change Change, now time.Time) error {
	if err := ValidateTransition(req.Status, to); err != nil {
		return err
	}

	var version int
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		UPDATE withdrawal_requests
		SET status = $1,
		    processed_at = COALESCE($2, processed_at),
		    processed_by_id = COALESCE($3, processed_by_id),
		    gateway_transaction_id = COALESCE($4, gateway_transaction_id),
		    gateway_status = COALESCE($5, gateway_status),
		    payout_claim_until = NULL,
		    version = version + 1,
		    updated_at = $6
		WHERE id = $7 AND version = $8 AND status = $9
		  AND ($10 OR payout_claim_until IS NULL OR payout_claim_until < $6)
		RETURNING version`,
		to, change.ProcessedAt, change.ProcessedByID, change.GatewayTransactionID, change.GatewayStatus,
		now, req.ID, req.Version, req.Status, change.OwnsClaim,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.NewConcurrencyConflictError("withdrawal was modified by another request", nil)
	}
	if err != nil {
		return fmt.Errorf("transition withdrawal: %w", err)
	}

	applyChange(req, to, change, version, now)
	return nil
}

func applyChange(req *Request, to Status, change Change, version int, now time.Time) {
	req.Status = to
	req.Version = version
	req.UpdatedAt = now
	req.PayoutClaimUntil = nil
	if change.ProcessedAt != nil {
		req.ProcessedAt = change.ProcessedAt
	}
	if change.ProcessedByID != nil {
		req.ProcessedByID = change.ProcessedByID
	}
	if change.GatewayTransactionID != nil {
		req.GatewayTransactionID = change.GatewayTransactionID
	}
	if change.GatewayStatus != nil {
		req.GatewayStatus = change.GatewayStatus
	}
}

func scanRequests(rows pgx.Rows) ([]*Request, error) {
	requests := []*Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	var amount decimal.Decimal
	err := row.Scan(
		&req.ID,
		&req.TutorID,
		&amount,
		&req.Bank.HolderName,
		&req.Bank.AccountNumber,
		&req.Bank.BankName,
		&req.Bank.BankBin,
		&req.Status,
		&req.Decision,
		&req.HoldID,
		&req.RequestIP,
		&req.DelayUntil,
		&req.PayoutClaimUntil,
		&req.ProcessedAt,
		&req.ProcessedByID,
		&req.GatewayTransactionID,
		&req.GatewayStatus,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Amount = amount
	return &req, nil
}
