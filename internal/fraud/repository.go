package fraud

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/richxcame/tutor-payouts/pkg/common"
	"github.com/richxcame/tutor-payouts/pkg/database"
)

// Repository reads tutor history for the fraud rules
type Repository struct {
	db *pgxpool.Pool
}

var _ HistorySource = (*Repository)(nil)

// NewRepository creates a new fraud history repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// LastWithdrawalAt ignores rejected and cancelled requests; they never moved money.
func (r *Repository) LastWithdrawalAt(ctx context.Context, tutorID, exclude uuid.UUID) (*time.Time, error) {
	query := `
		SELECT MAX(created_at)
		FROM withdrawal_requests
		WHERE tutor_id = $1
		  AND id <> $2
		  AND status NOT IN ('rejected', 'cancelled')
	`

	var last *time.Time
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, tutorID, exclude).Scan(&last); err != nil {
		return nil, err
	}
	return last, nil
}

// KnownSessionIPs returns the distinct addresses of the tutor's recent sessions
func (r *Repository) KnownSessionIPs(ctx context.Context, tutorID uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT host(ip_address)
		FROM tutor_sessions
		WHERE tutor_id = $1
		  AND created_at > NOW() - INTERVAL '180 days'
	`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, tutorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ips []string
	for rows.Next() {
		var ip string
		if err := rows.Scan(&ip); err != nil {
			return nil, err
		}
		ips = append(ips, ip)
	}
	return ips, rows.Err()
}

// CompletedWithdrawals counts the tutor's approved withdrawals
func (r *Repository) CompletedWithdrawals(ctx context.Context, tutorID uuid.UUID) (int, error) {
	var count int
	err := database.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM withdrawal_requests WHERE tutor_id = $1 AND status = 'approved'`,
		tutorID,
	).Scan(&count)
	return count, err
}

// Tutor loads the tutor's verified profile
func (r *Repository) Tutor(ctx context.Context, tutorID uuid.UUID) (*TutorContext, error) {
	query := `
		SELECT id, COALESCE(legal_name, ''), email, email_verified, created_at
		FROM tutors
		WHERE id = $1
	`

	var t TutorContext
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, tutorID).Scan(
		&t.TutorID,
		&t.LegalName,
		&t.Email,
		&t.EmailVerified,
		&t.JoinedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("tutor not found", err)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
