package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/richxcame/tutor-payouts/pkg/common"
	"github.com/richxcame/tutor-payouts/pkg/database"
)

// RepositoryInterface is the row-level storage the Manager drives inside a transaction.
type RepositoryInterface interface {
	GetWallet(ctx context.Context, tutorID uuid.UUID) (*Wallet, error)
	LockWallet(ctx context.Context, tutorID uuid.UUID) (*Wallet, error)
	UpdateWallet(ctx context.Context, w *Wallet) error
	InsertHold(ctx context.Context, h *Hold) error
	LockHold(ctx context.Context, id uuid.UUID) (*Hold, error)
	SettleHold(ctx context.Context, h *Hold) error
	TotalFrozen(ctx context.Context) (decimal.Decimal, error)
}

// Repository is the PostgreSQL ledger store
type Repository struct {
	db *pgxpool.Pool
}

var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new ledger repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetWallet reads a wallet without locking it
func (r *Repository) GetWallet(ctx context.Context, tutorID uuid.UUID) (*Wallet, error) {
	return r.wallet(ctx, tutorID, "")
}

// LockWallet reads a wallet with FOR UPDATE. Call inside a transaction.
func (r *Repository) LockWallet(ctx context.Context, tutorID uuid.UUID) (*Wallet, error) {
	return r.wallet(ctx, tutorID, " FOR UPDATE")
}

func (r *Repository) wallet(ctx context.Context, tutorID uuid.UUID, lock string) (*Wallet, error) {
	var w Wallet
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT tutor_id, balance, frozen, currency, updated_at
		FROM tutor_wallets
		WHERE tutor_id = $1`+lock, tutorID,
	).Scan(&w.TutorID, &w.Balance, &w.Frozen, &w.Currency, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("wallet not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return &w, nil
}

// UpdateWallet writes balance and frozen back
func (r *Repository) UpdateWallet(ctx context.Context, w *Wallet) error {
	w.UpdatedAt = time.Now()
	_, err := database.Conn(ctx, r.db).Exec(ctx, `
		UPDATE tutor_wallets
		SET balance = $1, frozen = $2, updated_at = $3
		WHERE tutor_id = $4`,
		w.Balance, w.Frozen, w.UpdatedAt, w.TutorID,
	)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	return nil
}

// InsertHold stores a new hold
func (r *Repository) InsertHold(ctx context.Context, h *Hold) error {
	_, err := database.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO balance_holds (id, tutor_id, withdrawal_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		h.ID, h.TutorID, h.WithdrawalID, h.Amount, h.Status, h.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return common.NewConcurrencyConflictError("withdrawal already holds funds", err)
		}
		return fmt.Errorf("insert hold: %w", err)
	}
	return nil
}

// LockHold reads a hold with FOR UPDATE. Call inside a transaction.
func (r *Repository) LockHold(ctx context.Context, id uuid.UUID) (*Hold, error) {
	var h Hold
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT id, tutor_id, withdrawal_id, amount, status, created_at, settled_at
		FROM balance_holds
		WHERE id = $1
		FOR UPDATE`, id,
	).Scan(&h.ID, &h.TutorID, &h.WithdrawalID, &h.Amount, &h.Status, &h.CreatedAt, &h.SettledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("hold not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("lock hold: %w", err)
	}
	return &h, nil
}

// SettleHold records a committed or released hold
func (r *Repository) SettleHold(ctx context.Context, h *Hold) error {
	tag, err := database.Conn(ctx, r.db).Exec(ctx, `
		UPDATE balance_holds
		SET status = $1, settled_at = $2
		WHERE id = $3 AND status = 'held'`,
		h.Status, h.SettledAt, h.ID,
	)
	if err != nil {
		return fmt.Errorf("settle hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewInvalidStateError("hold is already settled")
	}
	return nil
}

// TotalFrozen sums all open holds
func (r *Repository) TotalFrozen(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := database.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM balance_holds WHERE status = 'held'`,
	).Scan(&total)
	if err != nil {
		return total, fmt.Errorf("sum frozen: %w", err)
	}
	return total, nil
}
