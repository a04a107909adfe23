package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/richxcame/tutor-payouts/pkg/common"
	"github.com/richxcame/tutor-payouts/pkg/database"
	"github.com/richxcame/tutor-payouts/pkg/logger"
)

// Manager moves money between a tutor's available and frozen balance.
// Every operation locks only the owning wallet row and the hold row, so
// different tutors never contend.
type Manager struct {
	repo RepositoryInterface
	tx   database.Transactor
	now  func() time.Time
}

// NewManager creates a ledger manager
func NewManager(repo RepositoryInterface, tx database.Transactor) *Manager {
	return &Manager{repo: repo, tx: tx, now: time.Now}
}

// Reserve freezes amount on the tutor's wallet for a withdrawal and returns the hold.
func (m *Manager) Reserve(ctx context.Context, tutorID, withdrawalID uuid.UUID, amount decimal.Decimal) (*Hold, error) {
	if !amount.IsPositive() {
		return nil, common.NewValidationError("amount must be positive", nil)
	}

	var hold *Hold
	err := m.tx.WithTx(ctx, func(ctx context.Context) error {
		wallet, err := m.repo.LockWallet(ctx, tutorID)
		if err != nil {
			return err
		}
		if wallet.Available().LessThan(amount) {
			return common.NewInsufficientFundsError(fmt.Sprintf(
				"available balance %s is below requested %s", wallet.Available().StringFixed(2), amount.StringFixed(2)))
		}

		wallet.Frozen = wallet.Frozen.Add(amount)
		if err := m.repo.UpdateWallet(ctx, wallet); err != nil {
			return err
		}

		hold = &Hold{
			ID:           uuid.New(),
			TutorID:      tutorID,
			WithdrawalID: withdrawalID,
			Amount:       amount,
			Status:       HoldHeld,
			CreatedAt:    m.now(),
		}
		return m.repo.InsertHold(ctx, hold)
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Debug("Balance reserved",
		zap.String("hold_id", hold.ID.String()),
		zap.String("tutor_id", tutorID.String()),
		zap.String("amount", amount.String()),
	)
	return hold, nil
}

// Commit spends a held amount: balance and frozen both drop by it.
func (m *Manager) Commit(ctx context.Context, holdID uuid.UUID) error {
	return m.settle(ctx, holdID, HoldCommitted)
}

// Release returns a held amount to the available balance.
func (m *Manager) Release(ctx context.Context, holdID uuid.UUID) error {
	return m.settle(ctx, holdID, HoldReleased)
}

func (m *Manager) settle(ctx context.Context, holdID uuid.UUID, to HoldStatus) error {
	return m.tx.WithTx(ctx, func(ctx context.Context) error {
		hold, err := m.repo.LockHold(ctx, holdID)
		if err != nil {
			return err
		}
		if !hold.Open() {
			return common.NewInvalidStateError(fmt.Sprintf("hold is already %s", hold.Status))
		}

		wallet, err := m.repo.LockWallet(ctx, hold.TutorID)
		if err != nil {
			return err
		}
		if wallet.Frozen.LessThan(hold.Amount) {
			return common.NewInternalError("frozen balance is below hold amount", nil)
		}

		wallet.Frozen = wallet.Frozen.Sub(hold.Amount)
		if to == HoldCommitted {
			wallet.Balance = wallet.Balance.Sub(hold.Amount)
		}
		if err := m.repo.UpdateWallet(ctx, wallet); err != nil {
			return err
		}

		settledAt := m.now()
		hold.Status = to
		hold.SettledAt = &settledAt
		return m.repo.SettleHold(ctx, hold)
	})
}

// Wallet returns the tutor's balances
func (m *Manager) Wallet(ctx context.Context, tutorID uuid.UUID) (*Wallet, error) {
	return m.repo.GetWallet(ctx, tutorID)
}

// TotalFrozen sums every open hold
func (m *Manager) TotalFrozen(ctx context.Context) (decimal.Decimal, error) {
	return m.repo.TotalFrozen(ctx)
}
